package cascade

import (
	"fmt"

	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
)

// User facing messages. The FIPE table is Brazilian so the form speaks Portuguese.
const (
	msgTitle            = "Consulta FIPE"
	msgSelectType       = "Por favor, selecione um Tipo de Veículo."
	msgSelectBrand      = "Por favor, selecione uma Marca."
	msgSelectModel      = "Por favor, selecione pelo menos um Modelo."
	msgSelectYearFuels  = "Por favor, selecione pelo menos um Ano/Combustível."
	msgSelectYearFuel   = "Por favor, selecione o Ano/Combustível."
	msgMultipleModels   = "Múltiplos modelos selecionados: mostrando apenas anos comuns entre todos."
	msgNoCommonOptions  = "❌ Nenhum ano/combustível em comum entre os modelos selecionados."
	msgTableUnavailable = "Não foi possível obter a tabela de referência. Tente novamente."
	msgResults          = "🔍 Resultado(s) da Tabela FIPE"
	msgNoValue          = "⚠️ Nenhum valor retornado pela FIPE para este modelo/ano."
	msgDivergent        = "Os modelos selecionados usam códigos diferentes para %q; cada modelo será consultado com o próprio código."
)

// listErrorMessage describes a failed list fetch. raw is the response body
// when it helps diagnosing a malformed answer.
func listErrorMessage(subject string, err error) (msg, raw string) {
	fe, ok := fipe.AsError(err)
	if !ok {
		return fmt.Sprintf("Erro inesperado ao consultar %s: %v", subject, err), ""
	}
	switch fe.Kind {
	case fipe.KindHTTPStatus:
		return fmt.Sprintf("Erro HTTP ao consultar %s: %d", subject, fe.StatusCode), ""
	case fipe.KindTransport:
		return fmt.Sprintf("Erro de rede ao consultar %s: %v", subject, fe.Err), ""
	case fipe.KindMalformed:
		return fmt.Sprintf("Resposta inválida da FIPE ao consultar %s (não é JSON): %v", subject, fe.Err), fe.RawBody
	case fipe.KindAPI:
		return fmt.Sprintf("A FIPE retornou um erro ao consultar %s: %s", subject, fe.Message), ""
	}
	return fmt.Sprintf("Erro inesperado ao consultar %s: %v", subject, err), ""
}

// quoteErrorMessage describes a failed price lookup.
func quoteErrorMessage(err error) (msg, raw string) {
	fe, ok := fipe.AsError(err)
	if !ok {
		return fmt.Sprintf("Erro inesperado: %v", err), ""
	}
	switch fe.Kind {
	case fipe.KindHTTPStatus:
		return fmt.Sprintf("Erro HTTP: %d", fe.StatusCode), fe.RawBody
	case fipe.KindTransport:
		return fmt.Sprintf("Erro na requisição: %v", fe.Err), ""
	case fipe.KindMalformed:
		return fmt.Sprintf("Resposta inválida da FIPE (não é JSON): %v", fe.Err), fe.RawBody
	case fipe.KindAPI:
		return fmt.Sprintf("A FIPE retornou um erro: %s", fe.Message), fe.RawBody
	}
	return fmt.Sprintf("Erro inesperado: %v", err), ""
}
