package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
	"github.com/DIMO-Network/fipe-quoter/internal/options"
	"github.com/rs/zerolog"
)

// PriceAPI looks up FIPE prices.
type PriceAPI interface {
	Price(ctx context.Context, req fipe.PriceRequest) (*fipe.Price, error)
}

// Outcome is the kind of a PriceQuote.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeNoValue Outcome = "no_value"
)

// Target is one (model, year/fuel) pair to quote.
type Target struct {
	Model    fipe.Model
	YearFuel string
	// Value is the composite value of YearFuel for Model.
	Value string
}

// Batch is a set of targets sharing a vehicle type, reference table and brand.
type Batch struct {
	VehicleType    fipe.VehicleType
	ReferenceTable fipe.Code
	Brand          fipe.Code
	Targets        []Target
}

// PriceQuote is the result of quoting one target.
type PriceQuote struct {
	Model      string      `json:"model"`
	YearFuel   string      `json:"yearFuel"`
	Outcome    Outcome     `json:"outcome"`
	Price      *fipe.Price `json:"price,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorKind  string      `json:"errorKind,omitempty"`
	StatusCode int         `json:"statusCode,omitempty"`
	RawBody    string      `json:"rawBody,omitempty"`
}

// Presenter fetches and renders price quotes.
type Presenter struct {
	api PriceAPI
}

// NewPresenter creates a presenter backed by api.
func NewPresenter(api PriceAPI) *Presenter {
	return &Presenter{api: api}
}

// Quote fetches every target of the batch, one after the other, in target
// order. A failing target never affects the others.
func (p *Presenter) Quote(ctx context.Context, batch Batch) []PriceQuote {
	logger := zerolog.Ctx(ctx)
	quotes := make([]PriceQuote, 0, len(batch.Targets))
	for _, target := range batch.Targets {
		quote := p.quote(ctx, batch, target)
		if quote.Outcome != OutcomeSuccess {
			logger.Warn().Str("model", target.Model.Label).Str("yearFuel", target.YearFuel).
				Str("outcome", string(quote.Outcome)).Str("error", quote.Error).Msg("price lookup did not return a price")
		}
		quotes = append(quotes, quote)
	}
	return quotes
}

func (p *Presenter) quote(ctx context.Context, batch Batch, target Target) PriceQuote {
	quote := PriceQuote{Model: target.Model.Label, YearFuel: target.YearFuel}

	yearFuel, err := options.ParseYearFuel(target.Value)
	if err != nil {
		quote.Outcome = OutcomeError
		quote.Error = fmt.Sprintf("Valor de ano/combustível inválido: %v", err)
		return quote
	}

	price, err := p.api.Price(ctx, fipe.PriceRequest{
		VehicleType:    batch.VehicleType,
		ReferenceTable: batch.ReferenceTable,
		Brand:          batch.Brand,
		Model:          target.Model.Code,
		ModelYear:      yearFuel.ModelYear,
		Fuel:           yearFuel.Fuel,
	})
	switch {
	case errors.Is(err, fipe.ErrNoPrice):
		quote.Outcome = OutcomeNoValue
	case err != nil:
		quote.Outcome = OutcomeError
		quote.Error, quote.RawBody = quoteErrorMessage(err)
		if fe, ok := fipe.AsError(err); ok {
			quote.ErrorKind = fe.Kind.String()
			quote.StatusCode = fe.StatusCode
		}
	case price == nil || price.Value == "":
		quote.Outcome = OutcomeNoValue
	default:
		quote.Outcome = OutcomeSuccess
		quote.Price = price
	}
	return quote
}

// Render shows the quotes in order.
func (p *Presenter) Render(ui UI, quotes []PriceQuote) {
	ui.Subheader(msgResults)
	for _, q := range quotes {
		ui.Divider()
		switch q.Outcome {
		case OutcomeError:
			ui.Error("Erro ao consultar: " + q.Error)
			if q.RawBody != "" {
				ui.Text(q.RawBody)
			}
		case OutcomeNoValue:
			ui.Warning(msgNoValue)
		case OutcomeSuccess:
			ui.Field("Veículo", q.Price.Brand+" "+q.Price.Model)
			ui.Field("Ano/Combustível", fmt.Sprintf("%d / %s", q.Price.ModelYear, q.Price.Fuel))
			ui.Field("Preço FIPE", q.Price.Value)
			if q.Price.FIPECode != "" {
				ui.Field("Código FIPE", q.Price.FIPECode)
			}
			if q.Price.ReferenceMonth != "" {
				ui.Field("Mês de referência", q.Price.ReferenceMonth)
			}
		}
	}
}
