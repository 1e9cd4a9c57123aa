// Package fipe provides a client for the FIPE vehicle price table API.
package fipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/DIMO-Network/fipe-quoter/internal/config"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	referenceTableEndpoint = "ConsultarTabelaDeReferencia"
	brandsEndpoint         = "ConsultarMarcas"
	modelsEndpoint         = "ConsultarModelos"
	yearFuelsEndpoint      = "ConsultarAnoModelo"
	priceEndpoint          = "ConsultarValorComTodosParametros"

	traditionalQuery = "tradicional"
)

// Client is a client for interacting with the FIPE API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	referer    string
	logger     *zerolog.Logger
}

// NewClient creates a new instance of Client with all config from settings.
func NewClient(settings *config.Settings, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	if settings.FIPEBaseURL == "" {
		return nil, fmt.Errorf("FIPE base URL is required")
	}

	if httpClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}

	if _, err := url.Parse(settings.FIPEBaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse FIPE base URL: %w", err)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    settings.FIPEBaseURL,
		referer:    settings.FIPEReferer,
		logger:     &logger,
	}, nil
}

// ReferenceTable returns the most recent reference table, which FIPE lists first.
func (c *Client) ReferenceTable(ctx context.Context) (ReferenceTable, error) {
	body, err := c.post(ctx, referenceTableEndpoint, struct{}{})
	if err != nil {
		return ReferenceTable{}, err
	}

	var tables []ReferenceTable
	if err := decode(referenceTableEndpoint, body, &tables); err != nil {
		return ReferenceTable{}, err
	}
	if len(tables) == 0 {
		return ReferenceTable{}, &Error{
			Endpoint: referenceTableEndpoint,
			Kind:     KindMalformed,
			RawBody:  string(body),
			Err:      fmt.Errorf("empty reference table list"),
		}
	}
	return tables[0], nil
}

// Brands returns every brand for the vehicle type in the reference table.
func (c *Client) Brands(ctx context.Context, vehicleType VehicleType, table Code) ([]Brand, error) {
	payload := map[string]any{
		"codigoTabelaReferencia": table,
		"codigoTipoVeiculo":      vehicleType,
	}
	body, err := c.post(ctx, brandsEndpoint, payload)
	if err != nil {
		return nil, err
	}

	var brands []Brand
	if err := decode(brandsEndpoint, body, &brands); err != nil {
		return nil, err
	}
	return brands, nil
}

// Models returns the models of a brand.
func (c *Client) Models(ctx context.Context, vehicleType VehicleType, table, brand Code) ([]Model, error) {
	payload := map[string]any{
		"codigoTabelaReferencia": table,
		"codigoTipoVeiculo":      vehicleType,
		"codigoMarca":            brand,
	}
	body, err := c.post(ctx, modelsEndpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp modelsResponse
	if err := decode(modelsEndpoint, body, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// YearFuels returns the year and fuel combinations available for a model.
func (c *Client) YearFuels(ctx context.Context, vehicleType VehicleType, table, brand, model Code) ([]YearFuelOption, error) {
	payload := map[string]any{
		"codigoTabelaReferencia": table,
		"codigoTipoVeiculo":      vehicleType,
		"codigoMarca":            brand,
		"codigoModelo":           model,
	}
	body, err := c.post(ctx, yearFuelsEndpoint, payload)
	if err != nil {
		return nil, err
	}

	var options []YearFuelOption
	if err := decode(yearFuelsEndpoint, body, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// Price looks up the FIPE price of a model year and fuel combination.
// ErrNoPrice is returned when FIPE answers without a price.
func (c *Client) Price(ctx context.Context, req PriceRequest) (*Price, error) {
	payload := priceRequestBody{
		ReferenceTable: req.ReferenceTable,
		Brand:          req.Brand,
		Model:          req.Model,
		VehicleType:    req.VehicleType,
		ModelYear:      req.ModelYear,
		Fuel:           req.Fuel,
		QueryType:      traditionalQuery,
	}
	body, err := c.post(ctx, priceEndpoint, payload)
	if err != nil {
		return nil, err
	}

	var price Price
	if err := decode(priceEndpoint, body, &price); err != nil {
		return nil, err
	}
	if !gjson.GetBytes(body, "Valor").Exists() {
		return nil, ErrNoPrice
	}
	return &price, nil
}

// post sends payload to the endpoint and returns the body of a 200 response.
func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	endpointURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s URL: %w", endpoint, err)
	}

	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	c.logger.Debug().Str("endpoint", endpoint).RawJSON("payload", reqBytes).Msg("sending FIPE request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Endpoint:   endpoint,
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			RawBody:    string(bodyBytes),
		}
	}

	// FIPE reports invalid parameters as {"codigo":"2","erro":"..."} with a 200 status.
	if msg := gjson.GetBytes(bodyBytes, "erro"); msg.Exists() {
		return nil, &Error{
			Endpoint:   endpoint,
			Kind:       KindAPI,
			StatusCode: resp.StatusCode,
			Message:    msg.String(),
			RawBody:    string(bodyBytes),
		}
	}
	return bodyBytes, nil
}

func decode(endpoint string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Endpoint:   endpoint,
			Kind:       KindMalformed,
			StatusCode: http.StatusOK,
			RawBody:    string(body),
			Err:        err,
		}
	}
	return nil
}
