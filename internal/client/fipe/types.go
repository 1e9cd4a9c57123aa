package fipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// VehicleType is the vehicle category code understood by the FIPE API.
type VehicleType int

const (
	Car        VehicleType = 1
	Motorcycle VehicleType = 2
	Truck      VehicleType = 3
)

// VehicleTypes lists every vehicle type in display order.
var VehicleTypes = []VehicleType{Car, Motorcycle, Truck}

// Label returns the display label of the vehicle type.
func (v VehicleType) Label() string {
	switch v {
	case Car:
		return "Carro"
	case Motorcycle:
		return "Moto"
	case Truck:
		return "Caminhão"
	}
	return ""
}

// Valid reports whether v is a known vehicle type.
func (v VehicleType) Valid() bool {
	return v.Label() != ""
}

// VehicleTypeFromLabel returns the vehicle type with the given display label.
func VehicleTypeFromLabel(label string) (VehicleType, bool) {
	for _, vt := range VehicleTypes {
		if vt.Label() == label {
			return vt, true
		}
	}
	return 0, false
}

// Code is a numeric FIPE identifier. The API sends codes either as JSON
// numbers or as quoted strings depending on the endpoint.
type Code int

// UnmarshalJSON accepts both 26 and "26".
func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid code %q: %w", s, err)
		}
		*c = Code(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid code %s: %w", string(data), err)
	}
	*c = Code(n)
	return nil
}

// ReferenceTable identifies a published FIPE catalog snapshot.
type ReferenceTable struct {
	Code  Code   `json:"Codigo"`
	Month string `json:"Mes"`
}

// Brand is a vehicle brand for a vehicle type.
type Brand struct {
	Label string `json:"Label"`
	Code  Code   `json:"Value"`
}

// Model is a vehicle model scoped to a brand.
type Model struct {
	Label string `json:"Label"`
	Code  Code   `json:"Value"`
}

// YearFuelOption is a model year and fuel combination. Value has the form
// "<modelYear>-<fuelCode>".
type YearFuelOption struct {
	Label string `json:"Label"`
	Value string `json:"Value"`
}

// modelsResponse is the body of ConsultarModelos.
type modelsResponse struct {
	Models []Model `json:"Modelos"`
}

// PriceRequest holds every parameter of a price lookup.
type PriceRequest struct {
	VehicleType    VehicleType
	ReferenceTable Code
	Brand          Code
	Model          Code
	ModelYear      int
	Fuel           int
}

// priceRequestBody is the wire form of a price lookup.
type priceRequestBody struct {
	ReferenceTable Code        `json:"codigoTabelaReferencia"`
	Brand          Code        `json:"codigoMarca"`
	Model          Code        `json:"codigoModelo"`
	VehicleType    VehicleType `json:"codigoTipoVeiculo"`
	ModelYear      int         `json:"anoModelo"`
	Fuel           int         `json:"codigoTipoCombustivel"`
	QueryType      string      `json:"tipoConsulta"`
	ExternalModel  *string     `json:"modeloCodigoExterno"`
}

// Price is a FIPE valuation.
type Price struct {
	Value          string `json:"Valor"`
	Brand          string `json:"Marca"`
	Model          string `json:"Modelo"`
	ModelYear      int    `json:"AnoModelo"`
	Fuel           string `json:"Combustivel"`
	FIPECode       string `json:"CodigoFipe"`
	ReferenceMonth string `json:"MesReferencia"`
	Authentication string `json:"Autenticacao"`
	VehicleType    int    `json:"TipoVeiculo"`
	FuelAcronym    string `json:"SiglaCombustivel"`
	ConsultedAt    string `json:"DataConsulta"`
}
