package cascade

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned FIPE answers and records price lookups.
type fakeAPI struct {
	tableErr   error
	tableCalls int
	brands     []fipe.Brand
	models     map[fipe.Code][]fipe.Model
	modelsErr  error
	yearFuels  map[fipe.Code][]fipe.YearFuelOption
	yearErrs   map[fipe.Code]error
	prices     map[string]*fipe.Price
	priceErrs  map[string]error
	priceCalls []fipe.PriceRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		brands: []fipe.Brand{{Label: "Honda", Code: 25}, {Label: "Toyota", Code: 26}},
		models: map[fipe.Code][]fipe.Model{
			26: {{Label: "Corolla", Code: 7541}, {Label: "Yaris", Code: 8000}, {Label: "Hilux", Code: 9000}},
		},
		yearFuels: map[fipe.Code][]fipe.YearFuelOption{
			7541: {{Label: "2023 Gasolina", Value: "2023-1"}, {Label: "32000 Gasolina", Value: "32000-1"}},
			8000: {{Label: "2022 Gasolina", Value: "2022-1"}, {Label: "2023 Gasolina", Value: "2023-1"}},
			9000: {{Label: "2024 Diesel", Value: "2024-3"}},
		},
		yearErrs:  map[fipe.Code]error{},
		prices:    map[string]*fipe.Price{},
		priceErrs: map[string]error{},
	}
}

func priceKey(model fipe.Code, year, fuel int) string {
	return fmt.Sprintf("%d/%d-%d", model, year, fuel)
}

func (f *fakeAPI) ReferenceTable(context.Context) (fipe.ReferenceTable, error) {
	f.tableCalls++
	if f.tableErr != nil {
		return fipe.ReferenceTable{}, f.tableErr
	}
	return fipe.ReferenceTable{Code: 311, Month: "outubro/2025 "}, nil
}

func (f *fakeAPI) Brands(context.Context, fipe.VehicleType, fipe.Code) ([]fipe.Brand, error) {
	return f.brands, nil
}

func (f *fakeAPI) Models(_ context.Context, _ fipe.VehicleType, _, brand fipe.Code) ([]fipe.Model, error) {
	if f.modelsErr != nil {
		return nil, f.modelsErr
	}
	return f.models[brand], nil
}

func (f *fakeAPI) YearFuels(_ context.Context, _ fipe.VehicleType, _, _, model fipe.Code) ([]fipe.YearFuelOption, error) {
	if err := f.yearErrs[model]; err != nil {
		return nil, err
	}
	return f.yearFuels[model], nil
}

func (f *fakeAPI) Price(_ context.Context, req fipe.PriceRequest) (*fipe.Price, error) {
	f.priceCalls = append(f.priceCalls, req)
	key := priceKey(req.Model, req.ModelYear, req.Fuel)
	if err := f.priceErrs[key]; err != nil {
		return nil, err
	}
	if p, ok := f.prices[key]; ok {
		return p, nil
	}
	return nil, fipe.ErrNoPrice
}

type widget struct {
	kind     string
	name     string
	text     string
	options  []string
	selected []string
}

// recordingUI keeps every widget rendered in order.
type recordingUI struct {
	widgets []widget
}

func (r *recordingUI) add(w widget) { r.widgets = append(r.widgets, w) }

func (r *recordingUI) Header(title, _ string) { r.add(widget{kind: "header", text: title}) }
func (r *recordingUI) Select(name, label string, options []string, selected string) {
	r.add(widget{kind: "select", name: name, text: label, options: options, selected: []string{selected}})
}

func (r *recordingUI) MultiSelect(name, label string, options []string, selected []string) {
	r.add(widget{kind: "multiselect", name: name, text: label, options: options, selected: selected})
}
func (r *recordingUI) Button(name, label string) { r.add(widget{kind: "button", name: name, text: label}) }
func (r *recordingUI) Info(msg string)           { r.add(widget{kind: "info", text: msg}) }
func (r *recordingUI) Warning(msg string)        { r.add(widget{kind: "warning", text: msg}) }
func (r *recordingUI) Error(msg string)          { r.add(widget{kind: "error", text: msg}) }
func (r *recordingUI) Text(text string)          { r.add(widget{kind: "text", text: text}) }
func (r *recordingUI) Subheader(text string)     { r.add(widget{kind: "subheader", text: text}) }
func (r *recordingUI) Divider()                  { r.add(widget{kind: "divider"}) }
func (r *recordingUI) Field(label, value string) { r.add(widget{kind: "field", name: label, text: value}) }

func (r *recordingUI) find(name string) (widget, bool) {
	for _, w := range r.widgets {
		if w.name == name {
			return w, true
		}
	}
	return widget{}, false
}

func (r *recordingUI) texts(kind string) []string {
	var out []string
	for _, w := range r.widgets {
		if w.kind == kind {
			out = append(out, w.text)
		}
	}
	return out
}

func newTestController(api API) *Controller {
	return NewController(api, 2025)
}

func TestRenderStopsWithoutBrand(t *testing.T) {
	api := newFakeAPI()
	ctrl := newTestController(api)
	sess := NewSession("s1")
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)

	assert.Equal(t, AwaitingBrand, stage)
	brand, ok := ui.find(FieldBrand)
	require.True(t, ok)
	assert.Equal(t, []string{"", "Honda", "Toyota"}, brand.options)
	assert.Equal(t, []string{msgSelectBrand}, ui.texts("warning"))
	_, ok = ui.find(FieldModels)
	assert.False(t, ok, "later stages must not render")
}

func TestRenderFetchesReferenceTableOnce(t *testing.T) {
	api := newFakeAPI()
	ctrl := newTestController(api)
	sess := NewSession("s1")

	ctrl.Render(context.Background(), sess, &recordingUI{}, false)
	ctrl.Render(context.Background(), sess, &recordingUI{}, false)

	assert.Equal(t, 1, api.tableCalls)
	require.NotNil(t, sess.ReferenceTable())
	assert.Equal(t, fipe.Code(311), sess.ReferenceTable().Code)
}

func TestRenderReferenceTableFailureRetries(t *testing.T) {
	api := newFakeAPI()
	api.tableErr = &fipe.Error{Endpoint: "ConsultarTabelaDeReferencia", Kind: fipe.KindHTTPStatus, StatusCode: http.StatusBadGateway}
	ctrl := newTestController(api)
	sess := NewSession("s1")
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)
	assert.Equal(t, AwaitingBrand, stage)
	assert.Nil(t, sess.ReferenceTable())
	require.Len(t, ui.texts("error"), 1)
	assert.Contains(t, ui.texts("error")[0], "502")

	api.tableErr = nil
	ctrl.Render(context.Background(), sess, &recordingUI{}, false)
	assert.Equal(t, 2, api.tableCalls)
	assert.NotNil(t, sess.ReferenceTable())
}

func TestRenderModelsErrorDegradesToEmpty(t *testing.T) {
	api := newFakeAPI()
	api.modelsErr = &fipe.Error{Endpoint: "ConsultarModelos", Kind: fipe.KindHTTPStatus, StatusCode: http.StatusInternalServerError}
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)

	assert.Equal(t, AwaitingModel, stage)
	models, ok := ui.find(FieldModels)
	require.True(t, ok)
	assert.Empty(t, models.options)
	assert.Equal(t, []string{"Erro HTTP ao consultar modelos: 500"}, ui.texts("error"))
	assert.Equal(t, []string{msgSelectModel}, ui.texts("warning"))
}

func TestRenderSingleModelRelabelsZeroKm(t *testing.T) {
	api := newFakeAPI()
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla"}})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)

	assert.Equal(t, AwaitingYearFuel, stage)
	years, ok := ui.find(FieldYearFuels)
	require.True(t, ok)
	assert.Equal(t, "multiselect", years.kind)
	assert.Equal(t, []string{"2023 Gasolina", "Zero Km (2025)"}, years.options)
	assert.Equal(t, []string{msgSelectYearFuels}, ui.texts("warning"))
}

func TestRenderMultiModelSingleChoice(t *testing.T) {
	api := newFakeAPI()
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla", "Yaris"}})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla", "Yaris"},
		YearFuels: []string{"2023 Gasolina", "2022 Gasolina"}})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)

	assert.Equal(t, Ready, stage)
	years, ok := ui.find(FieldYearFuels)
	require.True(t, ok)
	assert.Equal(t, "select", years.kind)
	assert.Equal(t, []string{"", "2023 Gasolina"}, years.options)
	assert.Equal(t, []string{"2023 Gasolina"}, years.selected)
	assert.Equal(t, []string{"2023 Gasolina"}, sess.YearFuels())
	assert.Equal(t, []string{msgMultipleModels}, ui.texts("info"))
	_, ok = ui.find(FieldSubmit)
	assert.True(t, ok)
	assert.Empty(t, api.priceCalls, "no quotes without submit")
}

func TestRenderNoCommonOptionsHardStop(t *testing.T) {
	api := newFakeAPI()
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Yaris", "Hilux"}})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)

	assert.Equal(t, AwaitingYearFuel, stage)
	assert.Equal(t, []string{msgNoCommonOptions}, ui.texts("error"))
	_, ok := ui.find(FieldYearFuels)
	assert.False(t, ok, "no selection may be offered")
}

func TestRenderQuotesContinueAfterFailure(t *testing.T) {
	api := newFakeAPI()
	api.priceErrs[priceKey(7541, 2023, 1)] = &fipe.Error{
		Endpoint:   "ConsultarValorComTodosParametros",
		Kind:       fipe.KindHTTPStatus,
		StatusCode: http.StatusInternalServerError,
		RawBody:    "boom",
	}
	api.prices[priceKey(8000, 2023, 1)] = &fipe.Price{
		Value: "R$ 90.000,00", Brand: "Toyota", Model: "Yaris", ModelYear: 2023, Fuel: "Gasolina",
	}
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla", "Yaris"}})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla", "Yaris"},
		YearFuels: []string{"2023 Gasolina"}})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, true)

	assert.Equal(t, Ready, stage)
	require.Len(t, api.priceCalls, 2)
	assert.Equal(t, fipe.Code(7541), api.priceCalls[0].Model)
	assert.Equal(t, fipe.Code(8000), api.priceCalls[1].Model)

	errs := ui.texts("error")
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0], "Erro ao consultar: "))
	assert.Contains(t, errs[0], "500")
	assert.Equal(t, []string{"boom"}, ui.texts("text"))
	assert.Contains(t, ui.texts("field"), "R$ 90.000,00")
}

func TestRenderSingleModelMultipleYears(t *testing.T) {
	api := newFakeAPI()
	api.prices[priceKey(7541, 2023, 1)] = &fipe.Price{Value: "R$ 150.000,00", Brand: "Toyota", Model: "Corolla", ModelYear: 2023, Fuel: "Gasolina"}
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla"}})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla"},
		YearFuels: []string{"Zero Km (2025)", "2023 Gasolina"}})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, true)

	assert.Equal(t, Ready, stage)
	require.Len(t, api.priceCalls, 2)
	assert.Equal(t, 32000, api.priceCalls[0].ModelYear)
	assert.Equal(t, 2023, api.priceCalls[1].ModelYear)
	assert.Equal(t, []string{msgNoValue}, ui.texts("warning"))
	assert.Contains(t, ui.texts("field"), "R$ 150.000,00")
}

func TestRenderYearFuelFetchErrorShowsRawBody(t *testing.T) {
	api := newFakeAPI()
	api.yearErrs[7541] = &fipe.Error{Endpoint: "ConsultarAnoModelo", Kind: fipe.KindMalformed,
		RawBody: "<html>", Err: fmt.Errorf("invalid character '<'")}
	ctrl := newTestController(api)
	sess := NewSession("s1")
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota"})
	sess.Apply(Selection{VehicleType: "Carro", Brand: "Toyota", Models: []string{"Corolla"}})
	ui := &recordingUI{}

	stage := ctrl.Render(context.Background(), sess, ui, false)

	assert.Equal(t, AwaitingYearFuel, stage)
	require.Len(t, ui.texts("error"), 1)
	assert.Contains(t, ui.texts("error")[0], "não é JSON")
	assert.Equal(t, []string{"<html>"}, ui.texts("text"))
}

func TestTargetsOrder(t *testing.T) {
	api := newFakeAPI()
	ctrl := newTestController(api)
	models := []fipe.Model{{Label: "Yaris", Code: 8000}, {Label: "Corolla", Code: 7541}}

	res, fetchErrs, err := ctrl.Resolve(context.Background(), fipe.Car, 311, 26, models)
	require.NoError(t, err)
	require.Empty(t, fetchErrs)

	targets := Targets(models, res, []string{"2023 Gasolina"})
	require.Len(t, targets, 2)
	assert.Equal(t, "Yaris", targets[0].Model.Label)
	assert.Equal(t, "Corolla", targets[1].Model.Label)
	assert.Equal(t, "2023-1", targets[1].Value)
}
