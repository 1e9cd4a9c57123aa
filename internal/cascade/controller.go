// Package cascade drives the FIPE selection form: vehicle type, reference
// table, brand, models, then year and fuel, and finally the price quotes.
package cascade

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
	"github.com/DIMO-Network/fipe-quoter/internal/options"
	"github.com/rs/zerolog"
)

// API is the subset of the FIPE client the cascade needs.
type API interface {
	PriceAPI
	ReferenceTable(ctx context.Context) (fipe.ReferenceTable, error)
	Brands(ctx context.Context, vehicleType fipe.VehicleType, table fipe.Code) ([]fipe.Brand, error)
	Models(ctx context.Context, vehicleType fipe.VehicleType, table, brand fipe.Code) ([]fipe.Model, error)
	YearFuels(ctx context.Context, vehicleType fipe.VehicleType, table, brand, model fipe.Code) ([]fipe.YearFuelOption, error)
}

// Controller renders the selection cascade for a session.
type Controller struct {
	api        API
	presenter  *Presenter
	zeroKmYear int
	now        func() time.Time
}

// NewController creates a controller. A zeroKmYear of 0 labels zero-km
// options with the current calendar year.
func NewController(api API, zeroKmYear int) *Controller {
	return &Controller{
		api:        api,
		presenter:  NewPresenter(api),
		zeroKmYear: zeroKmYear,
		now:        time.Now,
	}
}

// Presenter returns the presenter used for quotes.
func (c *Controller) Presenter() *Presenter {
	return c.presenter
}

// ZeroKmLabel returns the label currently used for zero-km options.
func (c *Controller) ZeroKmLabel() string {
	year := c.zeroKmYear
	if year == 0 {
		year = c.now().Year()
	}
	return options.ZeroKmLabel(year)
}

// Render runs one render cycle from the top using the session's choices. It
// stops at the first stage whose selection is missing and returns that stage.
// Quotes are fetched only when submit is set and every selection is made.
func (c *Controller) Render(ctx context.Context, s *Session, ui UI, submit bool) Stage {
	logger := zerolog.Ctx(ctx)
	ui.Header(msgTitle, "")

	vehicleType := s.VehicleType()
	ui.Select(FieldVehicleType, "Tipo de Veículo", vehicleTypeLabels(), vehicleType.Label())
	if !vehicleType.Valid() {
		ui.Warning(msgSelectType)
		return AwaitingType
	}

	table, ok := c.referenceTable(ctx, s, ui)
	if !ok {
		return AwaitingBrand
	}
	ui.Field("Tabela de referência", strings.TrimSpace(table.Month))

	// Brand
	brands, err := c.api.Brands(ctx, vehicleType, table.Code)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch brands")
		c.report(ui, "marcas", err)
	}
	brandIdx := slices.IndexFunc(brands, func(b fipe.Brand) bool { return b.Label == s.Brand() })
	if brandIdx < 0 && s.Brand() != "" {
		s.SetBrand("")
	}
	brandLabels := []string{""}
	for _, b := range brands {
		brandLabels = append(brandLabels, b.Label)
	}
	ui.Select(FieldBrand, "Marca", brandLabels, s.Brand())
	if brandIdx < 0 {
		ui.Warning(msgSelectBrand)
		return AwaitingBrand
	}
	brand := brands[brandIdx]

	// Models
	models, err := c.api.Models(ctx, vehicleType, table.Code, brand.Code)
	if err != nil {
		logger.Error().Err(err).Int("brand", int(brand.Code)).Msg("failed to fetch models")
		c.report(ui, "modelos", err)
	}
	selectedModels := pickModels(models, s.Models())
	selectedLabels := modelLabels(selectedModels)
	if !slices.Equal(selectedLabels, s.Models()) {
		s.SetModels(selectedLabels)
	}
	ui.MultiSelect(FieldModels, "Modelos", modelLabels(models), selectedLabels)
	if len(selectedModels) == 0 {
		ui.Warning(msgSelectModel)
		return AwaitingModel
	}

	// Year and fuel
	if len(selectedModels) > 1 {
		ui.Info(msgMultipleModels)
	}
	res, fetchErrs, err := c.Resolve(ctx, vehicleType, table.Code, brand.Code, selectedModels)
	for _, fetchErr := range fetchErrs {
		logger.Error().Err(fetchErr).Msg("failed to fetch year/fuel options")
		c.report(ui, "anos", fetchErr)
	}
	if err != nil {
		ui.Error(msgNoCommonOptions)
		return AwaitingYearFuel
	}
	for _, label := range res.Divergent {
		logger.Warn().Str("yearFuel", label).Msg("selected models disagree on year/fuel value")
		ui.Warning(fmt.Sprintf(msgDivergent, label))
	}

	chosen := slices.DeleteFunc(s.YearFuels(), func(label string) bool { return !res.Contains(label) })
	if res.Multi {
		ui.MultiSelect(FieldYearFuels, "Ano(s)/Combustível", res.Labels, chosen)
	} else {
		if len(chosen) > 1 {
			chosen = chosen[:1]
		}
		current := ""
		if len(chosen) == 1 {
			current = chosen[0]
		}
		ui.Select(FieldYearFuels, "Ano/Combustível", append([]string{""}, res.Labels...), current)
	}
	if !slices.Equal(chosen, s.YearFuels()) {
		s.SetYearFuels(chosen)
	}
	if len(chosen) == 0 {
		if res.Multi {
			ui.Warning(msgSelectYearFuels)
		} else {
			ui.Warning(msgSelectYearFuel)
		}
		return AwaitingYearFuel
	}

	ui.Button(FieldSubmit, "Consultar Valor")
	if submit {
		batch := Batch{
			VehicleType:    vehicleType,
			ReferenceTable: table.Code,
			Brand:          brand.Code,
			Targets:        Targets(selectedModels, res, chosen),
		}
		c.presenter.Render(ui, c.presenter.Quote(ctx, batch))
	}
	return Ready
}

// Resolve fetches the year/fuel options of every model and resolves the
// labels that may be offered. Fetch failures are returned in fetchErrs and the
// failing model contributes no labels. err is set when nothing can be offered.
func (c *Controller) Resolve(ctx context.Context, vehicleType fipe.VehicleType, table, brand fipe.Code, models []fipe.Model) (res *options.Resolution, fetchErrs []error, err error) {
	zeroKm := c.ZeroKmLabel()
	sets := make([]options.Set, 0, len(models))
	for _, model := range models {
		opts, fetchErr := c.api.YearFuels(ctx, vehicleType, table, brand, model.Code)
		if fetchErr != nil {
			fetchErrs = append(fetchErrs, fetchErr)
		}
		sets = append(sets, options.NewSet(opts, zeroKm))
	}
	res, err = options.Resolve(sets)
	return res, fetchErrs, err
}

// Targets pairs every model with every year/fuel label, models first, both
// in selection order.
func Targets(models []fipe.Model, res *options.Resolution, labels []string) []Target {
	targets := make([]Target, 0, len(models)*len(labels))
	for i, model := range models {
		for _, label := range labels {
			value, _ := res.Value(i, label)
			targets = append(targets, Target{Model: model, YearFuel: label, Value: value})
		}
	}
	return targets
}

// referenceTable returns the session's reference table, fetching it on first
// use. A failed fetch is reported and retried on the next render.
func (c *Controller) referenceTable(ctx context.Context, s *Session, ui UI) (*fipe.ReferenceTable, bool) {
	if table := s.ReferenceTable(); table != nil {
		return table, true
	}
	table, err := c.api.ReferenceTable(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to fetch reference table")
		c.report(ui, "tabela de referência", err)
		ui.Warning(msgTableUnavailable)
		return nil, false
	}
	s.SetReferenceTable(table)
	return s.ReferenceTable(), true
}

func (c *Controller) report(ui UI, subject string, err error) {
	msg, raw := listErrorMessage(subject, err)
	ui.Error(msg)
	if raw != "" {
		ui.Text(raw)
	}
}

func vehicleTypeLabels() []string {
	labels := make([]string, 0, len(fipe.VehicleTypes))
	for _, vt := range fipe.VehicleTypes {
		labels = append(labels, vt.Label())
	}
	return labels
}

// pickModels returns the models named by labels, in label order.
func pickModels(models []fipe.Model, labels []string) []fipe.Model {
	picked := make([]fipe.Model, 0, len(labels))
	for _, label := range labels {
		if i := slices.IndexFunc(models, func(m fipe.Model) bool { return m.Label == label }); i >= 0 {
			picked = append(picked, models[i])
		}
	}
	return picked
}

func modelLabels(models []fipe.Model) []string {
	labels := make([]string, 0, len(models))
	for _, m := range models {
		labels = append(labels, m.Label)
	}
	return labels
}
