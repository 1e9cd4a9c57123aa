package app

import (
	"errors"
	"slices"
	"strconv"

	"github.com/DIMO-Network/fipe-quoter/internal/cascade"
	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
	"github.com/DIMO-Network/fipe-quoter/internal/options"
	"github.com/DIMO-Network/fipe-quoter/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

const sessionCookie = "fipe_session"

type Controller struct {
	api      cascade.API
	cascade  *cascade.Controller
	sessions *session.Store
}

func NewController(api cascade.API, cascadeCtrl *cascade.Controller, sessions *session.Store) *Controller {
	return &Controller{
		api:      api,
		cascade:  cascadeCtrl,
		sessions: sessions,
	}
}

// Form renders the selection form for the caller's session. Every request
// reruns the cascade from the top with the submitted choices applied.
func (c *Controller) Form(ctx *fiber.Ctx) error {
	sess, created := c.sessions.GetOrCreate(ctx.Cookies(sessionCookie))
	ctx.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	userCtx := zerolog.Ctx(ctx.UserContext()).With().Str("sessionId", sess.ID).Logger().WithContext(ctx.UserContext())
	logger := zerolog.Ctx(userCtx)
	if created {
		logger.Debug().Msg("started new form session")
	}

	sess.Lock()
	defer sess.Unlock()
	switch {
	case ctx.Query("reset") != "":
		sess.Reset()
	case len(ctx.Queries()) > 0:
		sess.Apply(selectionFromQuery(ctx))
	}

	pg := newPage()
	stage := c.cascade.Render(userCtx, sess, pg, ctx.Query(cascade.FieldSubmit) != "")
	logger.Debug().Stringer("stage", stage).Msg("rendered form")

	ctx.Type("html", "utf-8")
	return pg.render(ctx)
}

// GetReferenceTable returns the current FIPE reference table.
func (c *Controller) GetReferenceTable(ctx *fiber.Ctx) error {
	table, err := c.api.ReferenceTable(ctx.UserContext())
	if err != nil {
		return upstreamError(err)
	}
	return ctx.JSON(table)
}

// GetBrands lists the brands of a vehicle type. The table query parameter
// defaults to the current reference table.
func (c *Controller) GetBrands(ctx *fiber.Ctx) error {
	vehicleType, err := vehicleTypeParam(ctx)
	if err != nil {
		return err
	}
	table, err := c.tableQuery(ctx)
	if err != nil {
		return err
	}
	brands, err := c.api.Brands(ctx.UserContext(), vehicleType, table)
	if err != nil {
		return upstreamError(err)
	}
	return ctx.JSON(brands)
}

// GetModels lists the models of a brand.
func (c *Controller) GetModels(ctx *fiber.Ctx) error {
	vehicleType, err := vehicleTypeParam(ctx)
	if err != nil {
		return err
	}
	brand, err := codeParam(ctx, "brand")
	if err != nil {
		return err
	}
	table, err := c.tableQuery(ctx)
	if err != nil {
		return err
	}
	models, err := c.api.Models(ctx.UserContext(), vehicleType, table, brand)
	if err != nil {
		return upstreamError(err)
	}
	return ctx.JSON(models)
}

// GetYearFuels resolves the year/fuel labels offered for the models given as
// repeated model query parameters.
func (c *Controller) GetYearFuels(ctx *fiber.Ctx) error {
	vehicleType, err := vehicleTypeParam(ctx)
	if err != nil {
		return err
	}
	brand, err := codeParam(ctx, "brand")
	if err != nil {
		return err
	}
	table, err := c.tableQuery(ctx)
	if err != nil {
		return err
	}
	var models []fipe.Model
	for _, raw := range ctx.Context().QueryArgs().PeekMulti("model") {
		code, err := strconv.Atoi(string(raw))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid model code")
		}
		models = append(models, fipe.Model{Code: fipe.Code(code)})
	}
	if len(models) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one model is required")
	}

	res, err := c.resolve(ctx, vehicleType, table, brand, models)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

// QuoteRequest selects the targets of a price lookup.
type QuoteRequest struct {
	VehicleType fipe.VehicleType `json:"vehicleType"`
	// ReferenceTable defaults to the current reference table.
	ReferenceTable fipe.Code   `json:"referenceTable"`
	Brand          fipe.Code   `json:"brand"`
	Models         []fipe.Code `json:"models"`
	YearFuels      []string    `json:"yearFuels"`
}

// QuoteResponse holds one quote per model and year/fuel pair.
type QuoteResponse struct {
	ID             string               `json:"id"`
	ReferenceTable fipe.Code            `json:"referenceTable"`
	Quotes         []cascade.PriceQuote `json:"quotes"`
}

// CreateQuotes looks up the FIPE price of every requested model and
// year/fuel label. Failing lookups are reported per quote.
func (c *Controller) CreateQuotes(ctx *fiber.Ctx) error {
	var req QuoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if !req.VehicleType.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid vehicle type")
	}
	if req.Brand == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Brand is required")
	}
	if len(req.Models) == 0 || len(req.YearFuels) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one model and one year/fuel are required")
	}
	if len(req.Models) > 1 && len(req.YearFuels) > 1 {
		return fiber.NewError(fiber.StatusBadRequest, "Only one year/fuel may be chosen for several models")
	}

	table := req.ReferenceTable
	if table == 0 {
		current, err := c.api.ReferenceTable(ctx.UserContext())
		if err != nil {
			return upstreamError(err)
		}
		table = current.Code
	}

	available, err := c.api.Models(ctx.UserContext(), req.VehicleType, table, req.Brand)
	if err != nil {
		return upstreamError(err)
	}
	models := make([]fipe.Model, 0, len(req.Models))
	for _, code := range req.Models {
		i := slices.IndexFunc(available, func(m fipe.Model) bool { return m.Code == code })
		if i < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown model "+strconv.Itoa(int(code)))
		}
		models = append(models, available[i])
	}

	res, err := c.resolve(ctx, req.VehicleType, table, req.Brand, models)
	if err != nil {
		return err
	}
	for _, label := range req.YearFuels {
		if !res.Contains(label) {
			return fiber.NewError(fiber.StatusBadRequest, "Year/fuel not offered for the selected models: "+label)
		}
	}

	id := ksuid.New().String()
	quoteCtx := zerolog.Ctx(ctx.UserContext()).With().Str("quoteId", id).Logger().WithContext(ctx.UserContext())
	quotes := c.cascade.Presenter().Quote(quoteCtx, cascade.Batch{
		VehicleType:    req.VehicleType,
		ReferenceTable: table,
		Brand:          req.Brand,
		Targets:        cascade.Targets(models, res, req.YearFuels),
	})
	return ctx.JSON(QuoteResponse{ID: id, ReferenceTable: table, Quotes: quotes})
}

func (c *Controller) resolve(ctx *fiber.Ctx, vehicleType fipe.VehicleType, table, brand fipe.Code, models []fipe.Model) (*options.Resolution, error) {
	res, fetchErrs, err := c.cascade.Resolve(ctx.UserContext(), vehicleType, table, brand, models)
	if len(fetchErrs) > 0 {
		return nil, upstreamError(fetchErrs[0])
	}
	if errors.Is(err, options.ErrNoCommonOptions) {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "No year/fuel is shared by the selected models")
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return res, nil
}

func (c *Controller) tableQuery(ctx *fiber.Ctx) (fipe.Code, error) {
	raw := ctx.Query("table")
	if raw == "" {
		table, err := c.api.ReferenceTable(ctx.UserContext())
		if err != nil {
			return 0, upstreamError(err)
		}
		return table.Code, nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil || code <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid reference table")
	}
	return fipe.Code(code), nil
}

func vehicleTypeParam(ctx *fiber.Ctx) (fipe.VehicleType, error) {
	n, err := strconv.Atoi(ctx.Params("vehicleType"))
	vehicleType := fipe.VehicleType(n)
	if err != nil || !vehicleType.Valid() {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid vehicle type")
	}
	return vehicleType, nil
}

func codeParam(ctx *fiber.Ctx, name string) (fipe.Code, error) {
	n, err := strconv.Atoi(ctx.Params(name))
	if err != nil || n <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name+" code")
	}
	return fipe.Code(n), nil
}

// upstreamError maps a failed FIPE call to a 502.
func upstreamError(err error) error {
	fe, ok := fipe.AsError(err)
	if !ok {
		return err
	}
	return fiber.NewError(fiber.StatusBadGateway, fe.Error())
}

func selectionFromQuery(ctx *fiber.Ctx) cascade.Selection {
	return cascade.Selection{
		VehicleType: utils.CopyString(ctx.Query(cascade.FieldVehicleType)),
		Brand:       utils.CopyString(ctx.Query(cascade.FieldBrand)),
		Models:      queryValues(ctx, cascade.FieldModels),
		YearFuels:   queryValues(ctx, cascade.FieldYearFuels),
	}
}

func queryValues(ctx *fiber.Ctx, name string) []string {
	var values []string
	for _, v := range ctx.Context().QueryArgs().PeekMulti(name) {
		values = append(values, string(v))
	}
	return values
}
