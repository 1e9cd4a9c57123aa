package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DIMO-Network/fipe-quoter/internal/cascade"
	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
	"github.com/DIMO-Network/fipe-quoter/internal/config"
	"github.com/DIMO-Network/fipe-quoter/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// CreateWebServer wires the FIPE client, the cascade and the session store
// into a fiber app.
func CreateWebServer(logger *zerolog.Logger, settings *config.Settings) (*fiber.App, error) {
	httpClient := &http.Client{Timeout: settings.HTTPTimeout}
	fipeClient, err := fipe.NewClient(settings, httpClient, logger.With().Str("component", "fipe").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create fipe client: %w", err)
	}

	sessions := session.New(settings.SessionTTL, settings.SessionTTL*2)
	ctrl := NewController(fipeClient, cascade.NewController(fipeClient, settings.ZeroKmYear), sessions)
	return createApp(logger, ctrl), nil
}

func createApp(logger *zerolog.Logger, ctrl *Controller) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return ErrorHandler(c, err, logger)
		},
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		Next:              nil,
		EnableStackTrace:  true,
		StackTraceHandler: nil,
	}))

	app.Use(func(c *fiber.Ctx) error {
		userCtx := logger.With().Str("httpPath", strings.TrimPrefix(c.Path(), "/")).
			Str("httpMethod", c.Method()).Logger().WithContext(c.UserContext())
		c.SetUserContext(userCtx)
		return c.Next()
	})

	app.Get("/health", HealthCheck)
	app.Get("/", ctrl.Form)

	v1 := app.Group("/api/v1")
	v1.Get("/reference-table", ctrl.GetReferenceTable)
	v1.Get("/vehicle-types/:vehicleType/brands", ctrl.GetBrands)
	v1.Get("/vehicle-types/:vehicleType/brands/:brand/models", ctrl.GetModels)
	v1.Get("/vehicle-types/:vehicleType/brands/:brand/year-fuels", ctrl.GetYearFuels)
	v1.Post("/quotes", ctrl.CreateQuotes)
	return app
}

// HealthCheck reports that the server is up.
func HealthCheck(ctx *fiber.Ctx) error {
	res := map[string]any{
		"data": "Server is up and running",
	}

	return ctx.JSON(res)
}

// ErrorHandler custom handler to log recovered errors using our logger and return json instead of string.
func ErrorHandler(ctx *fiber.Ctx, err error, logger *zerolog.Logger) error {
	code := fiber.StatusInternalServerError // Default 500 statuscode
	message := "Internal error."

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// don't log not found errors
	if code != fiber.StatusNotFound {
		logger.Err(err).Int("httpStatusCode", code).
			Str("httpPath", strings.TrimPrefix(ctx.Path(), "/")).
			Str("httpMethod", ctx.Method()).
			Msg("caught an error from http request")
	}

	return ctx.Status(code).JSON(codeResp{Code: code, Message: message})
}

type codeResp struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}
