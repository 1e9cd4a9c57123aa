package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/DIMO-Network/fipe-quoter/internal/app"
	"github.com/DIMO-Network/fipe-quoter/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const appName = "fipe-quoter"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	group, gCtx := errgroup.WithContext(ctx)

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", appName).Logger()
	zerolog.DefaultContextLogger = &logger

	settings, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse environment variables.")
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse log level.")
	}
	zerolog.SetGlobalLevel(level)
	if settings.Environment == "local" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Received signal, shutting down...")
	}()

	webApp, err := app.CreateWebServer(&logger, &settings)
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't create web server.")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", settings.Port))
	if err != nil {
		logger.Fatal().Err(err).Msgf("Couldn't listen on port %d.", settings.Port)
	}
	logger.Info().Msgf("Listening on %s", listener.Addr())

	RunFiberWithListener(gCtx, webApp, listener, group)

	err = group.Wait()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to run servers.")
	}
}

// RunFiberWithListener runs a fiber server on the listener until ctx is done.
func RunFiberWithListener(ctx context.Context, fiberApp *fiber.App, listener net.Listener, group *errgroup.Group) {
	group.Go(func() error {
		if err := fiberApp.Listener(listener); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		if err := fiberApp.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})
}
