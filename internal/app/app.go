// Package app wires the relay's components together and owns the
// server lifecycle.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeanderJDev/Shello/internal/api"
	"github.com/LeanderJDev/Shello/internal/config"
	"github.com/LeanderJDev/Shello/internal/core"
	transporthttp "github.com/LeanderJDev/Shello/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	client := api.NewHTTP(cfg.APIURL, cfg.APIKey, cfg.APITimeout, logger)
	registry := core.NewRegistry()
	broadcaster := core.NewBroadcaster(registry, logger)
	dispatcher := core.NewDispatcher(client, registry, broadcaster, logger)
	lifecycle := core.NewLifecycle(client, registry, broadcaster, logger)

	server := transporthttp.NewServer(dispatcher, lifecycle, cfg, logger)

	logger.Info().Str("api_url", cfg.APIURL).Str("addr", cfg.Addr).Msg("relay configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// a fatal server error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
