// Package internal wires configuration, the store client and the HTTP surface
// into a runnable application.
package internal

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/benvinegar/counterscale-sub000/internal/analytics"
	"github.com/benvinegar/counterscale-sub000/internal/collect"
	"github.com/benvinegar/counterscale-sub000/internal/config"
	"github.com/benvinegar/counterscale-sub000/internal/logger"
	"github.com/benvinegar/counterscale-sub000/internal/pkg/geoip"
	"github.com/benvinegar/counterscale-sub000/internal/store"
	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

// Application bundles the fiber server with the components behind it.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Fiber     *fiber.App
	Analytics *analytics.Analytics
	Writer    *collect.Writer
}

// NewApp builds the application from the process configuration.
func NewApp() *Application {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig builds the application from an explicit configuration.
// A missing store configuration is allowed: collection degrades to logged
// no-ops and queries report the store as unavailable.
func NewAppWithConfig(cfg *config.Config) *Application {
	log := logger.New(cfg)

	geoip.Init(cfg.GeoDBPath, log)

	client := store.NewClient(store.Config{
		QueryURL: cfg.StoreQueryURL,
		WriteURL: cfg.StoreWriteURL,
		APIToken: cfg.StoreAPIToken,
	}, log)
	if client == nil {
		log.Warn("Analytics store not configured, events will not be persisted")
	}

	resolver := timeframe.NewResolver()

	app := &Application{
		Config:    cfg,
		Logger:    log,
		Analytics: analytics.New(client, resolver, cfg.StoreDataset, log),
		Writer:    collect.NewWriter(client, log),
	}
	app.Fiber = newServer(app, resolver)
	return app
}

// Start begins serving on the configured port and blocks until shutdown.
func (a *Application) Start() error {
	a.Logger.Info("Starting HTTP server",
		slog.String("app", a.Config.AppName),
		slog.String("port", a.Config.AppPort))
	return a.Fiber.Listen(":" + a.Config.AppPort)
}

// Shutdown stops the server gracefully and releases held resources.
func (a *Application) Shutdown(ctx context.Context) error {
	defer geoip.Close()
	return a.Fiber.ShutdownWithContext(ctx)
}
