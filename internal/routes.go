package internal

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/benvinegar/counterscale-sub000/api/v1"
	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

// publicCORSConfig is shared by every public endpoint. The pixel and the stats
// API are meant to be embedded cross-origin, so origins stay unrestricted.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

func newServer(app *Application, resolver *timeframe.Resolver) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName:               app.Config.AppName,
		DisableStartupMessage: app.Config.IsProduction(),
	})

	srv.Use(recover.New())
	srv.Use(cors.New(publicCORSConfig))

	collectHandler := v1.NewCollectHandler(app.Writer, app.Logger)
	statsHandler := v1.NewStatsHandler(app.Analytics, resolver, app.Logger, app.Config.MaxBreakdownRows)
	sitesHandler := v1.NewSitesHandler(app.Analytics, app.Logger, app.Config.MaxBreakdownRows)

	srv.Get("/collect", collectHandler.Handle)
	srv.Get("/api/v1/stats", statsHandler.Handle)
	srv.Get("/api/v1/sites", sitesHandler.Handle)
	srv.Get("/health", v1.HealthHandler(app.Config))
	srv.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return srv
}
