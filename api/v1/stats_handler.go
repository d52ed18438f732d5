package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/benvinegar/counterscale-sub000/internal/analytics"
	"github.com/benvinegar/counterscale-sub000/internal/pkg/async"
	"github.com/benvinegar/counterscale-sub000/internal/series"
	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

// StatsHandler serves the dashboard stats JSON: headline counts, the bucketed
// time series and the per-dimension breakdowns, gathered with one concurrent
// fan-out over the analytics store.
type StatsHandler struct {
	analytics *analytics.Analytics
	resolver  *timeframe.Resolver
	logger    *slog.Logger
	rowLimit  int
}

func NewStatsHandler(a *analytics.Analytics, resolver *timeframe.Resolver, logger *slog.Logger, rowLimit int) *StatsHandler {
	return &StatsHandler{analytics: a, resolver: resolver, logger: logger, rowLimit: rowLimit}
}

type seriesPoint struct {
	Time     time.Time `json:"time"`
	Views    int       `json:"views"`
	Visitors int       `json:"visitors"`
	Bounces  int       `json:"bounces"`
}

type countEntry struct {
	Name     string `json:"name"`
	Visitors int    `json:"visitors"`
	Views    int    `json:"views"`
}

type countryEntry struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Visitors int    `json:"visitors"`
	Views    int    `json:"views"`
}

type statsResponse struct {
	SiteID    string           `json:"siteId"`
	Interval  string           `json:"interval"`
	Timezone  string           `json:"timezone"`
	Counts    analytics.Counts `json:"counts"`
	Series    []seriesPoint    `json:"series"`
	Paths     []countEntry     `json:"paths"`
	Referrers []countEntry     `json:"referrers"`
	Browsers  []countEntry     `json:"browsers"`
	Devices   []countEntry     `json:"devices"`
	Countries []countryEntry   `json:"countries"`
}

// Handle responds to GET /api/v1/stats.
func (h *StatsHandler) Handle(c *fiber.Ctx) error {
	siteID := c.Query("sid")
	if siteID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing siteId",
			"code":  "MISSING_SITE_ID",
		})
	}

	interval := c.Query("interval", timeframe.DefaultInterval)
	if err := timeframe.Validate(interval); err != nil {
		interval = timeframe.DefaultInterval
	}
	tz := c.Query("tz")
	filters := analytics.Filters{
		Path:        c.Query("path"),
		Referrer:    c.Query("referrer"),
		BrowserName: c.Query("browser"),
		Country:     c.Query("country"),
		DeviceType:  c.Query("deviceType"),
	}

	results := async.Run(c.Context(), []async.Task{
		{Name: "counts", Execute: func(ctx context.Context) (any, error) {
			return h.analytics.GetCounts(ctx, siteID, interval, tz, filters)
		}},
		{Name: "series", Execute: func(ctx context.Context) (any, error) {
			return h.loadSeries(ctx, siteID, interval, tz, filters)
		}},
		{Name: "paths", Execute: func(ctx context.Context) (any, error) {
			return h.analytics.GetCountByPath(ctx, siteID, interval, tz, filters, h.rowLimit)
		}},
		{Name: "referrers", Execute: func(ctx context.Context) (any, error) {
			return h.analytics.GetCountByReferrer(ctx, siteID, interval, tz, filters, h.rowLimit)
		}},
		{Name: "browsers", Execute: func(ctx context.Context) (any, error) {
			return h.analytics.GetCountByBrowser(ctx, siteID, interval, tz, filters, h.rowLimit)
		}},
		{Name: "devices", Execute: func(ctx context.Context) (any, error) {
			return h.analytics.GetCountByDevice(ctx, siteID, interval, tz, filters, h.rowLimit)
		}},
		{Name: "countries", Execute: func(ctx context.Context) (any, error) {
			return h.analytics.GetCountByCountry(ctx, siteID, interval, tz, filters, h.rowLimit)
		}},
	})

	for name, result := range results {
		if result.Err != nil {
			h.logger.Error("Stats query failed",
				slog.String("metric", name),
				slog.String("site_id", siteID),
				slog.Any("error", result.Err))
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{
				"error": "Analytics backend unavailable",
				"code":  "STORE_ERROR",
			})
		}
	}

	response := statsResponse{
		SiteID:    siteID,
		Interval:  interval,
		Timezone:  timeframe.LoadLocation(tz).String(),
		Counts:    results["counts"].Data.(analytics.Counts),
		Series:    results["series"].Data.([]seriesPoint),
		Paths:     toEntries(results["paths"].Data.([]analytics.CountRow)),
		Referrers: toEntries(results["referrers"].Data.([]analytics.CountRow)),
		Browsers:  toEntries(results["browsers"].Data.([]analytics.CountRow)),
		Devices:   toEntries(results["devices"].Data.([]analytics.CountRow)),
		Countries: toCountryEntries(results["countries"].Data.([]analytics.CountryCount)),
	}
	return c.JSON(response)
}

// loadSeries fetches the grouped rows and materializes them into the
// zero-filled, bounce-corrected series the dashboard charts.
func (h *StatsHandler) loadSeries(ctx context.Context, siteID, interval, tz string, filters analytics.Filters) ([]seriesPoint, error) {
	rows, err := h.analytics.GetViewsGroupedByInterval(ctx, siteID, interval, tz, filters)
	if err != nil {
		return nil, err
	}

	loc := timeframe.LoadLocation(tz)
	start, end := h.resolver.Resolve(interval, loc)
	buckets := series.CorrectBounces(series.Materialize(rows, start, end, timeframe.Granularity(interval), loc))

	points := make([]seriesPoint, len(buckets))
	for i, bucket := range buckets {
		points[i] = seriesPoint{
			Time:     bucket.Time,
			Views:    bucket.Views,
			Visitors: bucket.Visitors,
			Bounces:  bucket.Bounces,
		}
	}
	return points, nil
}

func toEntries(rows []analytics.CountRow) []countEntry {
	entries := make([]countEntry, len(rows))
	for i, row := range rows {
		entries[i] = countEntry{Name: row.Name, Visitors: row.Visitors, Views: row.Views}
	}
	return entries
}

func toCountryEntries(rows []analytics.CountryCount) []countryEntry {
	entries := make([]countryEntry, len(rows))
	for i, row := range rows {
		entries[i] = countryEntry{Code: row.Code, Name: row.Name, Visitors: row.Visitors, Views: row.Views}
	}
	return entries
}
