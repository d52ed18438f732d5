package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/benvinegar/counterscale-sub000/internal/analytics"
	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

// SitesHandler lists the site ids seen in the store, most active first.
type SitesHandler struct {
	analytics *analytics.Analytics
	logger    *slog.Logger
	rowLimit  int
}

func NewSitesHandler(a *analytics.Analytics, logger *slog.Logger, rowLimit int) *SitesHandler {
	return &SitesHandler{analytics: a, logger: logger, rowLimit: rowLimit}
}

type siteEntry struct {
	SiteID string `json:"siteId"`
	Hits   int    `json:"hits"`
}

// Handle responds to GET /api/v1/sites.
func (h *SitesHandler) Handle(c *fiber.Ctx) error {
	interval := c.Query("interval", timeframe.DefaultInterval)
	if err := timeframe.Validate(interval); err != nil {
		interval = timeframe.DefaultInterval
	}

	sites, err := h.analytics.GetSitesOrderedByHits(c.Context(), interval, c.Query("tz"), h.rowLimit)
	if err != nil {
		h.logger.Error("Sites query failed", slog.Any("error", err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{
			"error": "Analytics backend unavailable",
			"code":  "STORE_ERROR",
		})
	}

	entries := make([]siteEntry, len(sites))
	for i, site := range sites {
		entries[i] = siteEntry{SiteID: site.SiteID, Hits: site.Hits}
	}
	return c.JSON(fiber.Map{"sites": entries, "interval": interval})
}
