package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/benvinegar/counterscale-sub000/internal/collect"
	"github.com/benvinegar/counterscale-sub000/internal/hits"
	"github.com/benvinegar/counterscale-sub000/internal/metrics"
	"github.com/benvinegar/counterscale-sub000/internal/pkg/geoip"
	"github.com/benvinegar/counterscale-sub000/internal/pkg/useragent"
)

// CollectHandler serves the tracking pixel. Every parameter except the site id
// is optional; malformed optional input degrades to a default rather than
// rejecting the beacon.
type CollectHandler struct {
	writer *collect.Writer
	logger *slog.Logger
	now    func() time.Time
}

func NewCollectHandler(writer *collect.Writer, logger *slog.Logger) *CollectHandler {
	return &CollectHandler{writer: writer, logger: logger, now: time.Now}
}

// Handle responds to GET /collect. The response is always the 1x1 GIF with
// no-store cache semantics; only a missing site id produces an error status.
func (h *CollectHandler) Handle(c *fiber.Ctx) error {
	siteID := c.Query("sid")
	if siteID == "" {
		metrics.CollectedEvents.WithLabelValues("rejected").Inc()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing siteId",
			"code":  "MISSING_SITE_ID",
		})
	}

	result := hits.Classify(c.Query("v"), c.Query("b"), c.Get("If-Modified-Since"), h.now())
	ua := useragent.Parse(c.Get("User-Agent"))

	event := collect.Event{
		SiteID:   siteID,
		Host:     c.Query("h"),
		Path:     c.Query("p"),
		Referrer: c.Query("r"),
		Country:  h.country(c),

		UserAgent:      c.Get("User-Agent"),
		BrowserName:    ua.Browser,
		BrowserVersion: ua.BrowserVersion,
		DeviceModel:    ua.DeviceModel,
		DeviceType:     ua.DeviceType,

		UTMSource:   c.Query("us"),
		UTMMedium:   c.Query("um"),
		UTMCampaign: c.Query("uc"),
		UTMTerm:     c.Query("ut"),
		UTMContent:  c.Query("uco"),

		Signals: result.Signals,
	}

	// The pixel response must go out regardless of store health; the writer
	// already logged and counted any failure.
	if err := h.writer.Write(c.Context(), event); err == nil {
		metrics.CollectedEvents.WithLabelValues("collected").Inc()
	} else {
		metrics.CollectedEvents.WithLabelValues("dropped").Inc()
	}

	c.Set(fiber.HeaderContentType, hits.PixelContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Pragma", "no-cache")
	// Tracking-status header: no tracking identifiers are stored.
	c.Set("Tk", "N")
	if result.LastModified != "" {
		c.Set(fiber.HeaderLastModified, result.LastModified)
	}
	return c.Status(http.StatusOK).Send(hits.Pixel)
}

// country prefers the edge-supplied country header and falls back to a local
// GeoLite2 lookup of the client IP.
func (h *CollectHandler) country(c *fiber.Ctx) string {
	if code := c.Get("CF-IPCountry"); code != "" && code != "XX" {
		return code
	}
	return geoip.CountryCode(getClientIP(c))
}
