// Package collect maps classified beacon events into the analytics store's
// positional record layout and performs the append.
package collect

import (
	"context"
	"log/slog"

	"github.com/benvinegar/counterscale-sub000/internal/hits"
	"github.com/benvinegar/counterscale-sub000/internal/metrics"
	"github.com/benvinegar/counterscale-sub000/internal/store"
)

// Event is one fully-assembled pageview beacon, ready to be written.
type Event struct {
	SiteID   string
	Host     string
	Path     string
	Referrer string
	Country  string

	UserAgent      string
	BrowserName    string
	BrowserVersion string
	DeviceModel    string
	DeviceType     string

	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string

	Signals hits.Signals
}

// Writer appends events to the analytics store.
type Writer struct {
	store  *store.Client
	logger *slog.Logger
}

func NewWriter(client *store.Client, logger *slog.Logger) *Writer {
	return &Writer{store: client, logger: logger}
}

// Write appends one event. When no store is configured the would-be record is
// logged and the call succeeds; a beacon response must never depend on the
// store being reachable.
func (w *Writer) Write(ctx context.Context, event Event) error {
	point := dataPoint(event)

	if w.store == nil {
		w.logger.Info("Analytics store not configured, skipping write",
			slog.String("site_id", event.SiteID),
			slog.String("path", event.Path),
			slog.Any("doubles", point.Doubles))
		return nil
	}

	if err := w.store.WriteDataPoint(ctx, point); err != nil {
		metrics.WriteFailures.Inc()
		w.logger.Error("Failed to write event",
			slog.String("site_id", event.SiteID),
			slog.Any("error", err))
		return err
	}
	return nil
}

// dataPoint lays the event out as the store's fixed blob/double record.
//
// The positions below are a frozen, versioned contract: the store has hard
// limits on field count and historical rows cannot be rewritten, so new
// fields may only ever be appended, never inserted or reordered.
//
//	blob1  host            blob9   browser version
//	blob2  user agent      blob10  device type
//	blob3  path            blob11  utm source
//	blob4  country         blob12  utm medium
//	blob5  referrer        blob13  utm campaign
//	blob6  browser name    blob14  utm term
//	blob7  device model    blob15  utm content
//	blob8  site id
//
//	double1 new visitor
//	double2 new session (always 0, retained placeholder)
//	double3 bounce
func dataPoint(event Event) store.DataPoint {
	return store.DataPoint{
		Indexes: []string{event.SiteID},
		Blobs: []string{
			event.Host,
			event.UserAgent,
			event.Path,
			event.Country,
			event.Referrer,
			event.BrowserName,
			event.DeviceModel,
			event.SiteID,
			event.BrowserVersion,
			event.DeviceType,
			event.UTMSource,
			event.UTMMedium,
			event.UTMCampaign,
			event.UTMTerm,
			event.UTMContent,
		},
		Doubles: []float64{
			float64(event.Signals.NewVisitor),
			float64(event.Signals.NewSession),
			float64(event.Signals.Bounce),
		},
	}
}
