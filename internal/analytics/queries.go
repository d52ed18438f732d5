// Package analytics composes read-only SELECT queries against the external
// columnar store and decodes the results into typed tuples.
//
// The store accepts no bind parameters, so every query is assembled by string
// interpolation. That is an accepted, documented property of this backend
// (it executes only read queries), and all interpolation is confined to this
// package so the surface stays auditable.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benvinegar/counterscale-sub000/internal/metrics"
	"github.com/benvinegar/counterscale-sub000/internal/series"
	"github.com/benvinegar/counterscale-sub000/internal/store"
	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

// Analytics issues per-metric queries. The per-metric methods are independent
// and safe to call concurrently; dashboard rendering fans several of them out
// in parallel.
type Analytics struct {
	store    *store.Client
	resolver *timeframe.Resolver
	dataset  string
	logger   *slog.Logger
}

func New(client *store.Client, resolver *timeframe.Resolver, dataset string, logger *slog.Logger) *Analytics {
	return &Analytics{
		store:    client,
		resolver: resolver,
		dataset:  dataset,
		logger:   logger,
	}
}

// Filters are optional equality constraints on breakdown dimensions,
// embedded as literal fragments in the query text.
type Filters struct {
	Path        string
	Referrer    string
	BrowserName string
	Country     string
	DeviceType  string
}

func (f Filters) clause() string {
	var sb strings.Builder
	for _, part := range []struct {
		logical string
		value   string
	}{
		{"path", f.Path},
		{"referrer", f.Referrer},
		{"browserName", f.BrowserName},
		{"country", f.Country},
		{"deviceType", f.DeviceType},
	} {
		if part.value != "" {
			fmt.Fprintf(&sb, " AND %s = '%s'", mustColumn(part.logical), part.value)
		}
	}
	return sb.String()
}

// Counts are the headline totals for a site over an interval.
type Counts struct {
	Views    int
	Visitors int
	Bounces  int
}

// CountRow is one breakdown entry: a dimension value with its visitor and
// view totals.
type CountRow struct {
	Name     string
	Visitors int
	Views    int
}

// SiteCount pairs a site id with its total hits.
type SiteCount struct {
	SiteID string
	Hits   int
}

// whereRange renders the half-open interval filter plus the site constraint.
func (a *Analytics) whereRange(siteID, interval string, loc *time.Location, f Filters) string {
	start, end := a.resolver.ToSQL(interval, loc)
	return fmt.Sprintf("timestamp >= toDateTime('%s') AND timestamp < toDateTime('%s') AND %s = '%s'%s",
		start, end, mustColumn("siteId"), siteID, f.clause())
}

// GetCounts returns total views, visitors and net bounces for a site.
//
// The query groups by the visitor and bounce flags; the store may return any
// subset of the possible groups, so every group defaults to zero and is
// folded rather than positionally indexed.
func (a *Analytics) GetCounts(ctx context.Context, siteID, interval, tz string, f Filters) (Counts, error) {
	loc := timeframe.LoadLocation(tz)
	query := fmt.Sprintf(
		"SELECT SUM(_sample_interval) AS count, %s AS isVisitor, %s AS isBounce FROM %s WHERE %s GROUP BY isVisitor, isBounce",
		mustColumn("newVisitor"), mustColumn("bounce"), a.dataset,
		a.whereRange(siteID, interval, loc, f))

	rows, err := a.query(ctx, "counts", query)
	if err != nil {
		return Counts{}, err
	}

	var counts Counts
	for _, row := range rows {
		count := rowInt(row, "count")
		counts.Views += count
		if rowInt(row, "isVisitor") == 1 {
			counts.Visitors += count
		}
		counts.Bounces += rowInt(row, "isBounce") * count
	}
	return counts, nil
}

// GetViewsGroupedByInterval returns raw per-bucket rows for the series
// materializer. Bucket boundaries are computed by the store in tz so that
// day buckets land on the caller's local midnights.
func (a *Analytics) GetViewsGroupedByInterval(ctx context.Context, siteID, interval, tz string, f Filters) ([]series.Row, error) {
	loc := timeframe.LoadLocation(tz)
	granularity := timeframe.Granularity(interval)

	storeFormat, goLayout := bucketFormats(granularity)
	bucketExpr := fmt.Sprintf("formatDateTime(timestamp, '%s', '%s')", storeFormat, loc.String())

	query := fmt.Sprintf(
		"SELECT SUM(_sample_interval) AS count, %s AS isVisitor, %s AS isBounce, %s AS bucket FROM %s WHERE %s GROUP BY bucket, isVisitor, isBounce ORDER BY bucket ASC",
		mustColumn("newVisitor"), mustColumn("bounce"), bucketExpr, a.dataset,
		a.whereRange(siteID, interval, loc, f))

	rows, err := a.query(ctx, "views_by_interval", query)
	if err != nil {
		return nil, err
	}

	result := make([]series.Row, 0, len(rows))
	for _, row := range rows {
		bucket, err := time.ParseInLocation(goLayout, rowString(row, "bucket"), loc)
		if err != nil {
			a.logger.Warn("Skipping row with unparseable bucket",
				slog.String("bucket", rowString(row, "bucket")),
				slog.Any("error", err))
			continue
		}
		result = append(result, series.Row{
			Bucket:    bucket,
			IsVisitor: rowInt(row, "isVisitor") == 1,
			Bounce:    rowInt(row, "isBounce"),
			Count:     rowInt(row, "count"),
		})
	}
	return result, nil
}

// GetCountByColumn returns a per-dimension breakdown ordered by views.
//
// The underlying rows arrive grouped by (value, isVisitor); a value may
// surface with one group, both, or neither, so rows are folded by value with
// missing groups defaulting to zero.
func (a *Analytics) GetCountByColumn(ctx context.Context, siteID, logical, interval, tz string, f Filters, limit int) ([]CountRow, error) {
	column, err := ColumnFor(logical)
	if err != nil {
		return nil, err
	}
	loc := timeframe.LoadLocation(tz)

	query := fmt.Sprintf(
		"SELECT %s AS name, %s AS isVisitor, SUM(_sample_interval) AS count FROM %s WHERE %s GROUP BY name, isVisitor ORDER BY count DESC",
		column, mustColumn("newVisitor"), a.dataset,
		a.whereRange(siteID, interval, loc, f))

	rows, err := a.query(ctx, "count_by_"+logical, query)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(rows))
	var result []CountRow
	for _, row := range rows {
		name := rowString(row, "name")
		i, seen := index[name]
		if !seen {
			i = len(result)
			index[name] = i
			result = append(result, CountRow{Name: name})
		}
		count := rowInt(row, "count")
		result[i].Views += count
		if rowInt(row, "isVisitor") == 1 {
			result[i].Visitors += count
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Views > result[j].Views })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Breakdown convenience wrappers over GetCountByColumn.

func (a *Analytics) GetCountByPath(ctx context.Context, siteID, interval, tz string, f Filters, limit int) ([]CountRow, error) {
	return a.GetCountByColumn(ctx, siteID, "path", interval, tz, f, limit)
}

func (a *Analytics) GetCountByReferrer(ctx context.Context, siteID, interval, tz string, f Filters, limit int) ([]CountRow, error) {
	return a.GetCountByColumn(ctx, siteID, "referrer", interval, tz, f, limit)
}

func (a *Analytics) GetCountByBrowser(ctx context.Context, siteID, interval, tz string, f Filters, limit int) ([]CountRow, error) {
	return a.GetCountByColumn(ctx, siteID, "browserName", interval, tz, f, limit)
}

func (a *Analytics) GetCountByDevice(ctx context.Context, siteID, interval, tz string, f Filters, limit int) ([]CountRow, error) {
	return a.GetCountByColumn(ctx, siteID, "deviceType", interval, tz, f, limit)
}

// GetCountByCountry labels each ISO code with its English country name.
func (a *Analytics) GetCountByCountry(ctx context.Context, siteID, interval, tz string, f Filters, limit int) ([]CountryCount, error) {
	rows, err := a.GetCountByColumn(ctx, siteID, "country", interval, tz, f, limit)
	if err != nil {
		return nil, err
	}
	result := make([]CountryCount, len(rows))
	for i, row := range rows {
		result[i] = CountryCount{
			Code:     row.Name,
			Name:     CountryName(row.Name),
			Visitors: row.Visitors,
			Views:    row.Views,
		}
	}
	return result, nil
}

var utmColumns = map[string]string{
	"source":   "utmSource",
	"medium":   "utmMedium",
	"campaign": "utmCampaign",
	"term":     "utmTerm",
	"content":  "utmContent",
}

// GetCountByUTM breaks down by one of the five UTM dimensions
// (source, medium, campaign, term, content).
func (a *Analytics) GetCountByUTM(ctx context.Context, siteID, dimension, interval, tz string, f Filters, limit int) ([]CountRow, error) {
	logical, ok := utmColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown UTM dimension %q", dimension)
	}
	return a.GetCountByColumn(ctx, siteID, logical, interval, tz, f, limit)
}

// GetSitesOrderedByHits lists site ids by total hit count over the interval.
func (a *Analytics) GetSitesOrderedByHits(ctx context.Context, interval, tz string, limit int) ([]SiteCount, error) {
	loc := timeframe.LoadLocation(tz)
	start, end := a.resolver.ToSQL(interval, loc)

	query := fmt.Sprintf(
		"SELECT %s AS siteId, SUM(_sample_interval) AS count FROM %s WHERE timestamp >= toDateTime('%s') AND timestamp < toDateTime('%s') GROUP BY siteId ORDER BY count DESC",
		mustColumn("siteId"), a.dataset, start, end)

	rows, err := a.query(ctx, "sites_by_hits", query)
	if err != nil {
		return nil, err
	}

	result := make([]SiteCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, SiteCount{
			SiteID: rowString(row, "siteId"),
			Hits:   rowInt(row, "count"),
		})
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetEarliestEvents returns the timestamps of the site's first recorded event
// and first recorded bounce. A zero time means no matching event exists.
func (a *Analytics) GetEarliestEvents(ctx context.Context, siteID string) (earliestEvent, earliestBounce time.Time, err error) {
	base := fmt.Sprintf("SELECT MIN(timestamp) AS earliest FROM %s WHERE %s = '%s'",
		a.dataset, mustColumn("siteId"), siteID)

	earliestEvent, err = a.earliest(ctx, "earliest_event", base)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	earliestBounce, err = a.earliest(ctx, "earliest_bounce",
		base+fmt.Sprintf(" AND %s = 1", mustColumn("bounce")))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return earliestEvent, earliestBounce, nil
}

func (a *Analytics) earliest(ctx context.Context, metric, query string) (time.Time, error) {
	rows, err := a.query(ctx, metric, query)
	if err != nil {
		return time.Time{}, err
	}
	if len(rows) == 0 {
		return time.Time{}, nil
	}
	value := rowString(rows[0], "earliest")
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(timeframe.SQLTimestampFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable earliest timestamp %q: %w", value, err)
	}
	return ts, nil
}

func (a *Analytics) query(ctx context.Context, metric, query string) ([]store.Row, error) {
	if a.store == nil {
		return nil, fmt.Errorf("analytics store not configured")
	}
	timer := time.Now()
	rows, err := a.store.Query(ctx, query)
	metrics.QueryDuration.WithLabelValues(metric).Observe(time.Since(timer).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", metric, err)
	}
	return rows, nil
}

func bucketFormats(size timeframe.BucketSize) (storeFormat, goLayout string) {
	if size == timeframe.BucketSizeHour {
		return "%Y-%m-%d %H:00:00", "2006-01-02 15:00:00"
	}
	return "%Y-%m-%d", "2006-01-02"
}

// rowString reads a column from a loosely-typed row, tolerating the store's
// habit of rendering values as either strings or numbers.
func rowString(row store.Row, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func rowInt(row store.Row, key string) int {
	switch v := row[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}
