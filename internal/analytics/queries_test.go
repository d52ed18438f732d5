package analytics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvinegar/counterscale-sub000/internal/analytics"
	"github.com/benvinegar/counterscale-sub000/internal/series"
	"github.com/benvinegar/counterscale-sub000/internal/store"
	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now(loc *time.Location) time.Time {
	return p.now.In(loc)
}

// fakeStore records the last query received and plays back a canned envelope.
type fakeStore struct {
	server    *httptest.Server
	lastQuery string
	response  string
}

func newFakeStore(t *testing.T, response string) *fakeStore {
	t.Helper()
	fs := &fakeStore{response: response}
	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.lastQuery = string(body)
		w.Write([]byte(fs.response))
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func newAnalytics(t *testing.T, fs *fakeStore) *analytics.Analytics {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := store.NewClient(store.Config{QueryURL: fs.server.URL, APIToken: "t"}, logger)
	resolver := timeframe.NewResolver(&fixedTimeProvider{
		now: time.Date(2024, 4, 29, 9, 33, 2, 0, time.UTC),
	})
	return analytics.New(client, resolver, "counterscale_events", logger)
}

func TestColumnFor(t *testing.T) {
	for logical, physical := range map[string]string{
		"host":       "blob1",
		"path":       "blob3",
		"country":    "blob4",
		"siteId":     "blob8",
		"utmContent": "blob15",
		"newVisitor": "double1",
		"bounce":     "double3",
	} {
		got, err := analytics.ColumnFor(logical)
		require.NoError(t, err)
		assert.Equal(t, physical, got, logical)
	}

	_, err := analytics.ColumnFor("no_such_field")
	assert.Error(t, err)
}

func TestGetCounts(t *testing.T) {
	t.Run("folds grouped flag rows", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[
			{"count":"5","isVisitor":"1","isBounce":"1"},
			{"count":"10","isVisitor":"0","isBounce":"0"},
			{"count":"2","isVisitor":"0","isBounce":"-1"}
		]}`)
		a := newAnalytics(t, fs)

		counts, err := a.GetCounts(context.Background(), "example", "7d", "UTC", analytics.Filters{})
		require.NoError(t, err)

		assert.Equal(t, 17, counts.Views)
		assert.Equal(t, 5, counts.Visitors)
		assert.Equal(t, 3, counts.Bounces, "bounces are summed with their sign")

		assert.Contains(t, fs.lastQuery, "blob8 = 'example'")
		assert.Contains(t, fs.lastQuery, "GROUP BY isVisitor, isBounce")
		assert.Contains(t, fs.lastQuery, "FROM counterscale_events")
	})

	t.Run("missing groups default to zero", func(t *testing.T) {
		// A flag-grouped count may return 0, 1 or 2 rows for a key.
		fs := newFakeStore(t, `{"data":[{"count":"4","isVisitor":"1","isBounce":"0"}]}`)
		a := newAnalytics(t, fs)

		counts, err := a.GetCounts(context.Background(), "example", "7d", "UTC", analytics.Filters{})
		require.NoError(t, err)
		assert.Equal(t, analytics.Counts{Views: 4, Visitors: 4, Bounces: 0}, counts)
	})

	t.Run("no rows at all is a zero result", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[]}`)
		a := newAnalytics(t, fs)

		counts, err := a.GetCounts(context.Background(), "example", "7d", "UTC", analytics.Filters{})
		require.NoError(t, err)
		assert.Equal(t, analytics.Counts{}, counts)
	})

	t.Run("filters render as literal equality fragments", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[]}`)
		a := newAnalytics(t, fs)

		_, err := a.GetCounts(context.Background(), "example", "7d", "UTC", analytics.Filters{
			Path:    "/pricing",
			Country: "DE",
		})
		require.NoError(t, err)
		assert.Contains(t, fs.lastQuery, "AND blob3 = '/pricing'")
		assert.Contains(t, fs.lastQuery, "AND blob4 = 'DE'")
	})
}

func TestIntervalFilterLiterals(t *testing.T) {
	fs := newFakeStore(t, `{"data":[]}`)
	a := newAnalytics(t, fs)

	// System clock pinned to 2024-04-29 09:33:02 UTC = 05:33:02 EDT.
	_, err := a.GetCounts(context.Background(), "example", "today", "America/New_York", analytics.Filters{})
	require.NoError(t, err)
	assert.Contains(t, fs.lastQuery, "timestamp >= toDateTime('2024-04-29 04:00:00')")
	assert.Contains(t, fs.lastQuery, "timestamp < toDateTime('2024-04-29 09:33:02')")
}

func TestGetViewsGroupedByInterval(t *testing.T) {
	t.Run("parses day buckets in the requested timezone", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[
			{"count":"3","isVisitor":"1","isBounce":"0","bucket":"2024-04-25"},
			{"count":"1","isVisitor":"0","isBounce":"-1","bucket":"2024-04-26"}
		]}`)
		a := newAnalytics(t, fs)

		rows, err := a.GetViewsGroupedByInterval(context.Background(), "example", "7d", "America/New_York", analytics.Filters{})
		require.NoError(t, err)

		ny, _ := time.LoadLocation("America/New_York")
		require.Len(t, rows, 2)
		assert.Equal(t, series.Row{
			Bucket: time.Date(2024, 4, 25, 0, 0, 0, 0, ny), IsVisitor: true, Bounce: 0, Count: 3,
		}, rows[0])
		assert.Equal(t, -1, rows[1].Bounce)

		assert.Contains(t, fs.lastQuery, "formatDateTime(timestamp, '%Y-%m-%d', 'America/New_York')")
		assert.Contains(t, fs.lastQuery, "ORDER BY bucket ASC")
	})

	t.Run("single-day intervals bucket hourly", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[
			{"count":"2","isVisitor":"1","isBounce":"1","bucket":"2024-04-29 07:00:00"}
		]}`)
		a := newAnalytics(t, fs)

		rows, err := a.GetViewsGroupedByInterval(context.Background(), "example", "today", "UTC", analytics.Filters{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, time.Date(2024, 4, 29, 7, 0, 0, 0, time.UTC), rows[0].Bucket.UTC())
		assert.Contains(t, fs.lastQuery, "'%Y-%m-%d %H:00:00'")
	})

	t.Run("unparseable buckets are skipped not fatal", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[
			{"count":"2","isVisitor":"1","isBounce":"0","bucket":"garbage"},
			{"count":"1","isVisitor":"1","isBounce":"0","bucket":"2024-04-25"}
		]}`)
		a := newAnalytics(t, fs)

		rows, err := a.GetViewsGroupedByInterval(context.Background(), "example", "7d", "UTC", analytics.Filters{})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestGetCountByColumn(t *testing.T) {
	t.Run("folds duplicate visitor groups per value", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[
			{"name":"/","isVisitor":"1","count":"8"},
			{"name":"/","isVisitor":"0","count":"4"},
			{"name":"/about","isVisitor":"1","count":"5"}
		]}`)
		a := newAnalytics(t, fs)

		rows, err := a.GetCountByPath(context.Background(), "example", "7d", "UTC", analytics.Filters{}, 10)
		require.NoError(t, err)

		require.Len(t, rows, 2)
		assert.Equal(t, analytics.CountRow{Name: "/", Visitors: 8, Views: 12}, rows[0])
		assert.Equal(t, analytics.CountRow{Name: "/about", Visitors: 5, Views: 5}, rows[1])
	})

	t.Run("applies the limit after folding", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[
			{"name":"/a","isVisitor":"1","count":"9"},
			{"name":"/b","isVisitor":"1","count":"7"},
			{"name":"/c","isVisitor":"1","count":"5"}
		]}`)
		a := newAnalytics(t, fs)

		rows, err := a.GetCountByPath(context.Background(), "example", "7d", "UTC", analytics.Filters{}, 2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "/a", rows[0].Name)
	})

	t.Run("resolves the logical column", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[]}`)
		a := newAnalytics(t, fs)

		_, err := a.GetCountByBrowser(context.Background(), "example", "7d", "UTC", analytics.Filters{}, 10)
		require.NoError(t, err)
		assert.Contains(t, fs.lastQuery, "SELECT blob6 AS name")

		_, err = a.GetCountByUTM(context.Background(), "example", "campaign", "7d", "UTC", analytics.Filters{}, 10)
		require.NoError(t, err)
		assert.Contains(t, fs.lastQuery, "SELECT blob13 AS name")
	})

	t.Run("rejects unknown dimensions", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[]}`)
		a := newAnalytics(t, fs)

		_, err := a.GetCountByColumn(context.Background(), "example", "password", "7d", "UTC", analytics.Filters{}, 10)
		assert.Error(t, err)

		_, err = a.GetCountByUTM(context.Background(), "example", "audience", "7d", "UTC", analytics.Filters{}, 10)
		assert.Error(t, err)
	})
}

func TestGetCountByCountry(t *testing.T) {
	fs := newFakeStore(t, `{"data":[
		{"name":"US","isVisitor":"1","count":"6"},
		{"name":"DE","isVisitor":"1","count":"3"},
		{"name":"XX","isVisitor":"1","count":"1"}
	]}`)
	a := newAnalytics(t, fs)

	rows, err := a.GetCountByCountry(context.Background(), "example", "7d", "UTC", analytics.Filters{}, 10)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "US", rows[0].Code)
	assert.Equal(t, "United States", rows[0].Name)
	assert.Equal(t, "Germany", rows[1].Name)
	assert.Equal(t, "Xx", rows[2].Name, "unknown codes fall back to a cased echo")
}

func TestGetSitesOrderedByHits(t *testing.T) {
	fs := newFakeStore(t, `{"data":[
		{"siteId":"blog","count":"40"},
		{"siteId":"shop","count":"12"}
	]}`)
	a := newAnalytics(t, fs)

	sites, err := a.GetSitesOrderedByHits(context.Background(), "30d", "UTC", 0)
	require.NoError(t, err)

	require.Len(t, sites, 2)
	assert.Equal(t, analytics.SiteCount{SiteID: "blog", Hits: 40}, sites[0])
	assert.Contains(t, fs.lastQuery, "GROUP BY siteId ORDER BY count DESC")
}

func TestGetEarliestEvents(t *testing.T) {
	t.Run("parses both timestamps", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[{"earliest":"2024-01-05 10:30:00"}]}`)
		a := newAnalytics(t, fs)

		event, bounce, err := a.GetEarliestEvents(context.Background(), "example")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC), event)
		assert.Equal(t, event, bounce)
		assert.Contains(t, fs.lastQuery, "AND double3 = 1")
	})

	t.Run("no data yields zero times", func(t *testing.T) {
		fs := newFakeStore(t, `{"data":[]}`)
		a := newAnalytics(t, fs)

		event, bounce, err := a.GetEarliestEvents(context.Background(), "example")
		require.NoError(t, err)
		assert.True(t, event.IsZero())
		assert.True(t, bounce.IsZero())
	})
}

func TestGroupedByDayEndToEnd(t *testing.T) {
	// Data at Jan 13, 16 and 17 over a Jan 11..18 range materializes into
	// 8 ordered buckets, zero-filled elsewhere.
	fs := newFakeStore(t, `{"data":[
		{"count":"3","isVisitor":"1","isBounce":"0","bucket":"2024-01-13"},
		{"count":"2","isVisitor":"1","isBounce":"0","bucket":"2024-01-16"},
		{"count":"1","isVisitor":"1","isBounce":"0","bucket":"2024-01-17"}
	]}`)
	a := newAnalytics(t, fs)

	rows, err := a.GetViewsGroupedByInterval(context.Background(), "example", "7d", "UTC", analytics.Filters{})
	require.NoError(t, err)

	start := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)
	buckets := series.Materialize(rows, start, end, timeframe.BucketSizeDay, time.UTC)

	require.Len(t, buckets, 8)
	expected := map[int]int{2: 3, 5: 2, 6: 1}
	for i, bucket := range buckets {
		assert.Equal(t, expected[i], bucket.Views, "bucket %d", i)
	}
}
