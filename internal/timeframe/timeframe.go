// Package timeframe resolves relative interval tokens ("7d", "today",
// "yesterday") and an IANA timezone into concrete query boundaries.
package timeframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BucketSize is the granularity used when bucketing query results.
type BucketSize string

const (
	BucketSizeHour BucketSize = "hour"
	BucketSizeDay  BucketSize = "day"
)

const (
	// DefaultInterval is used when a token cannot be parsed.
	DefaultInterval = "7d"

	// SQLTimestampFormat is the literal timestamp layout the analytics store
	// accepts in filter expressions. Rendered in UTC.
	SQLTimestampFormat = "2006-01-02 15:04:05"
)

// TimeProvider abstracts the clock so interval resolution is testable.
type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider reads the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// Resolver turns interval tokens into half-open [start, end) instant ranges.
type Resolver struct {
	timeProvider TimeProvider
}

func NewResolver(timeProvider ...TimeProvider) *Resolver {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Resolver{timeProvider: provider}
}

// LoadLocation resolves an IANA timezone name, falling back to UTC for an
// empty or invalid name.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Resolve converts an interval token into [start, end) UTC instants.
//
// "Nd" is a rolling window ending now; "today" and "yesterday" are anchored
// to calendar day boundaries in loc. Unrecognized tokens resolve as
// DefaultInterval.
func (r *Resolver) Resolve(token string, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	now := r.timeProvider.Now(loc)

	switch token {
	case "today":
		return startOfDay(now, loc).UTC(), now.UTC()
	case "yesterday":
		today := startOfDay(now, loc)
		yesterday := time.Date(today.Year(), today.Month(), today.Day()-1, 0, 0, 0, 0, loc)
		return yesterday.UTC(), today.UTC()
	}

	days, ok := parseDayCount(token)
	if !ok {
		days, _ = parseDayCount(DefaultInterval)
	}
	return now.UTC().Add(-time.Duration(days) * 24 * time.Hour), now.UTC()
}

// ToSQL renders the resolved boundaries as literal timestamp strings for the
// analytics store's filter clause. The store has no parameter binding, so
// these literals are embedded directly in query text.
func (r *Resolver) ToSQL(token string, loc *time.Location) (string, string) {
	start, end := r.Resolve(token, loc)
	return start.Format(SQLTimestampFormat), end.Format(SQLTimestampFormat)
}

// Granularity derives the bucket size implied by an interval token. Single-day
// windows are bucketed hourly, everything else daily.
func Granularity(token string) BucketSize {
	switch token {
	case "today", "yesterday", "1d":
		return BucketSizeHour
	}
	return BucketSizeDay
}

// Validate reports whether token is part of the external interval vocabulary.
func Validate(token string) error {
	if token == "today" || token == "yesterday" {
		return nil
	}
	if _, ok := parseDayCount(token); ok {
		return nil
	}
	return fmt.Errorf("unknown interval token %q", token)
}

func parseDayCount(token string) (int, bool) {
	if !strings.HasSuffix(token, "d") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(token, "d"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
