// Package hits classifies beacon requests into visit/visitor/bounce signals
// without any server-side session state.
//
// Two protocols are supported. Newer tracker clients send an explicit
// new-visit flag and bounce delta with each beacon; classification is then a
// pure function of those parameters. Older clients are classified through the
// legacy cache-header protocol, which abuses the browser's own HTTP cache as
// an implicit per-day visit counter: the response carries a Last-Modified
// value one second past the client's previous one, and the browser echoes it
// back as If-Modified-Since on the next beacon for the same page.
package hits

import (
	"net/http"
	"strconv"
	"time"
)

// Signals is the numeric classification attached to a stored event.
// NewSession is a permanently-zero placeholder kept for storage-schema
// compatibility; removing it would shift the positional doubles layout.
type Signals struct {
	NewVisitor int
	NewSession int
	Bounce     int
}

// Result carries the classification plus the Last-Modified response value.
// LastModified is empty on the explicit-protocol path.
type Result struct {
	Signals
	LastModified string
}

// Classify derives visit signals for one beacon request.
//
// newVisitParam and bounceParam are the raw "v" and "b" query parameters.
// When both are present the explicit protocol applies and ifModifiedSince is
// ignored. Otherwise the legacy cache-header protocol applies, with local-day
// boundaries taken from now's location.
func Classify(newVisitParam, bounceParam, ifModifiedSince string, now time.Time) Result {
	if newVisitParam != "" && bounceParam != "" {
		return classifyExplicit(newVisitParam, bounceParam)
	}
	return classifyFromCacheHeader(ifModifiedSince, now)
}

func classifyExplicit(newVisitParam, bounceParam string) Result {
	newVisitor := 0
	if newVisitParam == "1" {
		newVisitor = 1
	}

	bounce, err := strconv.Atoi(bounceParam)
	if err != nil || bounce < -1 || bounce > 1 {
		// Malformed delta degrades to the protocol default: a new visit is a
		// provisional bounce, anything else is neutral.
		bounce = newVisitor
	}

	return Result{Signals: Signals{NewVisitor: newVisitor, Bounce: bounce}}
}

func classifyFromCacheHeader(ifModifiedSince string, now time.Time) Result {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	// The echoed validator is the implicit visit counter. A malformed or
	// missing value means no prior visit today: start from midnight.
	next := midnight
	newVisitor := 1
	if prior, err := http.ParseTime(ifModifiedSince); err == nil {
		if !prior.Before(midnight) {
			next = prior.In(loc)
		}
		if sameDay(prior.In(loc), now) {
			newVisitor = 0
		}
	}
	next = next.Add(time.Second)

	visits := int(next.Sub(midnight)/time.Second) - 1
	bounce := 0
	switch visits {
	case 0:
		// First visit today is a provisional bounce.
		bounce = 1
	case 1:
		// Second visit retracts the earlier bounce.
		bounce = -1
	}
	if newVisitor == 1 {
		bounce = 1
	}

	return Result{
		Signals:      Signals{NewVisitor: newVisitor, Bounce: bounce},
		LastModified: next.UTC().Format(http.TimeFormat),
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
