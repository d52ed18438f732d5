// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollectedEvents counts beacon requests by outcome
	// (collected, rejected, dropped).
	CollectedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counterscale_collect_events_total",
			Help: "Total number of beacon requests received",
		},
		[]string{"status"},
	)

	// WriteFailures counts failed appends to the analytics store.
	WriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "counterscale_store_write_failures_total",
			Help: "Total number of failed analytics store writes",
		},
	)

	// QueryDuration observes analytics query round-trip time per metric.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "counterscale_query_duration_seconds",
			Help:    "Duration of analytics store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"metric"},
	)
)
