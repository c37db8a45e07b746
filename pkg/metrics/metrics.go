// Package metrics exposes the few internal counters worth scraping from a
// long-running engagic process: jobs processed/failed by type, and
// meetings enqueued by vendor. Grounded on vjache-cie's cmd/cie/index.go
// promhttp.Handler() wiring, generalized from ad-hoc HTTP metrics into a
// package so every component that wants a counter imports one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// JobsProcessed counts completed jobs by job_type.
var JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engagic",
	Name:      "jobs_processed_total",
	Help:      "Total number of queue jobs that completed successfully, by job type.",
}, []string{"job_type"})

// JobsFailed counts terminally failed jobs by job_type.
var JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engagic",
	Name:      "jobs_failed_total",
	Help:      "Total number of queue jobs that failed terminally, by job type.",
}, []string{"job_type"})

// MeetingsEnqueued counts meeting jobs enqueued by vendor, from the
// Conductor's poll cycle.
var MeetingsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engagic",
	Name:      "meetings_enqueued_total",
	Help:      "Total number of meeting jobs enqueued by the conductor, by vendor.",
}, []string{"vendor"})
