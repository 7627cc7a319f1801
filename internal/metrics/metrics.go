// Package metrics provides Prometheus instrumentation for the viewlog generator.
//
// The pipeline registers these at package init via promauto and exposes them
// at GET /metrics (Prometheus scrape endpoint) through Handler().
//
// Standard metrics exposed automatically by prometheus/client_golang:
//   - go_goroutines, go_gc_duration_seconds, etc. (Go runtime)
//   - process_cpu_seconds_total, process_open_fds, etc. (process)
//
// viewlog-specific metrics registered here:
//
//	viewlog_events_emitted_total     — counter: events written, by category
//	viewlog_events_skipped_total     — counter: timestamps skipped, by reason
//	viewlog_sink_flush_total         — counter: hour-bucket flushes (stream: published records), by backend
//	viewlog_sink_errors_total        — counter: sink I/O failures, by backend
//	viewlog_pool_size                — gauge: current user pool size
//	viewlog_pipeline_lag_seconds     — histogram: time spent waiting on the rate limiter per emitted event
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Gauges ────────────────────────────────────────────────────────────────────

// PoolSize is the current number of users held in the User Pool.
var PoolSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "viewlog_pool_size",
	Help: "Number of users currently held in the user pool.",
})

// ── Counters ──────────────────────────────────────────────────────────────────

// EventsEmitted counts events written to a sink, by event category name.
var EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "viewlog_events_emitted_total",
	Help: "Total events emitted, by category.",
}, []string{"category"})

// EventsSkipped counts timestamps for which no event was emitted, by reason.
var EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "viewlog_events_skipped_total",
	Help: "Total timestamps skipped without emitting an event, by reason.",
}, []string{"reason"})

// SinkFlushes counts hour-bucket flushes, by sink backend. The stream
// backend has no buckets and counts each published record instead.
var SinkFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "viewlog_sink_flush_total",
	Help: "Total hour-bucket flushes, by backend.",
}, []string{"backend"})

// SinkErrors counts sink I/O failures, by backend.
var SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "viewlog_sink_errors_total",
	Help: "Total sink write/upload/publish failures, by backend.",
}, []string{"backend"})

// ── Histograms ────────────────────────────────────────────────────────────────

// PipelineLag records, in both batch and streaming mode, how long each
// emitted event waited on the rate limiter. Nothing is observed when
// target_mps is 0 (no limiter).
var PipelineLag = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "viewlog_pipeline_lag_seconds",
	Help:    "Observed scheduling lag per pipeline iteration, in seconds.",
	Buckets: prometheus.DefBuckets,
})

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ── Init (registry-scoped) ────────────────────────────────────────────────────

// Init registers a fresh, isolated set of viewlog metrics with reg. This is
// provided for tests — pass prometheus.NewRegistry() to avoid colliding with
// the global default registry. In production all metrics are registered via
// promauto to prometheus.DefaultRegisterer at package init time.
func Init(reg prometheus.Registerer) {
	poolSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viewlog_pool_size",
		Help: "Number of users currently held in the user pool.",
	})

	eventsEmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewlog_events_emitted_total",
		Help: "Total events emitted, by category.",
	}, []string{"category"})

	eventsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewlog_events_skipped_total",
		Help: "Total timestamps skipped without emitting an event, by reason.",
	}, []string{"reason"})

	sinkFlushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewlog_sink_flush_total",
		Help: "Total hour-bucket flushes, by backend.",
	}, []string{"backend"})

	sinkErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewlog_sink_errors_total",
		Help: "Total sink write/upload/publish failures, by backend.",
	}, []string{"backend"})

	pipelineLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewlog_pipeline_lag_seconds",
		Help:    "Observed scheduling lag per pipeline iteration, in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(
		poolSize,
		eventsEmitted,
		eventsSkipped,
		sinkFlushes,
		sinkErrors,
		pipelineLag,
	)
}
