// Package metrics provides Prometheus metrics for the Bag of Holding backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boh_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boh_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	UploadsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boh_uploads_rate_limited_total",
			Help: "Helvault uploads rejected by the upload rate limiter",
		},
	)

	// Import Metrics
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boh_imports_total",
			Help: "Total number of Helvault imports",
		},
		[]string{"result"}, // "success" or "failed"
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boh_import_duration_seconds",
			Help:    "Time taken to import a Helvault export",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ImportSkippedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boh_import_skipped_rows_total",
			Help: "Copy rows skipped during import",
		},
		[]string{"view", "reason"}, // view: "inventory" or "aggregate"
	)

	ImportedCopies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boh_imported_copies_total",
			Help: "Total physical copies seen across all imports",
		},
	)

	SessionsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boh_sessions_loaded",
			Help: "Number of import sessions held in memory",
		},
	)

	// Matching Metrics
	MatchRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boh_match_requests_total",
			Help: "Total number of decklist match requests",
		},
	)

	CardsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boh_cards_requested_total",
			Help: "Copies requested across all matched decklists",
		},
	)

	CardsMissing = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boh_cards_missing_total",
			Help: "Copies that could not be allocated from inventory",
		},
	)

	// Worker Metrics
	WorkerPendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boh_worker_pending_requests",
			Help: "Requests waiting for a response from the import worker",
		},
	)

	WorkerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boh_worker_requests_total",
			Help: "Requests handled by the import worker",
		},
		[]string{"kind", "result"}, // result: "success", "failed", "panic"
	)

	WatcherImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boh_watcher_imports_total",
			Help: "Exports imported from the watch directory",
		},
		[]string{"result"},
	)
)
