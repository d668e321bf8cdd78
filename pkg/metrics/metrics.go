package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Synchronization metrics
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of synchronization runs",
		},
		[]string{"kind", "mode", "status"},
	)

	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of synchronization runs in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
		},
		[]string{"kind", "mode"},
	)

	SyncRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_total",
			Help: "Total number of records processed by synchronization runs",
		},
		[]string{"kind", "status"},
	)

	SyncBusyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_busy_total",
			Help: "Trigger requests rejected because a run was already in flight",
		},
		[]string{"kind", "mode"},
	)
)

// Document store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"operation", "index", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "index"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordSyncRun records the outcome of one synchronization run.
func RecordSyncRun(kind, mode, status string, duration time.Duration) {
	SyncRunsTotal.WithLabelValues(kind, mode, status).Inc()
	SyncRunDuration.WithLabelValues(kind, mode).Observe(duration.Seconds())
}

// RecordSyncRecord records one processed (or skipped) record.
func RecordSyncRecord(kind, status string) {
	SyncRecordsTotal.WithLabelValues(kind, status).Inc()
}

// RecordSyncBusy records a rejected trigger request.
func RecordSyncBusy(kind, mode string) {
	SyncBusyTotal.WithLabelValues(kind, mode).Inc()
}

// RecordStoreOperation records a document store call.
func RecordStoreOperation(operation, index, status string, duration time.Duration) {
	StoreOperationsTotal.WithLabelValues(operation, index, status).Inc()
	StoreOperationDuration.WithLabelValues(operation, index).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// StatusFromError maps an error to a metric status label.
func StatusFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
