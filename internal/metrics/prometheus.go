package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the sync pipeline

var (
	// Upstream API metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_api_calls_total",
			Help: "Total number of FPL API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fpl_api_call_duration_seconds",
			Help:    "Duration of FPL API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Store write metrics
	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_store_writes_total",
			Help: "Total number of store bulk-write calls",
		},
		[]string{"table", "status"},
	)

	RowsSynced = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fpl_rows_synced",
			Help: "Number of rows sent to the store in the last run, per table",
		},
		[]string{"table"},
	)

	StaleRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fpl_stale_rows",
			Help: "Rows present in the store but absent from the latest upstream pull, per table",
		},
		[]string{"table"},
	)

	// Sync metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_sync_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fpl_sync_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpl_last_successful_sync_timestamp",
			Help: "Timestamp of the last fully successful pipeline run",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_hits_total",
			Help: "Total number of dashboard cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_misses_total",
			Help: "Total number of dashboard cache misses",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpl_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordAPICall records an upstream API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordStoreWrite records a store bulk-write call
func RecordStoreWrite(table, status string, rows int) {
	StoreWritesTotal.WithLabelValues(table, status).Inc()
	if status == "success" {
		RowsSynced.WithLabelValues(table).Set(float64(rows))
	}
}

// RecordSync records a completed pipeline run
func RecordSync(syncType, status string, duration float64) {
	SyncRunsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordStaleRows records the staleness gap observed for a table
func RecordStaleRows(table string, count int) {
	StaleRows.WithLabelValues(table).Set(float64(count))
}

// RecordCacheHit records a dashboard cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a dashboard cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
