package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camfeed_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camfeed_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_conversions_total",
			Help: "Total number of encoder runs by source class and status",
		},
		[]string{"class", "status"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camfeed_conversion_duration_seconds",
			Help:    "Encoder run duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"class"},
	)
)

// Cache metrics
var (
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camfeed_cache_hits_total",
			Help: "Total number of conversion cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camfeed_cache_misses_total",
			Help: "Total number of conversion cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camfeed_cache_entries",
			Help: "Number of entries recorded in the cache manifest",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camfeed_cache_size_bytes",
			Help: "Total size of entries recorded in the cache manifest",
		},
	)
)

// Feed metrics
var (
	FeedSwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_feed_swaps_total",
			Help: "Total number of per-worker feed swaps by status",
		},
		[]string{"status"},
	)

	FeedStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_feed_streams_total",
			Help: "Total number of feed downloads by status",
		},
		[]string{"status"},
	)

	FeedStreamBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camfeed_feed_stream_bytes_total",
			Help: "Total bytes of feed files streamed to clients",
		},
	)
)

// Manifest database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_db_queries_total",
			Help: "Total number of manifest database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camfeed_db_query_duration_seconds",
			Help:    "Manifest database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camfeed_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camfeed_filesystem_retry_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camfeed_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)

	EncoderInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camfeed_encoder_info",
			Help: "Encoder found by the startup probe; 0 when unavailable",
		},
		[]string{"path", "version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// SetEncoderInfo records the outcome of the encoder probe.
func SetEncoderInfo(path, version string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	EncoderInfo.WithLabelValues(path, version).Set(v)
}
