// Package metrics provides Prometheus instrumentation for camfeed.
//
// All metrics are prefixed with "camfeed_" and registered with the default
// registry through promauto. The control server exposes them on a separate
// port with promhttp.Handler().
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Conversion and Cache Metrics
//
// Recorded by the observer returned from [NewConverterObserver]:
//   - ConversionsTotal: Counter of encoder runs by class (video/image) and status
//   - ConversionDuration: Histogram of encoder run time by class
//   - CacheHits / CacheMisses: Counters of fingerprint lookups
//
// Refreshed by the [Collector] from the cache manifest:
//   - CacheEntries: Gauge of entries in the manifest
//   - CacheSizeBytes: Gauge of their total size
//
// ## Feed Metrics
//
//   - FeedSwapsTotal: Counter of per-worker feed swaps by status
//
// ## Manifest Database Metrics
//
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//
// ## Filesystem Retry Metrics
//
// Recorded by the observer returned from [NewFilesystemObserver] when a source
// or feed file sits on a volume that returns stale file handles.
//
// ## Application Info
//
//   - AppInfo: Gauge with version, commit, and Go version labels
//   - EncoderInfo: Gauge with the probed encoder path and version
//
// # Prometheus Queries
//
// Cache hit rate:
//
//	rate(camfeed_cache_hits_total[5m]) /
//	(rate(camfeed_cache_hits_total[5m]) + rate(camfeed_cache_misses_total[5m]))
//
// P95 encode time for videos:
//
//	histogram_quantile(0.95, sum(rate(camfeed_conversion_duration_seconds_bucket{class="video"}[5m])) by (le))
package metrics
