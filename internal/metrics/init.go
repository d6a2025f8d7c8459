package metrics

import "camfeed/internal/mediatypes"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Conversions per source class ---
	for _, class := range []mediatypes.FormatClass{mediatypes.ConvertibleVideo, mediatypes.ConvertibleImage} {
		ConversionsTotal.WithLabelValues(string(class), "success")
		ConversionsTotal.WithLabelValues(string(class), "error")
		ConversionDuration.WithLabelValues(string(class))
	}

	// --- Feed swaps ---
	for _, status := range []string{"success", "error_not_found", "error_unsupported", "error_conversion", "error_publish"} {
		FeedSwapsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "client_gone", "timeout", "error"} {
		FeedStreamsTotal.WithLabelValues(status)
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	volumes := []string{"videos", "cache", "unknown"}
	for _, op := range []string{"stat", "open"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Manifest queries ---
	for _, op := range []string{"initialize_schema", "record_conversion", "record_hit", "list", "stats", "reset", "prune"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
