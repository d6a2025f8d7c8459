package metrics

import (
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/filesystem"
)

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem metrics
// into the Prometheus counters and histograms declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetryDuration(retryOp, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(retryOp, volume).Observe(durationSeconds)
}

func (o *filesystemObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volume).Inc()
}

// converterObserver implements converter.Observer.
type converterObserver struct{}

// NewConverterObserver creates an observer that records cache and encoder metrics.
func NewConverterObserver() converter.Observer {
	return &converterObserver{}
}

func (o *converterObserver) ObserveCacheHit(converter.Entry) {
	CacheHits.Inc()
}

func (o *converterObserver) ObserveCacheMiss(converter.Entry) {
	CacheMisses.Inc()
}

func (o *converterObserver) ObserveConversion(entry converter.Entry, duration time.Duration, err error) {
	class := string(entry.Class)
	status := "success"
	if err != nil {
		status = "error"
	}
	ConversionsTotal.WithLabelValues(class, status).Inc()
	ConversionDuration.WithLabelValues(class).Observe(duration.Seconds())
}
