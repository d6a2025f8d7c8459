package metrics

import (
	"errors"
	"testing"
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/mediatypes"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatal("observer is not a metric")
	}
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("failed to read histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestConverterObserver(t *testing.T) {
	obs := NewConverterObserver()
	video := converter.Entry{Class: mediatypes.ConvertibleVideo}
	image := converter.Entry{Class: mediatypes.ConvertibleImage}

	hits := counterValue(t, CacheHits)
	misses := counterValue(t, CacheMisses)
	videoOK := counterValue(t, ConversionsTotal.WithLabelValues("video", "success"))
	imageErr := counterValue(t, ConversionsTotal.WithLabelValues("image", "error"))
	videoObserved := histogramCount(t, ConversionDuration.WithLabelValues("video"))

	obs.ObserveCacheHit(video)
	obs.ObserveCacheMiss(video)
	obs.ObserveConversion(video, 2*time.Second, nil)
	obs.ObserveCacheMiss(image)
	obs.ObserveConversion(image, time.Second, errors.New("boom"))

	if got := counterValue(t, CacheHits) - hits; got != 1 {
		t.Errorf("cache hits delta = %v, want 1", got)
	}
	if got := counterValue(t, CacheMisses) - misses; got != 2 {
		t.Errorf("cache misses delta = %v, want 2", got)
	}
	if got := counterValue(t, ConversionsTotal.WithLabelValues("video", "success")) - videoOK; got != 1 {
		t.Errorf("video success delta = %v, want 1", got)
	}
	if got := counterValue(t, ConversionsTotal.WithLabelValues("image", "error")) - imageErr; got != 1 {
		t.Errorf("image error delta = %v, want 1", got)
	}
	if got := histogramCount(t, ConversionDuration.WithLabelValues("video")) - videoObserved; got != 1 {
		t.Errorf("video duration observations delta = %v, want 1", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	tests := []struct {
		name    string
		observe func()
		counter prometheus.Counter
	}{
		{"attempt", func() { obs.ObserveRetryAttempt("stat", "videos") }, FilesystemRetryAttempts.WithLabelValues("stat", "videos")},
		{"success", func() { obs.ObserveRetrySuccess("open", "cache") }, FilesystemRetrySuccess.WithLabelValues("open", "cache")},
		{"failure", func() { obs.ObserveRetryFailure("stat", "unknown") }, FilesystemRetryFailures.WithLabelValues("stat", "unknown")},
		{"stale", func() { obs.ObserveStaleError("open", "videos") }, FilesystemStaleErrors.WithLabelValues("open", "videos")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, tt.counter)
			tt.observe()
			if got := counterValue(t, tt.counter) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}

	before := histogramCount(t, FilesystemRetryDuration.WithLabelValues("stat", "videos"))
	obs.ObserveRetryDuration("stat", "videos", 0.01)
	if got := histogramCount(t, FilesystemRetryDuration.WithLabelValues("stat", "videos")) - before; got != 1 {
		t.Errorf("duration observations delta = %v, want 1", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")
	if got := gaugeValue(t, AppInfo.WithLabelValues("1.2.3", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

func TestSetEncoderInfo(t *testing.T) {
	SetEncoderInfo("/usr/bin/ffmpeg", "6.1", true)
	if got := gaugeValue(t, EncoderInfo.WithLabelValues("/usr/bin/ffmpeg", "6.1")); got != 1 {
		t.Errorf("EncoderInfo available = %v, want 1", got)
	}

	SetEncoderInfo("ffmpeg", "", false)
	if got := gaugeValue(t, EncoderInfo.WithLabelValues("ffmpeg", "")); got != 0 {
		t.Errorf("EncoderInfo unavailable = %v, want 0", got)
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	// Pre-populated series start at zero and are collectable.
	ch := make(chan prometheus.Metric, 64)
	FeedSwapsTotal.Collect(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n < 5 {
		t.Errorf("expected at least 5 feed swap series after InitializeMetrics, got %d", n)
	}
}
