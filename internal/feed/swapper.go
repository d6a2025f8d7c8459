package feed

import (
	"context"
	"errors"
	"fmt"

	"camfeed/internal/converter"
	"camfeed/internal/logging"
	"camfeed/internal/metrics"
)

// Converter is the subset of *converter.Converter the swapper needs.
type Converter interface {
	Convert(ctx context.Context, source string) (string, error)
}

// Swapper converts a source and publishes it as a worker's feed.
type Swapper struct {
	converter Converter
	publisher *Publisher
}

// NewSwapper returns a Swapper.
func NewSwapper(conv Converter, pub *Publisher) *Swapper {
	return &Swapper{converter: conv, publisher: pub}
}

// Publisher returns the underlying publisher.
func (s *Swapper) Publisher() *Publisher {
	return s.publisher
}

// Swap makes source the worker's camera feed. Conversion errors are returned
// unchanged so callers can match them against the converter sentinels.
func (s *Swapper) Swap(ctx context.Context, workerID, source string) (Info, error) {
	if err := ValidateWorkerID(workerID); err != nil {
		metrics.FeedSwapsTotal.WithLabelValues("error_publish").Inc()
		return Info{}, err
	}

	converted, err := s.converter.Convert(ctx, source)
	if err != nil {
		metrics.FeedSwapsTotal.WithLabelValues(swapStatus(err)).Inc()
		return Info{}, err
	}

	info, err := s.publisher.Publish(workerID, converted)
	if err != nil {
		metrics.FeedSwapsTotal.WithLabelValues("error_publish").Inc()
		return Info{}, fmt.Errorf("failed to publish feed for worker %s: %w", workerID, err)
	}

	metrics.FeedSwapsTotal.WithLabelValues("success").Inc()
	logging.Info("Worker %s now shows %s", workerID, source)
	return info, nil
}

func swapStatus(err error) string {
	switch {
	case errors.Is(err, converter.ErrSourceNotFound):
		return "error_not_found"
	case errors.Is(err, converter.ErrUnsupportedFormat):
		return "error_unsupported"
	default:
		return "error_conversion"
	}
}
