package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"camfeed/internal/logging"
)

var (
	// ErrWriteTimeout indicates a client stopped reading for longer than WriteTimeout,
	// or the stream ran past MaxDuration.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates the request context ended before the stream finished.
	ErrClientGone = errors.New("client disconnected")
)

// Config bounds a single streamed response.
type Config struct {
	// WriteTimeout is the deadline applied to each chunk write.
	WriteTimeout time.Duration
	// MaxDuration caps the whole stream (0 = unlimited).
	MaxDuration time.Duration
	// ChunkSize is the read buffer and flush granularity.
	ChunkSize int
}

// DefaultConfig returns the limits used for feed downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// Result summarizes a finished stream.
type Result struct {
	Bytes    int64
	Duration time.Duration
}

// Copy streams r into w one chunk at a time, flushing after each chunk. Every
// write gets its own deadline through http.ResponseController, so a stalled
// reader cannot pin the handler even when the server has no WriteTimeout.
func Copy(ctx context.Context, w http.ResponseWriter, r io.Reader, cfg Config) (Result, error) {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultConfig().ChunkSize
	}

	rc := http.NewResponseController(w)
	deadlines := cfg.WriteTimeout > 0
	buf := make([]byte, chunk)
	start := time.Now()
	var res Result

	finish := func(err error) (Result, error) {
		res.Duration = time.Since(start)
		if deadlines {
			if clearErr := rc.SetWriteDeadline(time.Time{}); clearErr != nil && !errors.Is(clearErr, http.ErrNotSupported) {
				logging.Debug("clearing write deadline: %v", clearErr)
			}
		}
		return res, err
	}

	for {
		if ctx.Err() != nil {
			return finish(ErrClientGone)
		}
		if cfg.MaxDuration > 0 && time.Since(start) > cfg.MaxDuration {
			return finish(fmt.Errorf("%w: stream exceeded %v", ErrWriteTimeout, cfg.MaxDuration))
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if deadlines {
				if err := rc.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout)); errors.Is(err, http.ErrNotSupported) {
					deadlines = false
				}
			}
			written, err := w.Write(buf[:n])
			res.Bytes += int64(written)
			if err != nil {
				return finish(writeError(ctx, err))
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return finish(writeError(ctx, err))
			}
		}

		if errors.Is(readErr, io.EOF) {
			return finish(nil)
		}
		if readErr != nil {
			return finish(fmt.Errorf("reading stream source: %w", readErr))
		}
	}
}

func writeError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return ErrClientGone
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrWriteTimeout
	default:
		return fmt.Errorf("writing stream: %w", err)
	}
}
