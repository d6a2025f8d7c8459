package feed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"camfeed/internal/filesystem"
	"camfeed/internal/logging"
	"camfeed/internal/mediatypes"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrInvalidWorker is returned for worker ids that cannot name a feed file.
var ErrInvalidWorker = errors.New("invalid worker id")

// ErrNoFeed is returned when a worker has no published feed.
var ErrNoFeed = errors.New("no feed published")

// ErrNotNative is returned when asked to publish a file the browser cannot read.
var ErrNotNative = errors.New("feed file is not in a native format")

var workerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// removableExtensions are cleared when a worker's feed changes format or is
// removed. .mjpg covers feeds left behind before those were renamed to .mjpeg.
var removableExtensions = []string{".mjpeg", ".y4m", ".mjpg"}

// Info describes a published feed.
type Info struct {
	Worker    string    `json:"worker"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"sizeBytes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidateWorkerID checks that id is usable as a feed file name.
func ValidateWorkerID(id string) error {
	err := validation.Validate(id,
		validation.Required,
		validation.Length(1, 64),
		validation.Match(workerIDPattern),
	)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidWorker, id, err)
	}
	return nil
}

// Publisher writes per-worker feed files into a video directory.
type Publisher struct {
	dir   string
	retry filesystem.RetryConfig
	locks sync.Map // worker id -> *sync.Mutex
}

// NewPublisher returns a publisher for videoDir, creating it if needed.
func NewPublisher(videoDir string) (*Publisher, error) {
	abs, err := filepath.Abs(videoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve video directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create video directory %s: %w", abs, err)
	}
	return &Publisher{dir: abs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Dir returns the video directory feeds are written to.
func (p *Publisher) Dir() string {
	return p.dir
}

// Writable reports whether feed files can currently be created in the video directory.
func (p *Publisher) Writable() bool {
	f, err := os.CreateTemp(p.dir, ".write-test-*")
	if err != nil {
		logging.Debug("video directory %s is not writable: %v", p.dir, err)
		return false
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		logging.Debug("closing %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove %s: %v", name, err)
	}
	return true
}

// PathFor returns the feed path a worker would get for a feed with extension ext.
// Native extensions the browser does not read are mapped to the one it does.
func (p *Publisher) PathFor(workerID, ext string) (string, error) {
	if err := ValidateWorkerID(workerID); err != nil {
		return "", err
	}
	if feedExt, ok := mediatypes.FeedExtension(ext); ok {
		ext = feedExt
	}
	return filepath.Join(p.dir, workerID+ext), nil
}

// Path returns the worker's current feed, or ErrNoFeed.
func (p *Publisher) Path(workerID string) (Info, error) {
	if err := ValidateWorkerID(workerID); err != nil {
		return Info{}, err
	}

	for _, ext := range mediatypes.FeedExtensions {
		path := filepath.Join(p.dir, workerID+ext)
		info, err := filesystem.StatWithRetry(path, p.retry)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return Info{Worker: workerID, Path: path, SizeBytes: info.Size(), UpdatedAt: info.ModTime()}, nil
	}
	return Info{}, fmt.Errorf("%w for worker %s", ErrNoFeed, workerID)
}

// Publish copies convertedPath into the worker's feed file. The feed carries
// the browser-readable form of convertedPath's extension so the browser can
// detect the format; a previous feed with a different extension is removed.
func (p *Publisher) Publish(workerID, convertedPath string) (Info, error) {
	if err := ValidateWorkerID(workerID); err != nil {
		return Info{}, err
	}
	if mediatypes.Classify(convertedPath) != mediatypes.Native {
		return Info{}, fmt.Errorf("%w: %s", ErrNotNative, convertedPath)
	}

	mu := p.lock(workerID)
	mu.Lock()
	defer mu.Unlock()

	ext, _ := mediatypes.FeedExtension(convertedPath)
	dest := filepath.Join(p.dir, workerID+ext)

	srcAbs, err := filepath.Abs(convertedPath)
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve %s: %w", convertedPath, err)
	}
	if srcAbs == dest {
		p.removeStale(workerID, ext)
		return p.Path(workerID)
	}

	size, err := p.copyAtomic(srcAbs, dest)
	if err != nil {
		return Info{}, err
	}
	p.removeStale(workerID, ext)

	logging.Info("Published feed for worker %s: %s (%d bytes)", workerID, dest, size)
	return Info{Worker: workerID, Path: dest, SizeBytes: size, UpdatedAt: time.Now()}, nil
}

// Remove deletes the worker's feed files. Removing a missing feed is not an error.
func (p *Publisher) Remove(workerID string) error {
	if err := ValidateWorkerID(workerID); err != nil {
		return err
	}

	mu := p.lock(workerID)
	mu.Lock()
	defer mu.Unlock()

	var errs []error
	for _, ext := range removableExtensions {
		path := filepath.Join(p.dir, workerID+ext)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to remove feed for worker %s: %w", workerID, errors.Join(errs...))
	}
	logging.Debug("Removed feed for worker %s", workerID)
	return nil
}

// removeStale deletes the worker's feed files other than the one with extension keep.
func (p *Publisher) removeStale(workerID, keep string) {
	for _, ext := range removableExtensions {
		if ext == keep {
			continue
		}
		stale := filepath.Join(p.dir, workerID+ext)
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove previous feed %s: %v", stale, err)
		}
	}
}

func (p *Publisher) lock(workerID string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(workerID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// copyAtomic copies src to dest through a temp file in dest's directory.
func (p *Publisher) copyAtomic(src, dest string) (int64, error) {
	in, err := filesystem.OpenWithRetry(src, p.retry)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.Warn("failed to close %s: %v", src, err)
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp feed: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) (int64, error) {
		if closeErr := tmp.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			logging.Debug("closing temp feed %s: %v", tmpPath, closeErr)
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove temp feed %s: %v", tmpPath, rmErr)
		}
		return 0, err
	}

	n, err := io.Copy(tmp, in)
	if err != nil {
		return fail(fmt.Errorf("failed to copy %s: %w", src, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync temp feed: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("failed to close temp feed: %w", err))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fail(fmt.Errorf("failed to set feed permissions: %w", err))
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fail(fmt.Errorf("failed to move feed into place: %w", err))
	}
	return n, nil
}
