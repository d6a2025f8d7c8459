package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"camfeed/internal/filesystem"
	"camfeed/internal/logging"
	"camfeed/internal/media"
	"camfeed/internal/mediatypes"
	"camfeed/internal/workers"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/singleflight"
)

// TempSuffix is appended to a destination path while the encoder writes to it.
const TempSuffix = ".tmp"

// stagingSuffix is appended to the temp path for normalized still images.
const stagingSuffix = TempSuffix + ".png"

// CacheDirName is the cache subdirectory of the video directory.
const CacheDirName = ".cache"

// ImageMode selects how still images become a feed.
type ImageMode string

const (
	// ImageModeFrame writes a single frame; the browser repeats it indefinitely.
	ImageModeFrame ImageMode = "frame"
	// ImageModeLoop synthesizes ImageDuration of video at ImageFrameRate.
	ImageModeLoop ImageMode = "loop"
)

// Scale to even dimensions; 4:2:0 chroma subsampling rejects odd sizes.
const evenDimensionsFilter = "scale=trunc(iw/2)*2:trunc(ih/2)*2"

// mjpegQuality is the encoder's -q:v for MJPEG output (2 is near-lossless).
const mjpegQuality = "2"

// DefaultMaxEncoders caps the CPU-derived encoder concurrency.
const DefaultMaxEncoders = 4

var cacheEntryPattern = regexp.MustCompile(`^[0-9a-f]{64}\.(mjpeg|y4m)$`)

// Config holds the converter settings. It is copied by New and never changes afterwards.
type Config struct {
	CacheDir     string
	EncoderPath  string
	CacheEnabled bool
	OutputFormat mediatypes.OutputFormat

	ImageMode      ImageMode
	ImageFrameRate int
	ImageDuration  time.Duration
	// AutoOrient runs stills through media.PrepareStill before encoding.
	AutoOrient bool

	// MaxEncoders bounds concurrent encoder runs. Zero sizes it from the
	// available CPUs.
	MaxEncoders int

	Observer Observer
}

// DefaultConfig returns a caching MJPEG configuration rooted at videoDir.
func DefaultConfig(videoDir string) Config {
	return Config{
		CacheDir:       filepath.Join(videoDir, CacheDirName),
		EncoderPath:    DefaultEncoder,
		CacheEnabled:   true,
		OutputFormat:   mediatypes.FormatMJPEG,
		ImageMode:      ImageModeFrame,
		ImageFrameRate: 30,
		ImageDuration:  5 * time.Second,
		AutoOrient:     true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	loop := c.ImageMode == ImageModeLoop
	return validation.ValidateStruct(&c,
		validation.Field(&c.CacheDir, validation.When(c.CacheEnabled, validation.Required)),
		validation.Field(&c.EncoderPath, validation.Required),
		validation.Field(&c.OutputFormat, validation.Required,
			validation.In(mediatypes.FormatMJPEG, mediatypes.FormatY4M)),
		validation.Field(&c.ImageMode, validation.Required,
			validation.In(ImageModeFrame, ImageModeLoop)),
		validation.Field(&c.ImageFrameRate, validation.When(loop,
			validation.Required, validation.Min(1), validation.Max(120))),
		validation.Field(&c.ImageDuration, validation.When(loop,
			validation.Required, validation.Min(100*time.Millisecond))),
	)
}

// Converter turns source media into native feed files, caching results by fingerprint.
type Converter struct {
	config   Config
	observer Observer
	limits   media.Limits
	inflight singleflight.Group
	slots    chan struct{}

	flightsMu sync.Mutex
	flights   map[string]*flight
}

// flight is the context an in-flight encoder run executes under. It is
// cancelled once every caller waiting on the run has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New validates cfg and returns a Converter. Empty EncoderPath, OutputFormat and
// ImageMode fall back to DefaultEncoder, MJPEG and single-frame.
func New(cfg Config) (*Converter, error) {
	if cfg.EncoderPath == "" {
		cfg.EncoderPath = DefaultEncoder
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = mediatypes.FormatMJPEG
	}
	if cfg.ImageMode == "" {
		cfg.ImageMode = ImageModeFrame
	}
	if cfg.MaxEncoders <= 0 {
		cfg.MaxEncoders = workers.ForEncoder(DefaultMaxEncoders)
	}
	if cfg.CacheDir != "" {
		abs, err := filepath.Abs(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		cfg.CacheDir = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid converter configuration: %w", err)
	}

	return &Converter{
		config:   cfg,
		observer: Observers(cfg.Observer),
		limits:   media.DefaultLimits(),
		slots:    make(chan struct{}, cfg.MaxEncoders),
		flights:  make(map[string]*flight),
	}, nil
}

// Config returns a copy of the converter's configuration.
func (c *Converter) Config() Config {
	return c.config
}

// CacheDir returns the absolute cache directory.
func (c *Converter) CacheDir() string {
	return c.config.CacheDir
}

// IsCacheEnabled returns whether conversions are cached.
func (c *Converter) IsCacheEnabled() bool {
	return c.config.CacheEnabled
}

// OutputExtension returns the extension of files produced by this converter, e.g. ".mjpeg".
func (c *Converter) OutputExtension() string {
	return c.config.OutputFormat.Extension()
}

// Probe runs ProbeEncoder against the configured encoder.
func (c *Converter) Probe(ctx context.Context) (*EncoderInfo, error) {
	return ProbeEncoder(ctx, c.config.EncoderPath)
}

// Initialize creates the cache directory when caching is enabled. It is safe to call
// more than once and must be called before Convert or GetCachedPath.
func (c *Converter) Initialize() error {
	if !c.config.CacheEnabled {
		return nil
	}
	if err := os.MkdirAll(c.config.CacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", c.config.CacheDir, err)
	}
	logging.Debug("Cache directory ready: %s", c.config.CacheDir)
	return nil
}

// cachePath returns the cache file path for a fingerprint.
func (c *Converter) cachePath(fingerprint string) string {
	return filepath.Join(c.config.CacheDir, fingerprint+c.OutputExtension())
}

// GetCachedPath returns the cache entry for source if caching is enabled, source
// exists and the entry is already on disk. It never fails; any problem is a miss.
func (c *Converter) GetCachedPath(source string) (string, bool) {
	if !c.config.CacheEnabled {
		return "", false
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return "", false
	}

	if info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig()); err != nil || info.IsDir() {
		return "", false
	}

	fingerprint, err := Fingerprint(abs)
	if err != nil {
		logging.Debug("Cache lookup could not fingerprint %s: %v", abs, err)
		return "", false
	}

	path := c.cachePath(fingerprint)
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Convert returns a path to a native feed file for source.
//
// Native sources are returned unchanged (as absolute paths). Convertible sources
// are looked up in the cache by fingerprint and encoded on a miss, writing to a
// temporary file that is renamed into place only when the encoder succeeds.
// Errors match ErrSourceNotFound, ErrUnsupportedFormat or ErrConversionFailed.
//
// The encoder runs under ctx; Convert imposes no timeout of its own.
func (c *Converter) Convert(ctx context.Context, source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", &SourceNotFoundError{Path: source, Err: err}
	}

	info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", &SourceNotFoundError{Path: abs, Err: err}
	}
	if info.IsDir() {
		return "", &SourceNotFoundError{Path: abs, Err: errors.New("is a directory")}
	}

	class := mediatypes.Classify(abs)
	switch class {
	case mediatypes.Native:
		logging.Debug("Source %s is already native", abs)
		return abs, nil
	case mediatypes.Unrecognized:
		return "", &UnsupportedFormatError{
			Path:      abs,
			Extension: mediatypes.Extension(abs),
			Supported: mediatypes.SupportedExtensions(),
		}
	}

	fingerprint, err := Fingerprint(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &SourceNotFoundError{Path: abs, Err: err}
		}
		return "", &ConversionError{Source: abs, Err: err}
	}

	entry := Entry{
		Fingerprint: fingerprint,
		Source:      abs,
		Class:       class,
		Format:      c.config.OutputFormat,
	}

	if c.config.CacheEnabled {
		entry.Output = c.cachePath(fingerprint)
		if fileExists(entry.Output) {
			logging.Debug("Cache hit for %s: %s", abs, entry.Output)
			c.observer.ObserveCacheHit(entry)
			return entry.Output, nil
		}
	} else {
		base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
		entry.Output = filepath.Join(filepath.Dir(abs), base+c.OutputExtension())
	}

	c.observer.ObserveCacheMiss(entry)

	// Concurrent callers for the same destination share a single encoder run.
	// A caller that gives up only stops waiting; the run is cancelled when no
	// caller is left.
	for {
		runCtx, leave := c.join(entry.Output)
		ch := c.inflight.DoChan(entry.Output, func() (interface{}, error) {
			if c.config.CacheEnabled && fileExists(entry.Output) {
				return nil, nil
			}
			return nil, c.encode(runCtx, entry)
		})

		select {
		case res := <-ch:
			leave()
			if res.Shared {
				logging.Debug("Shared in-flight conversion for %s", entry.Output)
			}
			if res.Err != nil {
				// The run we joined was abandoned by its other callers.
				if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
					logging.Debug("Restarting abandoned conversion for %s", entry.Output)
					continue
				}
				return "", res.Err
			}
			return entry.Output, nil
		case <-ctx.Done():
			leave()
			return "", &ConversionError{Source: abs, Err: fmt.Errorf("conversion abandoned: %w", ctx.Err())}
		}
	}
}

// join registers a caller on the run for key and returns the run's context.
// leave must be called exactly once when the caller stops waiting.
func (c *Converter) join(key string) (context.Context, func()) {
	c.flightsMu.Lock()
	defer c.flightsMu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &flight{ctx: ctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++

	return f.ctx, func() {
		c.flightsMu.Lock()
		defer c.flightsMu.Unlock()
		f.waiters--
		if f.waiters == 0 {
			f.cancel()
			if c.flights[key] == f {
				delete(c.flights, key)
			}
		}
	}
}

// encode runs the encoder for entry into a temp file and renames it into place.
func (c *Converter) encode(ctx context.Context, entry Entry) error {
	if c.config.CacheEnabled {
		if err := os.MkdirAll(filepath.Dir(entry.Output), 0o755); err != nil {
			return &ConversionError{Source: entry.Source, Err: fmt.Errorf("failed to create cache directory: %w", err)}
		}
	}

	if err := ctx.Err(); err != nil {
		return &ConversionError{Source: entry.Source, Err: fmt.Errorf("waiting for an encoder slot: %w", err)}
	}

	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		return &ConversionError{Source: entry.Source, Err: fmt.Errorf("waiting for an encoder slot: %w", ctx.Err())}
	}

	tmpPath := entry.Output + TempSuffix
	input := entry.Source

	if entry.Class == mediatypes.ConvertibleImage && c.config.AutoOrient {
		staging := entry.Output + stagingSuffix
		if _, err := media.PrepareStill(entry.Source, staging, c.limits); err != nil {
			logging.Warn("Could not normalize %s, passing it to the encoder as-is: %v", entry.Source, err)
		} else {
			input = staging
			defer removeQuietly(staging)
		}
	}

	args := c.encoderArgs(input, tmpPath, entry.Class)
	logging.Debug("Running %s %s", c.config.EncoderPath, strings.Join(args, " "))

	start := time.Now()
	stderr, err := c.runEncoder(ctx, args)
	duration := time.Since(start)

	if err == nil {
		if _, statErr := os.Stat(tmpPath); statErr != nil {
			err = fmt.Errorf("encoder exited successfully but wrote no output: %w", statErr)
		}
	}

	if err == nil {
		if renameErr := os.Rename(tmpPath, entry.Output); renameErr != nil {
			err = fmt.Errorf("failed to move output into place: %w", renameErr)
			stderr = ""
		}
	}

	if err != nil {
		removeQuietly(tmpPath)
		convErr := &ConversionError{Source: entry.Source, Output: stderr, Err: err}
		c.observer.ObserveConversion(entry, duration, convErr)
		logging.Error("Conversion failed for %s: %v", entry.Source, convErr)
		return convErr
	}

	c.observer.ObserveConversion(entry, duration, nil)
	logging.Info("Converted %s to %s in %v", entry.Source, entry.Output, duration.Round(time.Millisecond))
	return nil
}

// encoderArgs builds the encoder argument vector. Arguments are passed to the
// process directly and never through a shell.
func (c *Converter) encoderArgs(input, output string, class mediatypes.FormatClass) []string {
	format := c.config.OutputFormat
	loop := class == mediatypes.ConvertibleImage && c.config.ImageMode == ImageModeLoop

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if loop {
		args = append(args, "-loop", "1", "-framerate", strconv.Itoa(c.config.ImageFrameRate))
	}

	args = append(args,
		"-i", input,
		"-an",
		"-vf", evenDimensionsFilter,
		"-pix_fmt", format.PixelFormat(),
	)

	if class == mediatypes.ConvertibleImage {
		if loop {
			args = append(args, "-t", strconv.FormatFloat(c.config.ImageDuration.Seconds(), 'f', -1, 64))
		} else {
			args = append(args, "-frames:v", "1")
		}
	}

	if format == mediatypes.FormatMJPEG {
		args = append(args, "-q:v", mjpegQuality)
	}

	return append(args, "-f", format.Muxer(), output)
}

// runEncoder executes the encoder and returns its trimmed error stream.
func (c *Converter) runEncoder(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, c.config.EncoderPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("encoder interrupted: %w", ctx.Err())
	}
	return strings.TrimSpace(stderr.String()), err
}

// ClearCache removes all cache entries and leftover temp files and returns the
// number of bytes freed. Other files in the cache directory are left alone.
func (c *Converter) ClearCache() (int64, error) {
	if !c.config.CacheEnabled || c.config.CacheDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(c.config.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var freedBytes int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isCacheFile(name) {
			continue
		}

		path := filepath.Join(c.config.CacheDir, name)
		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to get info for %s: %v", path, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove file %s: %v", path, err)
			continue
		}
		freedBytes += info.Size()
	}

	logging.Info("Cleared conversion cache: freed %d bytes", freedBytes)
	return freedBytes, nil
}

// isCacheFile reports whether name is a cache entry or one of its temp files.
func isCacheFile(name string) bool {
	name = strings.TrimSuffix(name, stagingSuffix)
	name = strings.TrimSuffix(name, TempSuffix)
	return cacheEntryPattern.MatchString(name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// removeQuietly is best-effort cleanup; failures are logged, never returned.
func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove %s: %v", path, err)
	}
}
