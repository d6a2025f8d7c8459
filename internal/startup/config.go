package startup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/database"
	"camfeed/internal/logging"
	"camfeed/internal/mediatypes"
	"camfeed/internal/workers"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding an optional YAML config file.
const ConfigFileEnv = "CAMFEED_CONFIG"

var (
	portPattern     = regexp.MustCompile(`^[0-9]{1,5}$`)
	workerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Config holds all application configuration
type Config struct {
	VideoDir   string
	FFmpegPath string

	CacheEnabled bool
	OutputFormat mediatypes.OutputFormat

	ImageMode       converter.ImageMode
	ImageFrameRate  int
	ImageDuration   time.Duration
	ImageAutoOrient bool

	// EncoderWorkers bounds concurrent encoder runs; 0 sizes it from the CPUs.
	EncoderWorkers int

	// DefaultFeed, when set, is converted and published for DefaultWorker at startup.
	DefaultFeed   string
	DefaultWorker string

	ManifestEnabled bool

	Port               string
	MetricsPort        string
	MetricsEnabled     bool
	LogHealthChecks    bool
	// StreamWriteTimeout bounds each chunk written by feed downloads.
	StreamWriteTimeout time.Duration
	LogLevel           string

	// Derived paths
	CacheDir     string
	ManifestPath string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		VideoDir:           "./videos",
		FFmpegPath:         converter.DefaultEncoder,
		CacheEnabled:       true,
		OutputFormat:       mediatypes.FormatMJPEG,
		ImageMode:          converter.ImageModeFrame,
		ImageFrameRate:     30,
		ImageDuration:      5 * time.Second,
		ImageAutoOrient:    true,
		DefaultWorker:      "default",
		ManifestEnabled:    true,
		Port:               "8080",
		MetricsPort:        "9090",
		MetricsEnabled:     true,
		LogHealthChecks:    false,
		StreamWriteTimeout: 30 * time.Second,
		LogLevel:           "info",
	}
}

// fileConfig mirrors Config for the YAML overlay. Nil fields are left unchanged.
type fileConfig struct {
	VideoDir     *string `yaml:"videoDir"`
	FFmpegPath   *string `yaml:"ffmpegPath"`
	CacheEnabled *bool   `yaml:"cacheEnabled"`
	OutputFormat *string `yaml:"outputFormat"`
	Image        struct {
		Mode       *string `yaml:"mode"`
		FrameRate  *int    `yaml:"frameRate"`
		Duration   *string `yaml:"duration"`
		AutoOrient *bool   `yaml:"autoOrient"`
	} `yaml:"image"`
	EncoderWorkers  *int    `yaml:"encoderWorkers"`
	DefaultFeed     *string `yaml:"defaultFeed"`
	DefaultWorker   *string `yaml:"defaultWorker"`
	ManifestEnabled *bool   `yaml:"manifestEnabled"`
	Server          struct {
		Port               *string `yaml:"port"`
		MetricsPort        *string `yaml:"metricsPort"`
		MetricsEnabled     *bool   `yaml:"metricsEnabled"`
		LogHealthChecks    *bool   `yaml:"logHealthChecks"`
		StreamWriteTimeout *string `yaml:"streamWriteTimeout"`
	} `yaml:"server"`
	LogLevel *string `yaml:"logLevel"`
}

// Load builds the configuration from defaults, a .env file, the YAML file named by
// CAMFEED_CONFIG and the environment, in increasing order of precedence, then
// validates it. It logs nothing beyond warnings; LoadConfig adds the startup report.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to read .env file: %v", err)
	}

	cfg := DefaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logging.SetLevel(level)
	}

	videoDir, err := filepath.Abs(cfg.VideoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve video directory path: %w", err)
	}
	cfg.VideoDir = videoDir
	cfg.CacheDir = filepath.Join(videoDir, converter.CacheDirName)
	cfg.ManifestPath = filepath.Join(cfg.CacheDir, database.ManifestFileName)

	if cfg.DefaultFeed != "" {
		if cfg.DefaultFeed, err = filepath.Abs(cfg.DefaultFeed); err != nil {
			return nil, fmt.Errorf("failed to resolve default feed path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close config file %s: %v", path, err)
		}
	}()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.VideoDir, fc.VideoDir)
	setString(&c.FFmpegPath, fc.FFmpegPath)
	setBool(&c.CacheEnabled, fc.CacheEnabled)
	if fc.OutputFormat != nil {
		c.OutputFormat = mediatypes.OutputFormat(strings.ToLower(*fc.OutputFormat))
	}
	if fc.Image.Mode != nil {
		c.ImageMode = converter.ImageMode(strings.ToLower(*fc.Image.Mode))
	}
	if fc.Image.FrameRate != nil {
		c.ImageFrameRate = *fc.Image.FrameRate
	}
	if fc.Image.Duration != nil {
		d, err := time.ParseDuration(*fc.Image.Duration)
		if err != nil {
			return fmt.Errorf("config file %s: invalid image.duration %q: %w", path, *fc.Image.Duration, err)
		}
		c.ImageDuration = d
	}
	setBool(&c.ImageAutoOrient, fc.Image.AutoOrient)
	if fc.EncoderWorkers != nil {
		c.EncoderWorkers = *fc.EncoderWorkers
	}
	setString(&c.DefaultFeed, fc.DefaultFeed)
	setString(&c.DefaultWorker, fc.DefaultWorker)
	setBool(&c.ManifestEnabled, fc.ManifestEnabled)
	setString(&c.Port, fc.Server.Port)
	setString(&c.MetricsPort, fc.Server.MetricsPort)
	setBool(&c.MetricsEnabled, fc.Server.MetricsEnabled)
	setBool(&c.LogHealthChecks, fc.Server.LogHealthChecks)
	if fc.Server.StreamWriteTimeout != nil {
		d, err := time.ParseDuration(*fc.Server.StreamWriteTimeout)
		if err != nil {
			return fmt.Errorf("config file %s: invalid server.streamWriteTimeout %q: %w", path, *fc.Server.StreamWriteTimeout, err)
		}
		c.StreamWriteTimeout = d
	}
	setString(&c.LogLevel, fc.LogLevel)

	logging.Debug("Loaded config file %s", path)
	return nil
}

func (c *Config) applyEnv() {
	c.VideoDir = getEnv("VIDEO_DIR", c.VideoDir)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.CacheEnabled = getEnvBool("CACHE_ENABLED", c.CacheEnabled)
	c.OutputFormat = mediatypes.OutputFormat(strings.ToLower(getEnv("OUTPUT_FORMAT", string(c.OutputFormat))))
	c.ImageMode = converter.ImageMode(strings.ToLower(getEnv("IMAGE_MODE", string(c.ImageMode))))
	c.ImageFrameRate = getEnvInt("IMAGE_FRAME_RATE", c.ImageFrameRate)
	c.ImageDuration = getEnvDuration("IMAGE_DURATION", c.ImageDuration)
	c.ImageAutoOrient = getEnvBool("IMAGE_AUTO_ORIENT", c.ImageAutoOrient)
	c.EncoderWorkers = getEnvInt(workers.EnvOverride, c.EncoderWorkers)
	c.DefaultFeed = getEnv("DEFAULT_FEED", c.DefaultFeed)
	c.DefaultWorker = getEnv("DEFAULT_WORKER", c.DefaultWorker)
	c.ManifestEnabled = getEnvBool("MANIFEST_ENABLED", c.ManifestEnabled)
	c.Port = getEnv("PORT", c.Port)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", c.LogHealthChecks)
	c.StreamWriteTimeout = getEnvDuration("STREAM_WRITE_TIMEOUT", c.StreamWriteTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	loop := c.ImageMode == converter.ImageModeLoop
	return validation.ValidateStruct(&c,
		validation.Field(&c.VideoDir, validation.Required),
		validation.Field(&c.FFmpegPath, validation.Required),
		validation.Field(&c.OutputFormat, validation.Required,
			validation.In(mediatypes.FormatMJPEG, mediatypes.FormatY4M).Error("must be mjpeg or y4m")),
		validation.Field(&c.ImageMode, validation.Required,
			validation.In(converter.ImageModeFrame, converter.ImageModeLoop).Error("must be frame or loop")),
		validation.Field(&c.ImageFrameRate, validation.When(loop, validation.Required, validation.Min(1), validation.Max(120))),
		validation.Field(&c.ImageDuration, validation.When(loop, validation.Required, validation.Min(100*time.Millisecond))),
		validation.Field(&c.EncoderWorkers, validation.Min(0), validation.Max(64)),
		validation.Field(&c.DefaultFeed, validation.By(supportedSource)),
		validation.Field(&c.DefaultWorker,
			validation.When(c.DefaultFeed != "", validation.Required),
			validation.Match(workerIDPattern)),
		validation.Field(&c.Port, validation.Required, validation.Match(portPattern)),
		validation.Field(&c.MetricsPort,
			validation.When(c.MetricsEnabled, validation.Required, validation.Match(portPattern),
				validation.NotIn(c.Port).Error("must differ from the application port"))),
		validation.Field(&c.StreamWriteTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LogLevel, validation.By(knownLogLevel)),
	)
}

// ConverterConfig returns the converter settings for this configuration.
func (c *Config) ConverterConfig(observer converter.Observer) converter.Config {
	return converter.Config{
		CacheDir:       c.CacheDir,
		EncoderPath:    c.FFmpegPath,
		CacheEnabled:   c.CacheEnabled,
		OutputFormat:   c.OutputFormat,
		ImageMode:      c.ImageMode,
		ImageFrameRate: c.ImageFrameRate,
		ImageDuration:  c.ImageDuration,
		AutoOrient:     c.ImageAutoOrient,
		MaxEncoders:    c.EncoderWorkers,
		Observer:       observer,
	}
}

// ManifestActive reports whether the manifest should be opened.
func (c *Config) ManifestActive() bool {
	return c.CacheEnabled && c.ManifestEnabled
}

func supportedSource(v interface{}) error {
	path, _ := v.(string)
	if path == "" {
		return nil
	}
	if mediatypes.Classify(path) == mediatypes.Unrecognized {
		return fmt.Errorf("unsupported extension %q", mediatypes.Extension(path))
	}
	return nil
}

func knownLogLevel(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, ok := logging.ParseLevel(s); !ok {
		return errors.New("must be one of debug, info, warn, error")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
