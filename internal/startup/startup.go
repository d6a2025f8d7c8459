package startup

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/logging"
	"camfeed/internal/mediatypes"
	"camfeed/internal/memory"
	"camfeed/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// LoadConfig loads and validates configuration, printing the startup report
// and preparing the video and cache directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := Load()
	if err != nil {
		return nil, err
	}

	section("CONFIGURATION")
	if path := getEnv(ConfigFileEnv, ""); path != "" {
		logging.Info("  CONFIG FILE:         %s", path)
	}
	logging.Info("  VIDEO_DIR:           %s", config.VideoDir)
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  CACHE_ENABLED:       %v", config.CacheEnabled)
	logging.Info("  OUTPUT_FORMAT:       %s", config.OutputFormat)
	logging.Info("  IMAGE_MODE:          %s", config.ImageMode)
	if config.ImageMode == converter.ImageModeLoop {
		logging.Info("  IMAGE_FRAME_RATE:    %d", config.ImageFrameRate)
		logging.Info("  IMAGE_DURATION:      %v", config.ImageDuration)
	}
	logging.Info("  IMAGE_AUTO_ORIENT:   %v", config.ImageAutoOrient)
	if config.EncoderWorkers > 0 {
		logging.Info("  ENCODER_WORKERS:     %d", config.EncoderWorkers)
	} else {
		logging.Info("  ENCODER_WORKERS:     auto (%d)", workers.ForEncoder(converter.DefaultMaxEncoders))
	}
	logging.Info("  DEFAULT_FEED:        %s", valueOrNone(config.DefaultFeed))
	logging.Info("  MANIFEST_ENABLED:    %v", config.ManifestEnabled)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  STREAM_WRITE_TIMEOUT: %v", config.StreamWriteTimeout)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	section("DIRECTORIES")
	// Feed files are written here, so it must exist and be writable.
	if err := prepareDir(config.VideoDir); err != nil {
		return nil, fmt.Errorf("video directory %s: %w", config.VideoDir, err)
	}
	logging.Info("  [OK] Video directory %s is writable", config.VideoDir)

	if config.CacheEnabled {
		config.CacheEnabled = setupOptionalDir(config.CacheDir, "cache")
	}

	logging.Info("  Conversion cache: %s, manifest: %s, metrics: %s",
		enabledString(config.CacheEnabled),
		enabledString(config.ManifestActive()),
		enabledString(config.MetricsEnabled))

	return config, nil
}

// setupOptionalDir prepares a directory for a feature that can run without
// it, returning false when the feature must be turned off.
func setupOptionalDir(path, name string) bool {
	if err := prepareDir(path); err != nil {
		logging.Warn("  %s directory %s is unusable, disabling %s: %v", name, path, name, err)
		return false
	}
	logging.Debug("  [OK] %s directory %s ready", name, path)
	return true
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogManifestInit logs cache manifest initialization
func LogManifestInit(path string, duration time.Duration) {
	section("MANIFEST INITIALIZATION")
	logging.Info("  [OK] Manifest at %s initialized in %v", path, duration)
}

// LogManifestDisabled logs why the manifest is not used
func LogManifestDisabled(reason string) {
	logging.Info("")
	logging.Info("  Cache manifest disabled (%s)", reason)
}

// CheckEncoder probes the configured encoder and logs the result. An
// unavailable encoder is returned as an error only when the default feed needs
// conversion; otherwise it is a warning and native sources keep working.
func CheckEncoder(ctx context.Context, config *Config) (*converter.EncoderInfo, error) {
	section("ENCODER CHECK")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info, err := converter.ProbeEncoder(ctx, config.FFmpegPath)
	if err != nil {
		if config.DefaultFeed != "" && mediatypes.RequiresConversion(config.DefaultFeed) {
			return nil, fmt.Errorf("default feed %s needs conversion: %w", config.DefaultFeed, err)
		}
		logging.Warn("  Encoder check failed: %v", err)
		logging.Warn("  Only native .mjpeg and .y4m sources can be used as feeds")
		return nil, nil
	}

	logging.Info("  [OK] Encoder is available")
	logging.Debug("  Encoder path: %s", info.Path)
	if info.Version != "" {
		logging.Info("  Encoder version: %s", info.Version)
	}
	return info, nil
}

// LogDefaultFeed logs the startup feed for the default worker
func LogDefaultFeed(worker, source, path string, duration time.Duration) {
	section("DEFAULT FEED")
	logging.Info("  Source: %s", source)
	logging.Info("  [OK] Worker %s feed ready at %s (%v)", worker, path, duration.Round(time.Millisecond))
}

// GetRoutes lists every method and path template registered on router, in
// registration order. Routes without a method restriction report "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: path, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// LogHTTPRoutes reports the API surface. The route table is only printed at
// debug level, sorted by path so feed and cache routes sit together.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section("HTTP API")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("  Could not list routes: %v", err)
	}
	logging.Info("  %d routes registered, health check logging %s", len(routes), onOff(logHealthChecks))

	if logging.IsDebugEnabled() {
		sort.SliceStable(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
		for _, r := range routes {
			logging.Debug("    %-6s %s", r.Method, r.Path)
		}
	}
}

// ServerConfig holds what LogServerStarted reports.
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening addresses once startup has finished.
func LogServerStarted(config ServerConfig) {
	section("READY")
	logging.Info("  Started in %v", config.StartupDuration.Round(time.Millisecond))
	logging.Info("  Feeds API:  http://localhost:%s/api/feeds", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:    http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
}

// LogShutdownInitiated logs the signal that started shutdown.
func LogShutdownInitiated(signal string) {
	section("SHUTDOWN (" + signal + ")")
}

// LogShutdownStep reports the outcome of stopping one component.
func LogShutdownStep(component string, err error) {
	if err != nil {
		logging.Warn("  %s: %v", component, err)
		return
	}
	logging.Info("  [OK] %s stopped", component)
}

// LogShutdownComplete logs the end of shutdown.
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func section(title string) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(title)
	logging.Info(rule)
}

const rule = "------------------------------------------------------------"

func printBanner() {
	fmt.Println(rule + `
                        __               _
  _________ _____ ___  / _|___  ___  ___| |
 / ___/ __ '/ __ '__ \| |_/ _ \/ _ \/ _  |
/ /__/ /_/ / / / / / /|  _|  __/  __/ (_| |
\___/\__,_/_/ /_/ /_/ |_|  \___|\___|\__,_|
` + rule)
	logging.Info("  camfeed %s (commit %s, built %s)", Version, Commit, BuildTime)
}

func logSystemInfo() {
	section("SYSTEM")
	logging.Info("  %s on %s/%s, %d CPUs (GOMAXPROCS %d)",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.GOMAXPROCS(0))
	if wd, err := os.Getwd(); err == nil {
		logging.Debug("  Working dir: %s", wd)
	}
}

// LogMemoryConfig reports the Go heap limit chosen by memory.ConfigureFromEnv.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY")
	logging.Info("  GOMEMLIMIT: %s", result)
	if !result.Configured {
		logging.Info("  (Set MEMORY_LIMIT to bound the Go heap in containers)")
	}
}

// prepareDir creates dir if needed and checks that files can be created in it.
func prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		logging.Debug("closing %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
