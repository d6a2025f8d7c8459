// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is resolved by [Load] from, in increasing order of precedence:
// built-in defaults, a .env file in the working directory, the YAML file named
// by CAMFEED_CONFIG, and the process environment. The supported variables are:
//
//   - VIDEO_DIR: Directory holding sources and feed files (default: ./videos)
//   - FFMPEG_PATH: Encoder executable, resolved through PATH (default: ffmpeg)
//   - CACHE_ENABLED: Keep converted files under VIDEO_DIR/.cache (default: true)
//   - OUTPUT_FORMAT: mjpeg or y4m (default: mjpeg)
//   - IMAGE_MODE: frame or loop (default: frame)
//   - IMAGE_FRAME_RATE: Frames per second for looped stills (default: 30)
//   - IMAGE_DURATION: Length of a looped still as Go duration (default: 5s)
//   - IMAGE_AUTO_ORIENT: Apply EXIF orientation to stills (default: true)
//   - ENCODER_WORKERS: Concurrent encoder runs (default: half the CPUs, at most 4)
//   - DEFAULT_FEED: Source published for DEFAULT_WORKER at startup (default: none)
//   - DEFAULT_WORKER: Worker id for DEFAULT_FEED (default: default)
//   - MANIFEST_ENABLED: Record cache entries in a SQLite manifest (default: true)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - STREAM_WRITE_TIMEOUT: Per-chunk write deadline for feed downloads (default: 30s)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//
// The YAML file uses the same settings in camelCase, with image and server
// sections:
//
//	videoDir: /srv/videos
//	outputFormat: y4m
//	image:
//	  mode: loop
//	  duration: 3s
//	server:
//	  port: "8081"
//
// Unknown YAML keys are rejected.
//
// # Directory Setup
//
// [LoadConfig] requires the video directory to exist (it is created if
// missing) and be writable, since feed files are written into it. The cache
// directory is optional: when it cannot be created or written, caching and the
// manifest are disabled and every conversion writes a sibling file instead.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogManifestInit], [LogManifestDisabled]: manifest state
//   - [CheckEncoder]: encoder probe and install guidance
//   - [LogDefaultFeed]: startup feed for the default worker
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted]: server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]: graceful shutdown
package startup
