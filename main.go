package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/database"
	"camfeed/internal/feed"
	"camfeed/internal/filesystem"
	"camfeed/internal/handlers"
	"camfeed/internal/logging"
	"camfeed/internal/memory"
	"camfeed/internal/metrics"
	"camfeed/internal/middleware"
	"camfeed/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()

	memoryConfig := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memoryConfig)

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"videos": config.VideoDir,
		"cache":  config.CacheDir,
	}))

	observers := []converter.Observer{metrics.NewConverterObserver()}

	var manifest *database.Database
	var collector *metrics.Collector
	if config.ManifestActive() {
		manifestStart := time.Now()
		manifest, err = database.Open(context.Background(), config.CacheDir)
		if err != nil {
			logging.Warn("Failed to open cache manifest: %v", err)
			startup.LogManifestDisabled("open failed")
		} else {
			startup.LogManifestInit(manifest.Path(), time.Since(manifestStart))
			observers = append(observers, manifest)
			collector = metrics.NewCollector(manifest, collectorInterval)
			collector.Start()
		}
	} else {
		startup.LogManifestDisabled("cache or manifest disabled")
	}

	conv, err := converter.New(config.ConverterConfig(converter.Observers(observers...)))
	if err != nil {
		startup.LogFatal("Failed to create converter: %v", err)
	}
	if err := conv.Initialize(); err != nil {
		startup.LogFatal("Failed to initialize conversion cache: %v", err)
	}

	encoder, err := startup.CheckEncoder(context.Background(), config)
	if err != nil {
		startup.LogFatal("Encoder check failed: %v", err)
	}
	if encoder != nil {
		metrics.SetEncoderInfo(encoder.Path, encoder.Version, true)
	} else {
		metrics.SetEncoderInfo(config.FFmpegPath, "", false)
	}

	publisher, err := feed.NewPublisher(config.VideoDir)
	if err != nil {
		startup.LogFatal("Failed to create feed publisher: %v", err)
	}
	swapper := feed.NewSwapper(conv, publisher)

	if config.DefaultFeed != "" {
		if err := publishDefaultFeed(context.Background(), swapper, config); err != nil {
			startup.LogFatal("Failed to publish default feed: %v", err)
		}
	}

	h := handlers.New(conv, swapper, manifest, encoder, config)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	srv := newAppServer(config.Port, handler)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go handleShutdown(sigChan, shutdownDone, srv, metricsSrv, collector, manifest)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for the rest.
	<-shutdownDone
}

// publishDefaultFeed makes DEFAULT_FEED the default worker's camera.
func publishDefaultFeed(ctx context.Context, swapper *feed.Swapper, config *startup.Config) error {
	start := time.Now()
	info, err := swapper.Swap(ctx, config.DefaultWorker, config.DefaultFeed)
	if err != nil {
		return err
	}
	startup.LogDefaultFeed(config.DefaultWorker, config.DefaultFeed, info.Path, time.Since(start))
	return nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", h.GetVersion).Methods("GET")
	api.HandleFunc("/convert", h.Convert).Methods("POST")

	// Feeds
	api.HandleFunc("/feeds/{worker}", h.GetFeed).Methods("GET")
	api.HandleFunc("/feeds/{worker}", h.SwapFeed).Methods("PUT")
	api.HandleFunc("/feeds/{worker}", h.RemoveFeed).Methods("DELETE")
	api.HandleFunc("/feeds/{worker}/stream", h.StreamFeed).Methods("GET", "HEAD")
	api.HandleFunc("/feeds/{worker}/capabilities", h.GetCapabilities).Methods("GET")
	api.HandleFunc("/feeds/{worker}/capabilities", h.MergeCapabilities).Methods("POST")

	// Cache
	api.HandleFunc("/cache", h.GetCache).Methods("GET")
	api.HandleFunc("/cache", h.ClearCache).Methods("DELETE")
	api.HandleFunc("/cache/lookup", h.LookupCache).Methods("GET")
	api.HandleFunc("/cache/prune", h.PruneCache).Methods("POST")

	return r
}

// newAppServer has no write timeout: a swap on a cache miss lasts as long as
// the encoder does.
func newAppServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// handleShutdown waits for a signal, stops everything and then closes done.
func handleShutdown(sigChan <-chan os.Signal, done chan<- struct{}, srv, metricsSrv *http.Server, collector *metrics.Collector, manifest *database.Database) {
	defer close(done)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("HTTP server", srv.Shutdown(ctx))
	if metricsSrv != nil {
		startup.LogShutdownStep("Metrics server", metricsSrv.Shutdown(ctx))
	}
	if collector != nil {
		collector.Stop()
		startup.LogShutdownStep("Metrics collector", nil)
	}
	if manifest != nil {
		startup.LogShutdownStep("Cache manifest", manifest.Close())
	}

	startup.LogShutdownComplete()
}
