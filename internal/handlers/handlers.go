package handlers

import (
	"path/filepath"
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/database"
	"camfeed/internal/feed"
	"camfeed/internal/startup"
	"camfeed/internal/streaming"
)

// Handlers serves the feed and cache API.
type Handlers struct {
	converter    *converter.Converter
	swapper      *feed.Swapper
	manifest     *database.Database // nil when the manifest is disabled
	encoder      *converter.EncoderInfo
	streamConfig streaming.Config
	videoDir     string
	started      time.Time
}

// New returns handlers for the given components. manifest and encoder may be nil.
func New(conv *converter.Converter, swapper *feed.Swapper, manifest *database.Database, encoder *converter.EncoderInfo, config *startup.Config) *Handlers {
	streamConfig := streaming.DefaultConfig()
	streamConfig.WriteTimeout = config.StreamWriteTimeout

	return &Handlers{
		converter:    conv,
		swapper:      swapper,
		manifest:     manifest,
		encoder:      encoder,
		streamConfig: streamConfig,
		videoDir:     config.VideoDir,
		started:      time.Now(),
	}
}

// resolveSource interprets relative request paths against the video directory.
func (h *Handlers) resolveSource(source string) string {
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Join(h.videoDir, source)
}
