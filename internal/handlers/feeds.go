package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"camfeed/internal/browser"
	"camfeed/internal/feed"
	"camfeed/internal/logging"
	"camfeed/internal/mediatypes"
	"camfeed/internal/metrics"
	"camfeed/internal/streaming"

	"github.com/gorilla/mux"
)

// FeedResponse describes a worker's feed and the browser flags that play it.
type FeedResponse struct {
	feed.Info
	Source string   `json:"source,omitempty"`
	Args   []string `json:"args"`
}

// CapabilitiesRequest carries browser flags to merge the fake camera into.
type CapabilitiesRequest struct {
	Args       []string `json:"args"`
	AutoAccept *bool    `json:"autoAccept"`
}

// SwapFeed converts the requested source and publishes it as the worker's feed.
func (h *Handlers) SwapFeed(w http.ResponseWriter, r *http.Request) {
	worker := mux.Vars(r)["worker"]

	source, err := decodeSource(w, r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.swapper.Swap(r.Context(), worker, h.resolveSource(source))
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeFeed(w, r, info, source)
}

// GetFeed returns the worker's current feed.
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	info, err := h.swapper.Publisher().Path(mux.Vars(r)["worker"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeFeed(w, r, info, "")
}

// RemoveFeed deletes the worker's feed files.
func (h *Handlers) RemoveFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.swapper.Publisher().Remove(mux.Vars(r)["worker"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, "ok")
}

// StreamFeed sends the worker's feed file itself, for harnesses that run the
// browser on another host.
func (h *Handlers) StreamFeed(w http.ResponseWriter, r *http.Request) {
	info, err := h.swapper.Publisher().Path(mux.Vars(r)["worker"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := os.Open(info.Path)
	if err != nil {
		metrics.FeedStreamsTotal.WithLabelValues("error").Inc()
		writeError(w, r, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", info.Path, err)
		}
	}()

	w.Header().Set("Content-Type", feedContentType(info.Path))
	w.Header().Set("Content-Length", strconv.FormatInt(info.SizeBytes, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	res, err := streaming.Copy(r.Context(), w, f, h.streamConfig)
	metrics.FeedStreamBytes.Add(float64(res.Bytes))
	switch {
	case err == nil:
		metrics.FeedStreamsTotal.WithLabelValues("success").Inc()
		logging.Debug("Streamed feed %s: %d bytes in %v", info.Path, res.Bytes, res.Duration)
	case errors.Is(err, streaming.ErrClientGone):
		metrics.FeedStreamsTotal.WithLabelValues("client_gone").Inc()
	case errors.Is(err, streaming.ErrWriteTimeout):
		metrics.FeedStreamsTotal.WithLabelValues("timeout").Inc()
		logging.Warn("Feed stream for %s timed out after %d bytes", info.Worker, res.Bytes)
	default:
		metrics.FeedStreamsTotal.WithLabelValues("error").Inc()
		logging.Warn("Feed stream for %s failed: %v", info.Worker, err)
	}
}

func feedContentType(path string) string {
	switch mediatypes.Extension(path) {
	case ".mjpeg":
		return "video/x-motion-jpeg"
	default:
		return "application/octet-stream"
	}
}

// GetCapabilities returns a goog:chromeOptions fragment for the worker's feed.
// The permission prompt is auto-accepted unless autoAccept=false is given.
func (h *Handlers) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	autoAccept := true
	if v := r.URL.Query().Get("autoAccept"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, "autoAccept must be a boolean", http.StatusBadRequest)
			return
		}
		autoAccept = parsed
	}

	cam, ok := h.fakeCamera(w, r, autoAccept)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, cam.ChromeOptions())
}

// MergeCapabilities merges the worker's fake camera flags into the posted args,
// replacing any fake-capture flags already present.
func (h *Handlers) MergeCapabilities(w http.ResponseWriter, r *http.Request) {
	var req CapabilitiesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	autoAccept := true
	if req.AutoAccept != nil {
		autoAccept = *req.AutoAccept
	}

	cam, ok := h.fakeCamera(w, r, autoAccept)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string][]string{"args": cam.Merge(req.Args)})
}

func (h *Handlers) fakeCamera(w http.ResponseWriter, r *http.Request, autoAccept bool) (browser.FakeCamera, bool) {
	info, err := h.swapper.Publisher().Path(mux.Vars(r)["worker"])
	if err != nil {
		writeError(w, r, err)
		return browser.FakeCamera{}, false
	}
	cam, err := browser.NewFakeCamera(info.Path, autoAccept)
	if err != nil {
		writeError(w, r, err)
		return browser.FakeCamera{}, false
	}
	return cam, true
}

func (h *Handlers) writeFeed(w http.ResponseWriter, r *http.Request, info feed.Info, source string) {
	cam, err := browser.NewFakeCamera(info.Path, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, FeedResponse{Info: info, Source: source, Args: cam.Args()})
}
