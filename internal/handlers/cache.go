package handlers

import (
	"net/http"

	"camfeed/internal/database"
	"camfeed/internal/mediatypes"
)

// ConvertResponse is returned by Convert.
type ConvertResponse struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Native bool   `json:"native"`
}

// LookupResponse is returned by LookupCache.
type LookupResponse struct {
	Source string `json:"source"`
	Cached bool   `json:"cached"`
	Path   string `json:"path,omitempty"`
}

// CacheResponse summarizes the conversion cache.
type CacheResponse struct {
	CacheEnabled    bool                  `json:"cacheEnabled"`
	ManifestEnabled bool                  `json:"manifestEnabled"`
	OutputExtension string                `json:"outputExtension"`
	Stats           *database.Stats       `json:"stats,omitempty"`
	Entries         []database.CacheEntry `json:"entries"`
}

// ClearResponse is returned by ClearCache.
type ClearResponse struct {
	FreedBytes     int64 `json:"freedBytes"`
	ManifestRows   int64 `json:"manifestRows"`
	ManifestActive bool  `json:"manifestActive"`
}

// Convert converts a source without publishing it and returns the native path.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	source, err := decodeSource(w, r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	abs := h.resolveSource(source)
	output, err := h.converter.Convert(r.Context(), abs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ConvertResponse{
		Source: abs,
		Output: output,
		Native: mediatypes.Classify(abs) == mediatypes.Native,
	})
}

// LookupCache reports whether a converted file for ?source= is already cached.
func (h *Handlers) LookupCache(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		writeJSONError(w, "source is required", http.StatusBadRequest)
		return
	}

	abs := h.resolveSource(source)
	path, ok := h.converter.GetCachedPath(abs)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, LookupResponse{Source: abs, Cached: ok, Path: path})
}

// GetCache lists manifest entries and totals. Without a manifest only the
// cache settings are reported.
func (h *Handlers) GetCache(w http.ResponseWriter, r *http.Request) {
	response := CacheResponse{
		CacheEnabled:    h.converter.IsCacheEnabled(),
		ManifestEnabled: h.manifest != nil,
		OutputExtension: h.converter.OutputExtension(),
		Entries:         []database.CacheEntry{},
	}

	if h.manifest != nil {
		stats, err := h.manifest.Stats(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries, err := h.manifest.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Stats = &stats
		if entries != nil {
			response.Entries = entries
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// ClearCache removes every cache entry and empties the manifest.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	freed, err := h.converter.ClearCache()
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := ClearResponse{FreedBytes: freed, ManifestActive: h.manifest != nil}
	if h.manifest != nil {
		rows, err := h.manifest.Reset(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.ManifestRows = rows
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// PruneCache drops manifest rows whose cache file no longer exists.
func (h *Handlers) PruneCache(w http.ResponseWriter, r *http.Request) {
	if h.manifest == nil {
		writeJSONError(w, "cache manifest is disabled", http.StatusNotFound)
		return
	}

	removed, err := h.manifest.Prune(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]int{"removed": removed})
}
