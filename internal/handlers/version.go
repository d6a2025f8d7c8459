package handlers

import (
	"net/http"

	"camfeed/internal/startup"
)

// VersionResponse is the build information plus the detected encoder.
type VersionResponse struct {
	startup.BuildInfo
	Encoder        string `json:"encoder,omitempty"`
	EncoderVersion string `json:"encoderVersion,omitempty"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response := VersionResponse{BuildInfo: startup.GetBuildInfo()}
	if h.encoder != nil {
		response.Encoder = h.encoder.Path
		response.EncoderVersion = h.encoder.Version
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}
