package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"camfeed/internal/converter"
	"camfeed/internal/feed"
	"camfeed/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// statusForError maps converter and feed errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, feed.ErrInvalidWorker):
		return http.StatusBadRequest
	case errors.Is(err, converter.ErrSourceNotFound), errors.Is(err, feed.ErrNoFeed):
		return http.StatusNotFound
	case errors.Is(err, converter.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, converter.ErrEncoderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, converter.ErrConversionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and writes err with its mapped status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSONError(w, err.Error(), status)
}

// sourceRequest is the body of requests naming a source file.
type sourceRequest struct {
	Source string `json:"source"`
}

func decodeSource(w http.ResponseWriter, r *http.Request) (string, error) {
	var req sourceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		return "", errors.New("invalid request body")
	}
	if req.Source == "" {
		return "", errors.New("source is required")
	}
	return req.Source, nil
}
