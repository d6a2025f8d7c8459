// Package handlers provides HTTP request handlers for the camfeed API.
//
// It includes handlers for:
//   - Swapping, reading, downloading and removing per-worker camera feeds
//   - Browser capabilities for a worker's fake camera
//   - Converting sources and inspecting or clearing the conversion cache
//   - Health checks and version information
//
// Source paths in requests may be absolute or relative to the video directory.
// Errors are JSON objects with an "error" field; converter errors map to 404
// (source missing), 415 (unsupported format), 502 (encoder failed) and 503
// (encoder unavailable).
package handlers
