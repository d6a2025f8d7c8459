// Package middleware provides HTTP middleware for the camfeed API server.
//
// It includes:
//   - Request logging in W3C Extended Log Format through the logging package
//   - Prometheus request metrics with bounded path labels
//   - Optional filtering of health check requests from the log
package middleware
