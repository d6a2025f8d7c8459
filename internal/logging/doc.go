// Package logging provides a simple leveled logging interface for camfeed.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (encoder argv, cache lookups)
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (or DEBUG=true)
// and may be overridden once configuration is loaded with SetLevel.
package logging
