// Package database maintains the SQLite cache manifest for camfeed.
//
// The manifest lives next to the cache entries (<video dir>/.cache/manifest.db)
// and records, for every entry the converter has produced, the source it came
// from, its size, how long the encoder took and how often it has been served
// since. *Database implements converter.Observer so it can be attached to a
// converter directly, and metrics.StatsProvider so the metrics collector can
// export cache size gauges from it.
//
// The manifest never decides whether a conversion is a cache hit; that is
// always the existence of the cache file itself. A missing or stale manifest
// only affects reporting.
//
// The database uses WAL mode so the CLI can read while the server writes.
package database
