package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"camfeed/internal/converter"
	"camfeed/internal/logging"
	"camfeed/internal/metrics"
	"camfeed/internal/mediatypes"
)

// ObserveCacheHit bumps the hit count of the entry, inserting it when the file
// predates the manifest.
func (d *Database) ObserveCacheHit(entry converter.Entry) {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_hit", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	now := time.Now().Unix()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO cache_entries (fingerprint, extension, output_path, source_path, format_class, size_bytes, hits, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(fingerprint, extension) DO UPDATE SET
			hits = hits + 1,
			last_used_at = excluded.last_used_at,
			source_path = excluded.source_path
	`, entry.Fingerprint, filepath.Ext(entry.Output), entry.Output, entry.Source,
		string(entry.Class), fileSize(entry.Output), now, now)
	if err != nil {
		logging.Warn("Manifest: failed to record hit for %s: %v", entry.Fingerprint, err)
	}
}

// ObserveCacheMiss is a no-op; the row is written once the encoder succeeds.
func (d *Database) ObserveCacheMiss(converter.Entry) {}

// ObserveConversion records a successful conversion. Failed conversions leave
// no cache file and therefore no row.
func (d *Database) ObserveConversion(entry converter.Entry, duration time.Duration, convErr error) {
	if convErr != nil {
		return
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("record_conversion", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	now := time.Now().Unix()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO cache_entries (fingerprint, extension, output_path, source_path, format_class, size_bytes, encode_ms, hits, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(fingerprint, extension) DO UPDATE SET
			output_path = excluded.output_path,
			source_path = excluded.source_path,
			format_class = excluded.format_class,
			size_bytes = excluded.size_bytes,
			encode_ms = excluded.encode_ms,
			last_used_at = excluded.last_used_at
	`, entry.Fingerprint, filepath.Ext(entry.Output), entry.Output, entry.Source,
		string(entry.Class), fileSize(entry.Output), duration.Milliseconds(), now, now)
	if err != nil {
		logging.Warn("Manifest: failed to record conversion of %s: %v", entry.Source, err)
	}
}

// List returns all manifest entries, most recently used first.
func (d *Database) List(ctx context.Context) ([]CacheEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT fingerprint, extension, output_path, source_path, format_class,
		       size_bytes, encode_ms, hits, created_at, last_used_at
		FROM cache_entries
		ORDER BY last_used_at DESC, fingerprint
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close manifest rows: %v", closeErr)
		}
	}()

	entries := []CacheEntry{}
	for rows.Next() {
		var e CacheEntry
		var created, lastUsed int64
		if err = rows.Scan(&e.Fingerprint, &e.Extension, &e.OutputPath, &e.SourcePath, &e.FormatClass,
			&e.SizeBytes, &e.EncodeMs, &e.Hits, &created, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan manifest row: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		e.LastUsedAt = time.Unix(lastUsed, 0)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate manifest: %w", err)
	}
	return entries, nil
}

// Stats returns aggregate manifest statistics.
func (d *Database) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s Stats
	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(size_bytes), 0),
		       COALESCE(SUM(hits), 0),
		       COALESCE(SUM(CASE WHEN format_class = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN format_class = ? THEN 1 ELSE 0 END), 0)
		FROM cache_entries
	`, string(mediatypes.ConvertibleVideo), string(mediatypes.ConvertibleImage)).
		Scan(&s.Entries, &s.SizeBytes, &s.Hits, &s.VideoEntries, &s.ImageEntries)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read manifest stats: %w", err)
	}
	return s, nil
}

// GetStats implements metrics.StatsProvider. Errors are logged and reported as zero.
func (d *Database) GetStats() metrics.Stats {
	s, err := d.Stats(context.Background())
	if err != nil {
		logging.Warn("Manifest stats unavailable: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{Entries: s.Entries, SizeBytes: s.SizeBytes, Hits: s.Hits}
}

// Reset deletes every manifest row and returns how many were removed.
func (d *Database) Reset(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("reset", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM cache_entries")
	if err != nil {
		return 0, fmt.Errorf("failed to reset manifest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset rows: %w", err)
	}
	logging.Info("Manifest reset: removed %d entries", n)
	return n, nil
}

// Prune deletes rows whose cache file no longer exists and returns how many were removed.
func (d *Database) Prune(ctx context.Context) (int, error) {
	entries, err := d.List(ctx)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() { recordQuery("prune", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	removed := 0
	for _, e := range entries {
		if _, statErr := os.Stat(e.OutputPath); statErr == nil {
			continue
		}
		if _, err = d.db.ExecContext(ctx,
			"DELETE FROM cache_entries WHERE fingerprint = ? AND extension = ?",
			e.Fingerprint, e.Extension); err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", e.Fingerprint, err)
		}
		removed++
	}
	if removed > 0 {
		logging.Info("Manifest pruned %d entries with missing files", removed)
	}
	return removed, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
