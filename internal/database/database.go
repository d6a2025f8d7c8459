package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"camfeed/internal/logging"
	"camfeed/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// ManifestFileName is the manifest database file inside the cache directory.
const ManifestFileName = "manifest.db"

// Database is the cache manifest: a record of every cache entry the converter
// has produced, with sizes, encode times and hit counts. It is informational;
// whether a conversion is a cache hit is always decided by the file on disk.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (creating if needed) the manifest at dbPath. The parent directory
// must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Manifest path: %s", dbPath)

	// Use WAL mode so the CLI can read while the server writes.
	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close manifest after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to manifest: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close manifest after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize manifest schema: %w", err)
	}

	logging.Info("Manifest initialized at %s", dbPath)
	return d, nil
}

// Open opens the manifest inside cacheDir, creating the directory if needed.
func Open(ctx context.Context, cacheDir string) (*Database, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return New(ctx, filepath.Join(cacheDir, ManifestFileName))
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		fingerprint TEXT NOT NULL,
		extension TEXT NOT NULL,
		output_path TEXT NOT NULL,
		source_path TEXT NOT NULL,
		format_class TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		encode_ms INTEGER NOT NULL DEFAULT 0,
		hits INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		last_used_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (fingerprint, extension)
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_last_used ON cache_entries(last_used_at);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Path returns the manifest file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the manifest.
func (d *Database) Close() error {
	return d.db.Close()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
