package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/relayfetch/internal/model"
)

// dbFileName is the history database file name inside the data directory.
const dbFileName = "relayfetch.db"

// DB provides SQLite-based storage for fetch outcomes.
// It manages connection pooling and provides methods for saving and
// querying records.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a history DB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created. If false and the database doesn't exist, an error is returned;
// the history command uses this so that merely inspecting history never
// creates an empty database.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses DSN query parameters for open modes.
	// mode=rw prevents creating new files; mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer; multiple connections just contend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &DB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

// Path returns the path of the underlying database file.
func (h *DB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *DB) createTables() error {
	schema := `
	-- Fetch records store individual request outcomes
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		profile TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		status_code INTEGER,
		content_type TEXT,
		body_size INTEGER,
		via_proxy INTEGER NOT NULL DEFAULT 0,
		fell_back INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_url ON fetches(url);
	CREATE INDEX IF NOT EXISTS idx_fetches_profile ON fetches(profile);
	CREATE INDEX IF NOT EXISTS idx_fetches_timestamp ON fetches(timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Record is a stored fetch outcome.
type Record struct {
	ID          int64
	URL         string
	Profile     string
	Timestamp   time.Time
	StatusCode  int
	ContentType string
	BodySize    int64
	ViaProxy    bool
	FellBack    bool
	Duration    time.Duration
	Error       string
}

// Save stores a fetch result under the given profile name.
// The profile may be empty for direct fetches.
func (h *DB) Save(ctx context.Context, profile string, r *model.FetchResult) error {
	const query = `
	INSERT INTO fetches
		(url, profile, timestamp, status_code, content_type, body_size,
		 via_proxy, fell_back, duration_ms, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.ExecContext(ctx, query,
		r.URL,
		profile,
		r.FetchedAt.UTC(),
		r.StatusCode,
		r.ContentType,
		r.BodySize,
		boolToInt(r.ViaProxy),
		boolToInt(r.FellBack),
		r.Duration.Milliseconds(),
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save fetch record: %w", err)
	}
	return nil
}

// SaveAll stores a batch of results under the given profile name.
// Nil entries are skipped. The batch is written in one transaction so a
// crash cannot leave a half-saved batch.
func (h *DB) SaveAll(ctx context.Context, profile string, results []*model.FetchResult) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
	INSERT INTO fetches
		(url, profile, timestamp, status_code, content_type, body_size,
		 via_proxy, fell_back, duration_ms, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, r := range results {
		if r == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, query,
			r.URL,
			profile,
			r.FetchedAt.UTC(),
			r.StatusCode,
			r.ContentType,
			r.BodySize,
			boolToInt(r.ViaProxy),
			boolToInt(r.FellBack),
			r.Duration.Milliseconds(),
			r.Error,
		); err != nil {
			return fmt.Errorf("failed to save fetch record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fetch records: %w", err)
	}
	return nil
}

// Recent returns the most recent fetch records, newest first.
func (h *DB) Recent(ctx context.Context, limit int) ([]Record, error) {
	const query = `
	SELECT id, url, profile, timestamp, status_code, content_type,
	       body_size, via_proxy, fell_back, duration_ms, error
	FROM fetches
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	return h.queryRecords(ctx, query, limit)
}

// ByProfile returns the most recent fetch records for one profile,
// newest first.
func (h *DB) ByProfile(ctx context.Context, profile string, limit int) ([]Record, error) {
	const query = `
	SELECT id, url, profile, timestamp, status_code, content_type,
	       body_size, via_proxy, fell_back, duration_ms, error
	FROM fetches
	WHERE profile = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	return h.queryRecords(ctx, query, profile, limit)
}

// queryRecords runs a SELECT over the fetches table and scans the rows.
func (h *DB) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			viaProxy   int
			fellBack   int
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.URL,
			&rec.Profile,
			&rec.Timestamp,
			&rec.StatusCode,
			&rec.ContentType,
			&rec.BodySize,
			&viaProxy,
			&fellBack,
			&durationMS,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fetch record: %w", err)
		}
		rec.ViaProxy = viaProxy != 0
		rec.FellBack = fellBack != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fetch records: %w", err)
	}

	return records, nil
}

// boolToInt converts a bool to the 0/1 SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
