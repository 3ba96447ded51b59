// Package store persists generated knowledge scans in a local SQLite
// database so they can be listed, reopened and exported after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/kscan/internal/api"
)

// Disabled is the KSCAN_SCAN_DB value that turns persistence off.
const Disabled = "disabled"

// ErrNotFound is returned by Get when no scan has the requested ID.
var ErrNotFound = errors.New("store: scan not found")

// ScanStore persists knowledge scans. Implementations must be safe for
// concurrent use.
type ScanStore interface {
	// Save inserts or replaces scan, keyed by its ID.
	Save(ctx context.Context, scan *api.KnowledgeScan) error
	// Get returns the scan with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*api.KnowledgeScan, error)
	// Recent returns up to n scan summaries, newest first.
	Recent(ctx context.Context, n int) ([]api.ScanSummary, error)
	// Ping checks the database is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a ScanStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns ~/.kscan/scans.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".kscan")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "scans.db"), nil
}

// OpenFromEnv opens the store at KSCAN_SCAN_DB (default DefaultDBPath). It
// returns (nil, nil) when KSCAN_SCAN_DB is "disabled".
func OpenFromEnv() (*SQLiteStore, error) {
	path := os.Getenv("KSCAN_SCAN_DB")
	if path == Disabled {
		return nil, nil
	}
	if path == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return Open(path)
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single connection: avoids SQLITE_BUSY and keeps ":memory:" to one database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS scans (
    id          TEXT    PRIMARY KEY,
    query       TEXT    NOT NULL,
    doc_count   INTEGER NOT NULL,
    body        TEXT    NOT NULL,  -- JSON-encoded api.KnowledgeScan
    created_at  INTEGER NOT NULL   -- Unix timestamp (milliseconds)
);
CREATE INDEX IF NOT EXISTS idx_scans_created ON scans (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Save inserts or replaces scan. A zero CreatedAt is set to now.
func (s *SQLiteStore) Save(ctx context.Context, scan *api.KnowledgeScan) error {
	if scan.ID == "" {
		return fmt.Errorf("store: save: scan has no id")
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(scan)
	if err != nil {
		return fmt.Errorf("store: save: marshal: %w", err)
	}

	const q = `
INSERT INTO scans (id, query, doc_count, body, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    query = excluded.query, doc_count = excluded.doc_count,
    body = excluded.body, created_at = excluded.created_at`
	if _, err := s.db.ExecContext(ctx, q, scan.ID, scan.Query, len(scan.DocIDs), string(body), scan.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

// Get returns the scan with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*api.KnowledgeScan, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM scans WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}

	var scan api.KnowledgeScan
	if err := json.Unmarshal([]byte(body), &scan); err != nil {
		return nil, fmt.Errorf("store: get: decode %s: %w", id, err)
	}
	return &scan, nil
}

// Recent returns up to n summaries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]api.ScanSummary, error) {
	const q = `
SELECT id, query, doc_count, created_at
FROM   scans
ORDER  BY created_at DESC, rowid DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	out := []api.ScanSummary{}
	for rows.Next() {
		var sum api.ScanSummary
		var ms int64
		if err := rows.Scan(&sum.ID, &sum.Query, &sum.Documents, &ms); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		sum.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
