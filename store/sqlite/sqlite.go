/*
Package sqlite provides the SQLite-backed staging store.

PURPOSE:
  Implements settle.KV on a local SQLite file. The settlement workflow
  stages exception timelog entries here between the month-close commit
  and reconciliation, so an interrupted run can resume after a restart.

SCHEMA:
  staging(key TEXT PRIMARY KEY, value TEXT NOT NULL)

  One flat key-value table. The key layout (entry count, per-index
  entries, session token, prior-month flag) lives in the settle
  package; this store only moves strings.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety alongside SQLite's own locking.
  One workflow process owns the staging file at a time; the mutex
  covers concurrent goroutines inside that process.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better crash
  recovery of the staged set.

USAGE:
  kv, err := sqlite.New("./settlement-staging.db")
  if err != nil {
      log.Fatal(err)
  }
  defer kv.Close()

  machine := settle.NewMachine(gatewayClient, kv)

SEE ALSO:
  - settle/staging.go: key layout and staged-set codec
  - settle/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements settle.KV using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite staging store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS staging (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value stored under key, with ok=false when absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM staging WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO staging (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Clear removes every staged key in a single statement.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM staging`); err != nil {
		return fmt.Errorf("failed to clear staging: %w", err)
	}
	return nil
}

// Len reports the number of staged keys.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM staging`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count staging keys: %w", err)
	}
	return n, nil
}
