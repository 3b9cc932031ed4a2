// Package sqlite implements the win tally store on an embedded SQLite
// database. This is the default backend: the storage location is a plain
// file path, which keeps single-chat deployments free of any external
// database. The pure-Go modernc.org/sqlite driver is used so builds stay
// CGO-free.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
)

const schema = `
CREATE TABLE IF NOT EXISTS winners (
    identity TEXT PRIMARY KEY,
    wins     INTEGER NOT NULL DEFAULT 0 CHECK (wins >= 0)
)`

// Store is a tally.Store backed by a single SQLite file.
//
// SQLite serializes writers itself, but the increment is still guarded by
// a process-local mutex so the read-modify-write is atomic even if the
// driver is ever swapped for one without that guarantee. Reads go through
// the same *sql.DB and never observe a partial row.
type Store struct {
	db *sql.DB

	// mu serializes mutating statements.
	mu sync.Mutex
}

// Open opens (creating if needed) the tally database at path and ensures
// the winners table exists. The parent directory is created on demand.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", tally.ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", tally.ErrStorageUnavailable, path, err)
	}

	// A tally bot has no use for connection-level parallelism, and a
	// single connection sidesteps SQLITE_BUSY between pooled handles.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", tally.ErrStorageUnavailable, path, err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set busy_timeout: %v", tally.ErrStorageUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create winners table: %v", tally.ErrStorageUnavailable, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the win count for identity, 0 when absent.
func (s *Store) Get(ctx context.Context, identity string) (int64, error) {
	var wins int64
	err := s.db.QueryRowContext(ctx,
		`SELECT wins FROM winners WHERE identity = ?`, identity,
	).Scan(&wins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get %q: %v", tally.ErrStorageUnavailable, identity, err)
	}
	return wins, nil
}

// Increment adds one win to identity and returns the new count. The row
// is created on first increment. The statement commits before returning.
func (s *Store) Increment(ctx context.Context, identity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wins int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO winners (identity, wins) VALUES (?, 1)
		ON CONFLICT (identity) DO UPDATE SET wins = wins + 1
		RETURNING wins
	`, identity).Scan(&wins)
	if err != nil {
		return 0, fmt.Errorf("%w: increment %q: %v", tally.ErrStorageUnavailable, identity, err)
	}
	return wins, nil
}

// ListAll returns every record ordered by wins descending, ties broken by
// identity ascending.
func (s *Store) ListAll(ctx context.Context) ([]tally.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, wins FROM winners
		ORDER BY wins DESC, identity ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list winners: %v", tally.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	entries := make([]tally.LeaderboardEntry, 0)
	for rows.Next() {
		var e tally.LeaderboardEntry
		if err := rows.Scan(&e.Identity, &e.Wins); err != nil {
			return nil, fmt.Errorf("%w: scan winner: %v", tally.ErrStorageUnavailable, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list winners: %v", tally.ErrStorageUnavailable, err)
	}

	return entries, nil
}
