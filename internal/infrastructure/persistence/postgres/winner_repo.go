package postgres

import (
	"context"
	"fmt"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
)

// ══════════════════════════════════════════════════════════════════════════════
// WINNER REPOSITORY
// Implements tally.Store on the winners table. Increment is an upsert so
// the read-modify-write happens inside the database and stays atomic for
// concurrent callers without any process-level locking.
// ══════════════════════════════════════════════════════════════════════════════

// WinnerRepository implements tally.Store for PostgreSQL.
type WinnerRepository struct {
	conn *Connection
}

// NewWinnerRepository creates a new WinnerRepository.
func NewWinnerRepository(conn *Connection) *WinnerRepository {
	return &WinnerRepository{conn: conn}
}

// Get returns the win count for identity, 0 when absent.
func (r *WinnerRepository) Get(ctx context.Context, identity string) (int64, error) {
	var wins int64
	err := r.conn.QueryRow(ctx,
		`SELECT wins FROM winners WHERE identity = $1`, identity,
	).Scan(&wins)

	if IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get %q: %v", tally.ErrStorageUnavailable, identity, err)
	}

	return wins, nil
}

// Increment adds one win to identity and returns the new count.
func (r *WinnerRepository) Increment(ctx context.Context, identity string) (int64, error) {
	var wins int64
	err := r.conn.QueryRow(ctx, `
		INSERT INTO winners (identity, wins) VALUES ($1, 1)
		ON CONFLICT (identity) DO UPDATE SET wins = winners.wins + 1
		RETURNING wins
	`, identity).Scan(&wins)
	if err != nil {
		return 0, fmt.Errorf("%w: increment %q: %v", tally.ErrStorageUnavailable, identity, err)
	}

	return wins, nil
}

// ListAll returns every record ordered by wins descending, ties broken by
// identity ascending.
func (r *WinnerRepository) ListAll(ctx context.Context) ([]tally.LeaderboardEntry, error) {
	rows, err := r.conn.Query(ctx, `
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
