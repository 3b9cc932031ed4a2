// Package tally contains the domain model for the Catan win tally.
// A win is a photo posted to the group chat with an @mention in its
// caption; the mentioned player's counter goes up by one. The package
// has zero external dependencies: storage and transport live in
// infrastructure and are injected through the Store interface.
package tally

import (
	"context"
	"errors"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStorageUnavailable indicates the persistence layer could not be
	// opened or written. Losing a win update is a correctness violation,
	// so store implementations must wrap their failures with this error
	// instead of swallowing them.
	ErrStorageUnavailable = errors.New("tally: storage unavailable")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// WinRecord is the durable per-player tally. Identity is the chat handle
// without the leading sigil, case-sensitive; at most one record exists
// per identity. Wins never decreases.
type WinRecord struct {
	Identity string
	Wins     int64
}

// LeaderboardEntry is a (identity, wins) pair as rendered in /stats.
type LeaderboardEntry struct {
	Identity string
	Wins     int64
}

// SortEntries orders entries by wins descending, ties broken by identity
// ascending. The tie-break keeps leaderboard output deterministic across
// repeated reads regardless of which store produced the slice.
func SortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Identity < entries[j].Identity
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Store is the durable win counter. Implementations must commit each
// mutation before returning and must make Increment atomic with respect
// to concurrent callers: two increments for the same identity may never
// lose an update, and readers may never observe a half-written record.
type Store interface {
	// Get returns the stored count for identity, or 0 when the identity
	// has never been seen. Absence is not an error.
	Get(ctx context.Context, identity string) (int64, error)

	// Increment adds one win to identity, creating the record on first
	// use, and returns the new count.
	Increment(ctx context.Context, identity string) (int64, error)

	// ListAll returns every record ordered by wins descending, identity
	// ascending. An empty tally yields an empty slice, not an error.
	ListAll(ctx context.Context) ([]LeaderboardEntry, error)
}
