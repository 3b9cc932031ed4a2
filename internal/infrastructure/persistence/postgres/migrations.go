package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE WINNERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create winners table
-- Version: 001

CREATE TABLE IF NOT EXISTS winners (
    identity TEXT PRIMARY KEY,
    wins INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_wins CHECK (wins >= 0)
);

-- Leaderboard reads sort by count first.
CREATE INDEX IF NOT EXISTS idx_winners_wins ON winners(wins DESC, identity ASC);
`

const migration001Down = `
DROP TABLE IF EXISTS winners;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_winners",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
	}
}
