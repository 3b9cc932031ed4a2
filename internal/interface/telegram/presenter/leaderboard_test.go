package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
)

func TestFormatLeaderboard_Empty(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatLeaderboard(nil)

	assert.Equal(t, "No wins recorded yet!", view.Text)
	assert.Empty(t, view.ParseMode)
}

func TestFormatLeaderboard_RendersEntriesInOrder(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatLeaderboard([]tally.LeaderboardEntry{
		{Identity: "bob", Wins: 5},
		{Identity: "alice", Wins: 3},
	})

	assert.Equal(t, "**Catan Wins Leaderboard**\n@bob: 5\n@alice: 3", view.Text)
	assert.Equal(t, "Markdown", view.ParseMode)
}

func TestFormatLeaderboard_SingleEntryNoTrailingNewline(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatLeaderboard([]tally.LeaderboardEntry{
		{Identity: "dana", Wins: 1},
	})

	assert.Equal(t, "**Catan Wins Leaderboard**\n@dana: 1", view.Text)
}

func TestFormatLeaderboard_EmptyIdentityStillListed(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatLeaderboard([]tally.LeaderboardEntry{
		{Identity: "", Wins: 2},
	})

	assert.Equal(t, "**Catan Wins Leaderboard**\n@: 2", view.Text)
}
