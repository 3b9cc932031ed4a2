// Package presenter formats data for Telegram display.
// Presenters handle the conversion from domain objects to the exact
// message text and parse mode sent back to the chat.
package presenter

import (
	"fmt"
	"strings"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD PRESENTER
// Renders the win tallies as a Markdown leaderboard, most wins first.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardHeader is the bold title line of the leaderboard message.
const LeaderboardHeader = "**Catan Wins Leaderboard**"

// EmptyLeaderboardText is sent when no wins have been recorded yet.
const EmptyLeaderboardText = "No wins recorded yet!"

// LeaderboardView contains the formatted message ready to send.
type LeaderboardView struct {
	// Text is the message body.
	Text string

	// ParseMode is "" for plain text or "Markdown" for the full board.
	ParseMode string
}

// LeaderboardPresenter formats leaderboard entries for Telegram.
type LeaderboardPresenter struct{}

// NewLeaderboardPresenter creates a new leaderboard presenter.
func NewLeaderboardPresenter() *LeaderboardPresenter {
	return &LeaderboardPresenter{}
}

// FormatLeaderboard renders the entries into a Telegram message.
// Entries are displayed in the order given; callers sort beforehand.
// An empty board produces a plain-text message without Markdown so
// nothing in it can trip entity parsing.
func (p *LeaderboardPresenter) FormatLeaderboard(entries []tally.LeaderboardEntry) LeaderboardView {
	if len(entries) == 0 {
		return LeaderboardView{Text: EmptyLeaderboardText}
	}

	var sb strings.Builder
	sb.WriteString(LeaderboardHeader)
	sb.WriteString("\n")

	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("@%s: %d\n", entry.Identity, entry.Wins))
	}

	return LeaderboardView{
		Text:      strings.TrimRight(sb.String(), "\n"),
		ParseMode: "Markdown",
	}
}
