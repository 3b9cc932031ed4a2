package handler

import (
	"context"
	"fmt"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
	"github.com/catan-hub/catan-wins-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS HANDLER
// Handles /stats - renders the full leaderboard from the tally store.
// ══════════════════════════════════════════════════════════════════════════════

// StatsHandler handles the /stats command.
type StatsHandler struct {
	store     tally.Store
	presenter *presenter.LeaderboardPresenter
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store tally.Store, p *presenter.LeaderboardPresenter) *StatsHandler {
	return &StatsHandler{
		store:     store,
		presenter: p,
	}
}

// StatsRequest contains the parsed /stats command data.
type StatsRequest struct {
	// ChatID is the chat the command came from.
	ChatID int64
}

// Handle processes the /stats command. The store returns entries in
// leaderboard order already; re-sorting here keeps the output stable
// even if a backing store forgets to.
func (h *StatsHandler) Handle(ctx context.Context, req StatsRequest) (Response, error) {
	entries, err := h.store.ListAll(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("list tallies: %w", err)
	}

	tally.SortEntries(entries)

	view := h.presenter.FormatLeaderboard(entries)
	return Response{
		Text:      view.Text,
		ParseMode: view.ParseMode,
	}, nil
}
