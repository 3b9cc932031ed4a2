package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIN REPORT HANDLER
// Handles photo messages whose caption mentions the winner. Detection is
// the domain's job; this handler only records the win and confirms it.
// ══════════════════════════════════════════════════════════════════════════════

// WinReportHandler records detected wins and builds the confirmation reply.
type WinReportHandler struct {
	store  tally.Store
	logger *slog.Logger
}

// NewWinReportHandler creates a new WinReportHandler.
func NewWinReportHandler(store tally.Store, logger *slog.Logger) *WinReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WinReportHandler{
		store:  store,
		logger: logger,
	}
}

// WinReportRequest contains a detected win together with the message it
// came from, so the confirmation can be sent as a reply.
type WinReportRequest struct {
	ChatID    int64
	MessageID int64
	Report    tally.WinReport
}

// Handle increments the winner's tally and confirms in the chat.
// A storage failure must not produce a false confirmation, so on error
// the handler logs the dropped win and stays silent.
func (h *WinReportHandler) Handle(ctx context.Context, req WinReportRequest) (Response, error) {
	total, err := h.store.Increment(ctx, req.Report.Identity)
	if err != nil {
		h.logger.Error("win report dropped, tally store unavailable",
			"identity", req.Report.Identity,
			"chat_id", req.ChatID,
			"error", err,
		)
		return Response{}, fmt.Errorf("increment tally for %q: %w", req.Report.Identity, err)
	}

	h.logger.Info("win recorded",
		"identity", req.Report.Identity,
		"total_wins", total,
		"chat_id", req.ChatID,
	)

	return Response{
		Text:             fmt.Sprintf("Counted a Catan win for %s!", req.Report.Mention),
		ReplyToMessageID: req.MessageID,
	}, nil
}
