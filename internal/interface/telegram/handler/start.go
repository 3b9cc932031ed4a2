// Package handler contains Telegram command and message handlers.
// Each handler follows the pattern: receive update → call domain layer →
// format response. Handlers never talk to the Telegram API themselves;
// they return a Response and the bot sends it.
package handler

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED RESPONSE TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Response is what a handler wants sent back to the chat.
type Response struct {
	// Text is the message body. Empty means nothing should be sent.
	Text string

	// ParseMode is "" for plain text or "Markdown".
	ParseMode string

	// ReplyToMessageID, when set, makes the response a reply to that message.
	ReplyToMessageID int64
}

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// Handles /start - introduces the bot to the chat.
// ══════════════════════════════════════════════════════════════════════════════

// GreetingText is the /start response.
const GreetingText = "Hello! I will track who wins Catan in this chat."

// StartHandler handles the /start command.
type StartHandler struct{}

// NewStartHandler creates a new StartHandler.
func NewStartHandler() *StartHandler {
	return &StartHandler{}
}

// Handle processes the /start command.
func (h *StartHandler) Handle(ctx context.Context, req StartRequest) (Response, error) {
	return Response{Text: GreetingText}, nil
}

// StartRequest contains the parsed /start command data.
type StartRequest struct {
	// ChatID is the chat the command came from.
	ChatID int64
}
