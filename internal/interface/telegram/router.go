package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/catan-hub/catan-wins-bot/internal/infrastructure/external/telegram"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Maps bot commands to their handlers. The set of commands is fixed at
// startup; registration after Start would race with the polling loop,
// so the router locks anyway to keep the contract honest.
// ══════════════════════════════════════════════════════════════════════════════

// CommandContext carries the parsed command and its origin to handlers.
type CommandContext struct {
	// ChatID is the chat the command was sent in.
	ChatID int64

	// MessageID is the message carrying the command.
	MessageID int64

	// FromID is the Telegram user who issued the command (0 if unknown).
	FromID int64

	// Command is the command name without the leading slash.
	Command string

	// Message is the full originating message.
	Message *telegram.Message
}

// CommandHandler handles a single bot command.
type CommandHandler interface {
	// Handle processes the command and returns an error if processing failed.
	Handle(ctx context.Context, cmdCtx CommandContext) error
}

// CommandHandlerFunc adapts a function to the CommandHandler interface.
type CommandHandlerFunc func(ctx context.Context, cmdCtx CommandContext) error

// Handle implements CommandHandler.
func (f CommandHandlerFunc) Handle(ctx context.Context, cmdCtx CommandContext) error {
	return f(ctx, cmdCtx)
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger
	Debug  bool
}

// Router routes commands to registered handlers.
type Router struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
	logger   *slog.Logger
	debug    bool
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		commands: make(map[string]CommandHandler),
		logger:   logger,
		debug:    config.Debug,
	}
}

// RegisterCommand registers a handler for a command name (without slash).
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[command] = handler
}

// Commands returns the registered command names.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// HandleCommand routes a command to its handler. Unknown commands are
// ignored silently; group chats see plenty of commands meant for other
// bots and answering them would be noise.
func (r *Router) HandleCommand(ctx context.Context, cmdCtx CommandContext) error {
	r.mu.RLock()
	h, ok := r.commands[cmdCtx.Command]
	r.mu.RUnlock()

	if !ok {
		if r.debug {
			r.logger.Debug("unknown command ignored",
				"command", cmdCtx.Command,
				"chat_id", cmdCtx.ChatID,
			)
		}
		return nil
	}

	if err := h.Handle(ctx, cmdCtx); err != nil {
		return fmt.Errorf("command /%s: %w", cmdCtx.Command, err)
	}
	return nil
}
