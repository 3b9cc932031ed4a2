// Package telegram implements the Telegram interface of the Catan wins bot.
// This package is the entry point for all Telegram interactions: it runs
// the polling loop, routes commands, and turns photo-with-mention messages
// into recorded wins.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
	"github.com/catan-hub/catan-wins-bot/internal/infrastructure/external/telegram"
	"github.com/catan-hub/catan-wins-bot/internal/interface/telegram/handler"
	"github.com/catan-hub/catan-wins-bot/internal/interface/telegram/middleware"
	"github.com/catan-hub/catan-wins-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// PollingTimeout is the timeout for long polling (in seconds).
	PollingTimeout int

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout bounds how long Stop waits for in-flight
	// handlers.
	GracefulShutdownTimeout time.Duration

	// RegisterCommands controls whether the bot calls setMyCommands on
	// startup so clients offer command completion.
	RegisterCommands bool

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:                   token,
		PollingTimeout:          30,
		MaxConcurrentUpdates:    100,
		GracefulShutdownTimeout: 30 * time.Second,
		RegisterCommands:        true,
		Logger:                  slog.Default(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	logger *slog.Logger

	winHandler *handler.WinReportHandler
	recovery   *middleware.RecoveryMiddleware

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	updateSem chan struct{}
	wg        sync.WaitGroup
}

// NewBot creates a new Telegram bot wired to the given tally store.
func NewBot(config BotConfig, store tally.Store) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if store == nil {
		return nil, errors.New("tally store is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = 100
	}

	clientConfig := telegram.DefaultClientConfig(config.Token)
	clientConfig.Logger = config.Logger
	clientConfig.Debug = config.Debug
	if config.PollingTimeout > 0 {
		clientConfig.PollingTimeout = config.PollingTimeout
	}
	client := telegram.NewClient(clientConfig)

	return newBotWithClient(config, store, client)
}

// newBotWithClient finishes construction with an already-built client.
// Split out so tests can point the client at a local server.
func newBotWithClient(config BotConfig, store tally.Store, client *telegram.Client) (*Bot, error) {
	leaderboardPresenter := presenter.NewLeaderboardPresenter()

	startHandler := handler.NewStartHandler()
	statsHandler := handler.NewStatsHandler(store, leaderboardPresenter)
	winHandler := handler.NewWinReportHandler(store, config.Logger)

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = config.Logger
	recovery := middleware.NewRecoveryMiddleware(recoveryConfig)

	router := NewRouter(RouterConfig{
		Logger: config.Logger,
		Debug:  config.Debug,
	})

	bot := &Bot{
		config:     config,
		client:     client,
		router:     router,
		logger:     config.Logger,
		winHandler: winHandler,
		recovery:   recovery,
		updateSem:  make(chan struct{}, config.MaxConcurrentUpdates),
	}

	router.RegisterCommand("start", CommandHandlerFunc(func(ctx context.Context, cmdCtx CommandContext) error {
		resp, err := startHandler.Handle(ctx, handler.StartRequest{ChatID: cmdCtx.ChatID})
		if err != nil {
			return err
		}
		return bot.sendResponse(ctx, cmdCtx.ChatID, resp)
	}))

	router.RegisterCommand("stats", CommandHandlerFunc(func(ctx context.Context, cmdCtx CommandContext) error {
		resp, err := statsHandler.Handle(ctx, handler.StatsRequest{ChatID: cmdCtx.ChatID})
		if err != nil {
			return err
		}
		return bot.sendResponse(ctx, cmdCtx.ChatID, resp)
	}))

	return bot, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the bot and blocks polling for updates until the context
// is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.runningMu.Unlock()

	b.logger.Info("starting telegram bot", "debug", b.config.Debug)

	if err := b.verifyToken(ctx); err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}

	if b.config.RegisterCommands {
		if err := b.registerCommands(ctx); err != nil {
			// Command completion is a nicety, not a requirement.
			b.logger.Warn("failed to register bot commands", "error", err)
		}
	}

	return b.client.StartPolling(ctx, func(ctx context.Context, update *telegram.Update) error {
		return b.handleUpdate(ctx, update)
	})
}

// Stop gracefully stops the bot, waiting for in-flight handlers.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	b.logger.Info("stopping telegram bot")

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		b.logger.Warn("context cancelled during shutdown")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the bot is currently running.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// verifyToken verifies the bot token by calling getMe.
func (b *Bot) verifyToken(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}

	b.logger.Info("bot verified",
		"id", me.ID,
		"username", me.Username,
	)

	return nil
}

// registerCommands publishes the command list via setMyCommands.
func (b *Bot) registerCommands(ctx context.Context) error {
	return b.client.SetMyCommands(ctx, []telegram.BotCommand{
		{Command: "start", Description: "Introduce the bot"},
		{Command: "stats", Description: "Show the Catan wins leaderboard"},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// handleUpdate processes a single Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) error {
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	requestID := uuid.NewString()
	logger := b.logger.With("request_id", requestID, "update_id", update.UpdateID)
	start := time.Now()

	err := b.recovery.Run(ctx, update.UpdateID, func(ctx context.Context) error {
		if update.Message == nil {
			return nil
		}
		return b.handleMessage(ctx, logger, update.Message)
	})

	if err != nil {
		logger.Error("failed to handle update",
			"error", err,
			"duration", time.Since(start),
		)
	}

	return err
}

// handleMessage processes a Telegram message: commands first, then the
// win report flow for photo messages.
func (b *Bot) handleMessage(ctx context.Context, logger *slog.Logger, msg *telegram.Message) error {
	if msg == nil || msg.Chat == nil {
		return nil
	}

	if command := telegram.ExtractCommand(msg); command != "" {
		if b.config.Debug {
			logger.Debug("command received", "command", command, "chat_id", msg.Chat.ID)
		}

		cmdCtx := CommandContext{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Command:   command,
			Message:   msg,
		}
		if msg.From != nil {
			cmdCtx.FromID = msg.From.ID
		}
		return b.router.HandleCommand(ctx, cmdCtx)
	}

	if msg.HasPhoto() {
		return b.handlePhotoMessage(ctx, msg)
	}

	return nil
}

// handlePhotoMessage runs win detection on a photo message and records
// the win when the caption mentions the winner.
func (b *Bot) handlePhotoMessage(ctx context.Context, msg *telegram.Message) error {
	report, ok := tally.DetectWin(toTallyMessage(msg))
	if !ok {
		return nil
	}

	resp, err := b.winHandler.Handle(ctx, handler.WinReportRequest{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Report:    report,
	})
	if err != nil {
		// The dropped win is already logged; surfacing the error here
		// would only retry a reply we deliberately withhold.
		return nil
	}

	return b.sendResponse(ctx, msg.Chat.ID, resp)
}

// sendResponse delivers a handler response to the chat.
func (b *Bot) sendResponse(ctx context.Context, chatID int64, resp handler.Response) error {
	if resp.Text == "" {
		return nil
	}

	_, err := b.client.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:           chatID,
		Text:             resp.Text,
		ParseMode:        resp.ParseMode,
		ReplyToMessageID: resp.ReplyToMessageID,
	})
	if err != nil {
		return fmt.Errorf("send response: %w", err)
	}
	return nil
}

// toTallyMessage maps the wire message into the domain's view of it.
func toTallyMessage(msg *telegram.Message) tally.Message {
	annotations := make([]tally.Annotation, 0, len(msg.CaptionEntities))
	for _, entity := range msg.CaptionEntities {
		annotations = append(annotations, tally.Annotation{
			Kind:   entity.Type,
			Offset: entity.Offset,
			Length: entity.Length,
		})
	}

	return tally.Message{
		HasPhoto:    msg.HasPhoto(),
		Caption:     msg.Caption,
		Annotations: annotations,
	}
}
