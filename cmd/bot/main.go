// Package main is the entry point of the Catan wins bot.
//
// The bot watches a group chat for photo messages whose caption mentions
// the winner, keeps a durable tally of wins per player, and answers
// /start and /stats. Architecture follows the layered layout:
//   - Domain: win detection and the tally store contract
//   - Infrastructure: SQLite/PostgreSQL stores, Redis cache, Telegram client
//   - Interface: the bot itself (polling loop, router, handlers)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/catan-hub/catan-wins-bot/config"
	"github.com/catan-hub/catan-wins-bot/internal/domain/tally"
	"github.com/catan-hub/catan-wins-bot/internal/infrastructure/persistence/postgres"
	rediscache "github.com/catan-hub/catan-wins-bot/internal/infrastructure/persistence/redis"
	"github.com/catan-hub/catan-wins-bot/internal/infrastructure/persistence/sqlite"
	"github.com/catan-hub/catan-wins-bot/internal/interface/telegram"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)

	log.Info("starting catan wins bot",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"storage", cfg.Storage.Backend,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. TALLY STORE (SQLite file or PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open tally store: %w", err)
	}
	defer func() {
		log.Info("closing tally store...")
		if err := closeStore(); err != nil {
			log.Warn("failed to close tally store", "error", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS LEADERBOARD CACHE (optional)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Redis.Enabled() {
		log.Info("connecting to redis...")
		cacheCfg := rediscache.DefaultConfig(cfg.Redis.URL)
		cacheCfg.TTL = cfg.Redis.TTL
		cacheCfg.DialTimeout = cfg.Redis.DialTimeout
		cacheCfg.ReadTimeout = cfg.Redis.ReadTimeout
		cacheCfg.WriteTimeout = cfg.Redis.WriteTimeout
		cacheCfg.Logger = log

		cache, err := rediscache.NewLeaderboardCache(ctx, cacheCfg, store)
		if err != nil {
			// The bot works without the cache, just slower /stats.
			log.Warn("redis unavailable, leaderboard cache disabled", "error", err)
		} else {
			defer func() {
				log.Info("closing redis connection...")
				_ = cache.Close()
			}()
			store = cache
			log.Info("redis leaderboard cache enabled", "ttl", cfg.Redis.TTL)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
	botConfig.PollingTimeout = int(cfg.Telegram.PollingTimeout / time.Second)
	botConfig.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	botConfig.RegisterCommands = cfg.Telegram.RegisterCommands
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log

	bot, err := telegram.NewBot(botConfig, store)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. RUN UNTIL SIGNALLED
	// ─────────────────────────────────────────────────────────────────────────
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Start(runCtx)
	}()

	select {
	case <-runCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot stopped: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := bot.Stop(shutdownCtx); err != nil {
		log.Warn("graceful stop failed", "error", err)
	}

	log.Info("catan wins bot stopped")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BOOTSTRAP HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// openStore opens the configured tally store and runs migrations for
// backends that need them. The returned closer releases the backend.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (tally.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		log.Info("connecting to postgres...")
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Storage.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}

		repo := postgres.NewWinnerRepository(conn)
		return repo, func() error { conn.Close(); return nil }, nil

	case config.BackendSQLite:
		log.Info("opening sqlite database", "file", cfg.Storage.File)
		store, err := sqlite.Open(ctx, cfg.Storage.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// setupLogger builds the process-wide slog logger from config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"app", cfg.App.Name,
		"version", cfg.App.Version,
	)
}
