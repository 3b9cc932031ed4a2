// Package middleware contains Telegram bot middlewares for update processing.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in update handlers so one bad update cannot take down
// the polling loop. Panics are logged with their stack; the update is
// reported as failed and polling continues.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// Logger for structured logging.
	Logger *slog.Logger

	// OnPanic, when set, is called with details of every recovered panic.
	OnPanic func(ctx context.Context, info *PanicInfo)
}

// DefaultRecoveryConfig returns sensible defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	// PanicValue is the raw panic value.
	PanicValue any

	// StackTrace is the formatted stack trace, empty when disabled.
	StackTrace string

	// UpdateID is the Telegram update being processed.
	UpdateID int64

	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

// RecoveryMiddleware recovers from panics in update handlers.
type RecoveryMiddleware struct {
	config RecoveryConfig
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryMiddleware{
		config: config,
		logger: logger,
	}
}

// Run executes fn, converting a panic into an error.
func (m *RecoveryMiddleware) Run(ctx context.Context, updateID int64, fn func(ctx context.Context) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		info := &PanicInfo{
			PanicValue: r,
			UpdateID:   updateID,
			Timestamp:  time.Now(),
		}
		if m.config.EnableStackTrace {
			info.StackTrace = string(debug.Stack())
		}

		m.logger.Error("panic recovered in update handler",
			"update_id", updateID,
			"panic", fmt.Sprintf("%v", r),
			"stack", info.StackTrace,
		)

		if m.config.OnPanic != nil {
			m.config.OnPanic(ctx, info)
		}

		err = fmt.Errorf("handler panic: %v", r)
	}()

	return fn(ctx)
}
