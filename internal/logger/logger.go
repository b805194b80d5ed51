package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/nightmare-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(os.Stdout, cfg.Environment, cfg.LogLevel)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w: JSON in production, text otherwise.
func New(w io.Writer, environment string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if environment == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithSession adds the session id to logger context
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With("session_id", sessionID)
}
