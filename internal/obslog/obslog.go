// Package obslog builds the daemon's structured logger: a thin slog
// wrapper so call sites log attributes rather than formatted strings, in
// the style of 99souls-ariadne's telemetry/logging package.
package obslog

import (
	"log/slog"
	"os"
)

// Config selects the logger's verbosity and encoding.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Format is "json" or "text". Defaults to "text".
	Format string
}

// New builds a *slog.Logger writing to stderr per cfg.
func New(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a child logger tagged with the given component name,
// for consistent attribution across adapters, the pipeline, and transport.
func Component(base *slog.Logger, name string) *slog.Logger {
	return base.With("component", name)
}
