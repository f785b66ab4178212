// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jordanpartridge/conduit-dj/internal/config"
)

// New returns a logger for cfg writing to stdout and, when cfg.File is set,
// a rotated log file. The closer releases the file and is nil without one.
func New(cfg config.Logging) (*slog.Logger, io.Closer) {
	w, closer := buildWriter(os.Stdout, cfg)
	return slog.New(buildHandler(w, ParseLevel(cfg.Level), cfg.Format)), closer
}

// NewWriter returns a logger writing only to w. Used by the CLI and tests.
func NewWriter(w io.Writer, cfg config.Logging) *slog.Logger {
	return slog.New(buildHandler(w, ParseLevel(cfg.Level), cfg.Format))
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
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

func buildWriter(stdout io.Writer, cfg config.Logging) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return stdout, nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    positiveOr(cfg.MaxSizeMB, 10),
		MaxBackups: positiveOr(cfg.MaxBackups, 3),
		MaxAge:     positiveOr(cfg.MaxAgeDays, 28),
	}
	return io.MultiWriter(stdout, lj), lj
}

func buildHandler(w io.Writer, level slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
