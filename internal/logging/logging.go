// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
)

// Setup builds a logger for level and format, installs it as the slog
// default and returns it.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text" (coloured console via tint), "json" (default: "text")
func Setup(level, format string, w io.Writer) *slog.Logger {
	logger := slog.New(NewHandler(level, format, w))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns the handler Setup would install, without touching the default.
func NewHandler(level, format string, w io.Writer) slog.Handler {
	lvl := ParseLevel(level)
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	})
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger, tagged with the chi request id
// when ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

type fdWriter interface {
	Fd() uintptr
}

// isTerminal treats only *os.File-like writers as consoles.
func isTerminal(w io.Writer) bool {
	_, ok := w.(fdWriter)
	return ok
}
