package app

import (
	"io"
	"log/slog"
)

// newLogger builds an isolated slog.Logger for one App instance; the global
// default logger is never touched outside main.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	lv := slog.LevelInfo
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lv}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
