package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default slog logger. Format "json" selects the plain
// JSON handler, anything else gets the colorized console handler.
func Setup(level slog.Level, format string, addSource bool) {
	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = NewHandler(opts)
	}
	slog.SetDefault(slog.New(h))
}

// System logs an application lifecycle event.
func System(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Error logs an error with its source component.
func Error(msg string, err error, args ...any) {
	slog.Error(msg,
		append([]any{"type", "error", "error", err}, args...)...)
}
