// Package logging builds the process-wide structured logger. Each binary
// installs it as the slog default at startup, so adapter and infrastructure
// packages log through the plain slog API at the configured level.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Install builds a JSON logger tagged with the service name, sets it as the
// slog default and returns it.
func Install(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps the LOG_LEVEL setting to a slog level; anything
// unrecognized falls back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
