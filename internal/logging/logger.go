package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the JSON logger the tracking binaries share. Every record
// carries a service attribute so fan-in pipelines can split streams per
// binary, and the source position so hub-level warnings are traceable.
func NewLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     levelFromString(level),
		AddSource: true,
	})
	return slog.New(handler).With("service", service)
}

func levelFromString(level string) slog.Leveler {
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
