package obs

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger tagged with the service name and installs it
// as the slog default.
func NewLogger(service string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// Discard is used by components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
