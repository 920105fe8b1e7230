package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"campus-notice-bot/internal/config"
)

// NewLogger builds the process logger: JSON records through lumberjack
// rotation at the configured path, mirrored to stdout for interactive runs.
func NewLogger(cfg config.ObservabilityConfig) *slog.Logger {
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    maxSize(cfg.MaxSizeMB),
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(io.MultiWriter(rotator, os.Stdout), &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})

	return slog.New(handler)
}

func maxSize(mb int) int {
	if mb <= 0 {
		return 10
	}
	return mb
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
