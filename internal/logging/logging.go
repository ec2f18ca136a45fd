// Package logging configures the process-wide slog logger, optionally
// mirroring output into a size-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"deployctl/internal/config"
)

// Setup builds a logger from the logging config and installs it as the
// slog default. The returned closer releases the log file, if any, and
// is always safe to close.
func Setup(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	output, closer := buildOutput(cfg)

	options := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(output, options)
	} else {
		handler = slog.NewTextHandler(output, options)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func buildOutput(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stdout, nopCloser{}
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}

	return io.MultiWriter(os.Stdout, fileLogger), fileLogger
}

func parseLevel(level string) slog.Level {
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
