package config

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a configured Zap logger.
// Level is one of debug, info, warn, error (default "info");
// format is json or console (default "json").
func NewLogger(c LoggingConfig) (*zap.Logger, error) {
	level := c.Level
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch c.Format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", c.Format)
	}

	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}

// NewSlogLogger wraps zl so that log/slog calls are written by its core.
func NewSlogLogger(zl *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(zl.Core()))
}
