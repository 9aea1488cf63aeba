// Package logger builds the process logger and carries per-request loggers
// through request context.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger for one of the two shipped environments:
// prod emits JSON, local emits colored console output. A non-empty level
// (debug, info, warn, error) overrides the environment default.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("no logger profile for environment %q", env)
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
