package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	goamiddleware "goa.design/goa/v3/middleware"
)

// New builds the process logger. Development gets a colored console encoder,
// production a JSON encoder. level overrides the environment default when valid.
func New(serviceName, env, level string) (*zap.SugaredLogger, error) {
	cfg := buildConfig(env)
	if lvl, err := zapcore.ParseLevel(strings.TrimSpace(level)); err == nil && level != "" {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("cannot init zap logger: %w", err)
	}
	return z.Named(serviceName).Sugar(), nil
}

func buildConfig(env string) zap.Config {
	var cfg zap.Config

	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.DisableStacktrace = true
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg
}

// WithRequest returns log with the goa request ID of ctx attached, if any.
func WithRequest(ctx context.Context, log *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return log
	}
	if id, ok := ctx.Value(goamiddleware.RequestIDKey).(string); ok && id != "" {
		return log.With("request_id", id)
	}
	return log
}

// Sync flushes log, ignoring the errors stdout/stderr return on some platforms.
func Sync(log *zap.SugaredLogger) {
	if log == nil {
		return
	}
	if err := log.Sync(); err != nil && !isIgnorableSyncError(err) {
		log.Errorf("log sync error: %v", err)
	}
}

func isIgnorableSyncError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "invalid argument") ||
		strings.Contains(s, "inappropriate ioctl for device") ||
		strings.Contains(s, "bad file descriptor")
}
