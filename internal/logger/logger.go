package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON output at info level in production,
// colored console output at debug level everywhere else.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// Must is New for process startup, where there is no logger to report to yet.
func Must(env string) *zap.Logger {
	log, err := New(env)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return log
}

// Sync flushes buffered entries. Errors from syncing stdout/stderr on some
// platforms are expected and ignored.
func Sync(log *zap.Logger) {
	_ = log.Sync()
}
