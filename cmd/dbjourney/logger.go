package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qa21t02/dbjourney/internal/config"
)

// newLogger builds the stderr logger. --verbose logs lifecycle events and
// failed sessions, --log-errors only failed checks. The dashboard owns the
// terminal, so nothing is logged while it runs.
func newLogger(cfg *config.Config, w io.Writer) *zap.Logger {
	if cfg.Dashboard || (!cfg.Verbose && !cfg.LogErrors) {
		return zap.NewNop()
	}
	level := zapcore.WarnLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core).Named("dbjourney")
}
