package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global logger instance.
// It starts as a no-op logger so packages can log before Init runs (tests, tools).
var Log = zap.NewNop()

// Init initializes the global logger
// isDevelopment: true for colorful console output, false for JSON structured logging.
// level overrides the default level of the chosen mode when it parses ("debug", "warn", ...).
func Init(isDevelopment bool, level string) error {
	var config zap.Config

	if isDevelopment {
		// Development: colorful console output with debug level
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		// Production: JSON structured logging with info level
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if level != "" {
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			config.Level = lvl
		}
	}

	built, err := config.Build(
		zap.AddCaller(),                   // Add caller information (file:line)
		zap.AddStacktrace(zap.ErrorLevel), // Add stack trace for errors
	)
	if err != nil {
		return err
	}

	Log = built
	return nil
}

// Sync flushes any buffered log entries
// Should be called before application exits
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
