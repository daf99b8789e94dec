// Package debug builds the process logger for axiomguard and keeps the
// lightweight debug helpers used by the CLI. Debug output is controlled by
// the debug config option or -d flag.
package debug

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Enabled controls whether debug logging is active.
var Enabled bool

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// NewLogger builds a zap logger. debug selects the development config and
// forces debug level; otherwise the production config is used at level.
// format is "console" or "json".
func NewLogger(level, format string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	switch format {
	case "", "console":
		cfg.Encoding = "console"
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return cfg.Build()
}

// Init builds the process logger and installs it for L.
func Init(level, format string, debug bool) (*zap.Logger, error) {
	l, err := NewLogger(level, format, debug)
	if err != nil {
		return nil, err
	}
	Set(l)
	Enabled = debug
	return l, nil
}

// Set installs l as the process logger. nil installs a no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes the process logger.
func Sync() {
	_ = L().Sync()
}

// Log writes a debug message if debug mode is enabled.
func Log(format string, args ...any) {
	if Enabled {
		L().Sugar().Debugf(format, args...)
	}
}

// LogRequest logs a handled request with its subject and outcome.
func LogRequest(subject string, size int, err error) {
	if !Enabled {
		return
	}
	if err != nil {
		L().Debug("request failed", zap.String("subject", subject), zap.Int("bytes", size), zap.Error(err))
		return
	}
	L().Debug("request handled", zap.String("subject", subject), zap.Int("bytes", size))
}

// Warn logs a warning message if debug mode is enabled.
func Warn(format string, args ...any) {
	if Enabled {
		L().Sugar().Warnf(format, args...)
	}
}
