// Package logger wraps a process-wide zap logger.
//
// Until Init is called every helper logs to a no-op logger, so library packages
// and tests can log freely without setup.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var zapLog atomic.Pointer[zap.Logger]

func init() {
	zapLog.Store(zap.NewNop())
}

// Init installs a development-style console logger at the given level.
func Init(level zapcore.Level) error {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("Jan _2 15:04:05.000")
	encoderConfig.StacktraceKey = ""
	config.EncoderConfig = encoderConfig

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	zapLog.Store(l)
	return nil
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Set replaces the logger, mainly for tests using zaptest/observer.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	zapLog.Store(l)
}

// L returns the current logger for callers that want With(...) children.
func L() *zap.Logger {
	return zapLog.Load()
}

func Info(message string, fields ...zap.Field) {
	zapLog.Load().Info(message, fields...)
}

func Warn(message string, fields ...zap.Field) {
	zapLog.Load().Warn(message, fields...)
}

func Debug(message string, fields ...zap.Field) {
	zapLog.Load().Debug(message, fields...)
}

func Error(message string, fields ...zap.Field) {
	zapLog.Load().Error(message, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return zapLog.Load().Sync()
}
