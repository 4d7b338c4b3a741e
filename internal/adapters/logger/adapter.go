// Package logger provides the zap-backed logging adapter.
package logger

import (
	"context"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapAdapter adapts a zap logger to the application's logging interface
// (Info/Debug/Warn/Error with context and field maps).
type ZapAdapter struct {
	log *zap.Logger
}

// Options configures logger construction.
type Options struct {
	// Level is "debug", "info", "warn" or "error". Unknown values fall
	// back to info.
	Level string

	// AppName is attached to every entry as the "app" field.
	AppName string

	// File enables an additional rotating file sink when non-empty.
	File string
}

// New builds a ZapAdapter writing JSON entries to stderr, plus a rotating
// file sink when Options.File is set. Stdout stays reserved for the
// resolved branch output.
func New(opts Options) *ZapAdapter {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(opts.Level); err == nil {
		level = parsed
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		rotating := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		})
		cores = append(cores, zapcore.NewCore(encoder, rotating, level))
	}

	log := zap.New(zapcore.NewTee(cores...))
	if opts.AppName != "" {
		log = log.With(zap.String("app", opts.AppName))
	}

	return &ZapAdapter{log: log}
}

// NewNop returns an adapter that discards everything. Useful in tests.
func NewNop() *ZapAdapter {
	return &ZapAdapter{log: zap.NewNop()}
}

// Info logs an info message.
func (a *ZapAdapter) Info(_ context.Context, msg string, fields map[string]interface{}) {
	a.log.Info(msg, toZapFields(fields)...)
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(_ context.Context, msg string, fields map[string]interface{}) {
	a.log.Debug(msg, toZapFields(fields)...)
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(_ context.Context, msg string, fields map[string]interface{}) {
	a.log.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message.
func (a *ZapAdapter) Error(_ context.Context, msg string, err error, fields map[string]interface{}) {
	zapFields := toZapFields(fields)
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	a.log.Error(msg, zapFields...)
}

// Sync flushes buffered entries.
func (a *ZapAdapter) Sync() error {
	return a.log.Sync()
}

// toZapFields converts a field map to sorted zap fields so log output is
// stable across invocations.
func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	zapFields := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		zapFields = append(zapFields, zap.Any(key, fields[key]))
	}
	return zapFields
}
