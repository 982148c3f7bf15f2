// Package logging wraps zap with a key/value API. Every line is JSON and
// context-aware calls carry the active trace_id and span_id.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// ParseLevel maps debug, warn|warning and error; anything else is info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger struct {
	base   *zap.Logger
	synced *atomic.Bool
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewNop())
}

// NewJSON logs to stdout.
func NewJSON(level Level) *Logger {
	return NewJSONWriter(os.Stdout, level)
}

func NewJSONWriter(w io.Writer, level Level) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.Lock(zapcore.AddSync(w)), level)
	// Skip log and the exported level method so callers are reported.
	return FromZap(zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(2),
		zap.AddStacktrace(zapcore.ErrorLevel),
	))
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.NameKey = "logger"
	cfg.FunctionKey = zapcore.OmitKey
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

func NewNop() *Logger {
	return FromZap(nil)
}

func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{base: z, synced: new(atomic.Bool)}
}

func Default() *Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	return NewNop()
}

func SetDefault(logger *Logger) {
	if logger == nil {
		logger = NewNop()
	}
	defaultLogger.Store(logger)
}

func (l *Logger) resolve() *Logger {
	if l == nil || l.base == nil {
		return Default()
	}
	return l
}

func (l *Logger) Zap() *zap.Logger {
	return l.resolve().base
}

// Sync flushes once; later calls on the logger or its children are no-ops.
func (l *Logger) Sync() error {
	if l == nil || l.base == nil || !l.synced.CompareAndSwap(false, true) {
		return nil
	}
	return l.base.Sync()
}

func (l *Logger) With(args ...any) *Logger {
	r := l.resolve()
	return &Logger{base: r.base.With(fieldsOf(args)...), synced: r.synced}
}

// Named adds a sub-logger name, e.g. "source.codeforces".
func (l *Logger) Named(name string) *Logger {
	r := l.resolve()
	return &Logger{base: r.base.Named(name), synced: r.synced}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(nil, LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.log(nil, LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(nil, LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.log(nil, LevelError, msg, args) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelError, msg, args)
}

func (l *Logger) log(ctx context.Context, level Level, msg string, args []any) {
	entry := l.resolve().base.Check(level, msg)
	if entry == nil {
		return
	}
	entry.Write(append(fieldsOf(args), traceFields(ctx)...)...)
}
