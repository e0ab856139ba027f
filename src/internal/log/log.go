// Package log carries a zap logger inside a context.Context.
//
// Every function that logs takes a context; the logger attached to that context (see AddLogger,
// ChildLogger and the pctx package) decides where the message goes and which fields are attached.
// Logging with a context that never had a logger attached is a programming error; it is reported
// through DPanic (fatal in development builds) and the message is sent to the global logger.
package log

import (
	"context"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a typed log field.
type Field = zap.Field

type loggerKey struct{}

// level is the global log level; InitLogger and SetLevel change it.
var level = NewResettableLevelAt(zapcore.InfoLevel)

// InitLogger replaces the global logger.  json selects the structured JSON encoder; otherwise a
// console encoder is used, colored when stderr is a terminal.
func InitLogger(json bool) {
	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(jsonEncoder)
	} else {
		cfg := consoleEncoder
		if isatty.IsTerminal(os.Stderr.Fd()) {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	zap.ReplaceGlobals(zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))))
}

// SetLevel sets the global log level from its name ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	return level.UnmarshalText([]byte(name))
}

// AddLogger attaches the global logger to ctx.
func AddLogger(ctx context.Context) context.Context {
	return withLogger(ctx, zap.L())
}

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	if l == nil {
		zap.L().DPanic("log: internal error: nil logger provided to withLogger")
		l = zap.L()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

func extractLogger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		zap.L().DPanic("log: internal error: nil context provided to ExtractLogger")
		return zap.L()
	}
	l, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if !ok || l == nil {
		zap.L().DPanic("log: internal error: no logger in provided context")
		return zap.L()
	}
	return l
}

// LogOption modifies the logger of a child context.
type LogOption func(l *zap.Logger) *zap.Logger

// WithFields adds fields to every line logged by the child.
func WithFields(fields ...Field) LogOption {
	return func(l *zap.Logger) *zap.Logger {
		return l.With(fields...)
	}
}

// WithOptions applies zap options to the child logger.
func WithOptions(opts ...zap.Option) LogOption {
	return func(l *zap.Logger) *zap.Logger {
		return l.WithOptions(opts...)
	}
}

// ChildLogger returns a context whose logger is a named child of the logger in ctx.
func ChildLogger(ctx context.Context, name string, opts ...LogOption) context.Context {
	l := extractLogger(ctx)
	if name != "" {
		l = l.Named(name)
	}
	for _, opt := range opts {
		l = opt(l)
	}
	return withLogger(ctx, l)
}

// ContextInfo is a field describing the deadline of ctx, if it has one.
func ContextInfo(ctx context.Context) Field {
	if ctx == nil {
		return zap.Skip()
	}
	if dl, ok := ctx.Deadline(); ok {
		return zap.Duration("deadline", time.Until(dl))
	}
	return zap.Skip()
}

func logAt(ctx context.Context, lvl zapcore.Level, msg string, fields []Field) {
	l := extractLogger(ctx).WithOptions(zap.AddCallerSkip(2))
	if ce := l.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Debug logs a message at level debug.
func Debug(ctx context.Context, msg string, fields ...Field) {
	logAt(ctx, zapcore.DebugLevel, msg, fields)
}

// Info logs a message at level info.
func Info(ctx context.Context, msg string, fields ...Field) {
	logAt(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs a message at level warn.
func Warn(ctx context.Context, msg string, fields ...Field) {
	logAt(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs a message at level error.
func Error(ctx context.Context, msg string, fields ...Field) {
	logAt(ctx, zapcore.ErrorLevel, msg, fields)
}

// Enabled reports whether messages at lvl would be written by the logger in ctx.
func Enabled(ctx context.Context, lvl zapcore.Level) bool {
	return extractLogger(ctx).Core().Enabled(lvl)
}
