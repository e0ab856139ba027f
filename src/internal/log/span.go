package log

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the level at which Span logs are written.
type Level int

const (
	DebugLevel Level = 1
	InfoLevel  Level = 2
	ErrorLevel Level = 3
)

func (l Level) coreLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	}
	return zapcore.DebugLevel
}

// EndSpanFunc ends a span.
type EndSpanFunc = func(fields ...Field)

const errorpType = zapcore.InlineMarshalerType + 100

// Errorp is a Field that marks a span as failed if *err is non-nil when the span ends.  It is
// meant to be passed a pointer to a named return value:
//
//	func f(ctx context.Context) (retErr error) {
//	    defer log.Span(ctx, "f")(log.Errorp(&retErr))
//	    ...
//	}
func Errorp(err *error) Field {
	return zapcore.Field{
		Key:       "error",
		Type:      errorpType,
		Interface: err,
	}
}

type spanStatus string

const (
	spanStarting spanStatus = "span start"
	spanOK       spanStatus = "span finished ok"
	spanFailed   spanStatus = "span failed"
)

func makeSpanEndFunc(ctx context.Context, l *zap.Logger, event string, level Level, start time.Time) EndSpanFunc {
	return func(rawFields ...Field) {
		fields := []zap.Field{zap.Duration("spanDuration", time.Since(start))}
		msg := spanOK
		for _, f := range rawFields {
			if i := f.Interface; i != nil {
				if _, ok := i.(error); ok {
					msg = spanFailed
					fields = append(fields, f)
					continue
				}
				if f.Type == errorpType {
					if errp, ok := i.(*error); ok && *errp != nil {
						msg = spanFailed
						fields = append(fields, zap.Error(*errp))
					}
					continue
				}
			}
			fields = append(fields, f)
		}
		lvl := level.coreLevel()
		if msg == spanFailed && lvl < zapcore.ErrorLevel {
			lvl = zapcore.ErrorLevel
		}
		if e := l.Check(lvl, event+": "+string(msg)); e != nil {
			fields = append(fields, ContextInfo(ctx))
			e.Write(fields...)
		}
	}
}

// SpanContextL starts a span and returns a context whose logger is scoped to it, plus the function
// that ends it.  Passing an error (zap.Error or Errorp) to the end function marks the span as
// failed; failed spans are always logged at level error.
func SpanContextL(rctx context.Context, event string, level Level, fields ...Field) (context.Context, EndSpanFunc) {
	l := extractLogger(rctx).Named(event).With(fields...)
	if e := l.WithOptions(zap.AddCallerSkip(1)).Check(level.coreLevel(), event+": "+string(spanStarting)); e != nil {
		e.Write(ContextInfo(rctx))
	}
	ctx := withLogger(rctx, l)
	return ctx, makeSpanEndFunc(ctx, l, event, level, time.Now())
}

// SpanContext starts a span at level debug.
func SpanContext(rctx context.Context, event string, fields ...Field) (context.Context, EndSpanFunc) {
	return SpanContextL(rctx, event, DebugLevel, fields...)
}

// SpanL starts a span and returns the function that ends it.
func SpanL(ctx context.Context, event string, level Level, fields ...Field) EndSpanFunc {
	_, end := SpanContextL(ctx, event, level, fields...)
	return end
}

// Span starts a span at level debug.
func Span(ctx context.Context, event string, fields ...Field) EndSpanFunc {
	_, end := SpanContextL(ctx, event, DebugLevel, fields...)
	return end
}
