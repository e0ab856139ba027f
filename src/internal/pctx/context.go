package pctx

import (
	"context"

	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/log"
)

// TODO returns a context for code that has not been given a proper one yet.  Do not use it in new
// code.
func TODO() context.Context {
	return log.AddLogger(context.TODO())
}

// Background returns the root context of a process.
func Background(process string) context.Context {
	ctx := log.AddLogger(context.Background())
	return Child(ctx, process)
}

// Option customizes a child context.
type Option struct {
	modifyContext func(context.Context) context.Context
	modifyLogger  log.LogOption
}

// WithFields returns an option adding fields to each log line produced by the child.
func WithFields(fields ...zap.Field) Option {
	return Option{
		modifyLogger: log.WithFields(fields...),
	}
}

// WithCancel is context.WithCancel, spelled so that callers only import pctx.
func WithCancel(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

// Child returns a named child context.  The name can be empty.
func Child(ctx context.Context, name string, opts ...Option) context.Context {
	var logOptions []log.LogOption
	for _, opt := range opts {
		if o := opt.modifyLogger; o != nil {
			logOptions = append(logOptions, o)
		}
		if o := opt.modifyContext; o != nil {
			ctx = o(ctx)
		}
	}
	return log.ChildLogger(ctx, name, logOptions...)
}
