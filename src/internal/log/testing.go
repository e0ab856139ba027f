package log

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// History is the set of log lines captured by TestWithCapture.
type History struct {
	obs *observer.ObservedLogs
}

// Logs returns the captured lines as "level: message".
func (h *History) Logs() []string {
	var result []string
	for _, e := range h.obs.All() {
		result = append(result, fmt.Sprintf("%s: %s", e.Level, e.Message))
	}
	return result
}

// Entries returns the raw captured entries.
func (h *History) Entries() []observer.LoggedEntry {
	return h.obs.All()
}

// HasALog fails the test if nothing was logged.
func (h *History) HasALog(t testing.TB) {
	t.Helper()
	if h.obs.Len() == 0 {
		t.Error("expected some logs, but none were captured")
	}
}

// TestWithCapture returns a context whose logger records every line at level debug and above, and
// also forwards it to t.Log.
func TestWithCapture(t testing.TB, opts ...zap.Option) (context.Context, *History) {
	t.Helper()
	core, obs := observer.New(zapcore.DebugLevel)
	tl := zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel), zaptest.WrapOptions(opts...))
	l := zap.New(zapcore.NewTee(tl.Core(), core), opts...)
	return withLogger(context.Background(), l), &History{obs: obs}
}

// Test returns a context with a logger that writes to t.Log.
func Test(t testing.TB) context.Context {
	t.Helper()
	return withLogger(context.Background(), zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel)))
}
