package pctx

import (
	"testing"

	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/log"
)

func TestChild(t *testing.T) {
	ctx, h := log.TestWithCapture(t)
	log.Info(Child(Child(ctx, "fanout"), "task", WithFields(zap.Int64("taskIndex", 2))), "hi")
	h.HasALog(t)
	e := h.Entries()[0]
	if e.LoggerName != "fanout.task" {
		t.Errorf("logger name: got %q", e.LoggerName)
	}
	if e.ContextMap()["taskIndex"] != int64(2) {
		t.Errorf("missing taskIndex field: %v", e.ContextMap())
	}
}

func TestBackground(t *testing.T) {
	l, h := log.TestWithCapture(t)
	log.Info(l, "setup")
	log.Info(TODO(), "hi")
	log.Info(Background("galaxy"), "hi")
	h.HasALog(t)
}
