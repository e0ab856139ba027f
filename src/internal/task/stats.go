package task

import (
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// Stats counts the tasks an executor has run.
type Stats struct {
	Started   atomic.Int64
	Succeeded atomic.Int64
	Failed    atomic.Int64
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s *Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("started", s.Started.Load())
	enc.AddInt64("succeeded", s.Succeeded.Load())
	enc.AddInt64("failed", s.Failed.Load())
	return nil
}
