package log

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

// resettableLevel is a zapcore.LevelEnabler that can be changed at runtime, either permanently
// (SetLevel) or for a while (SetLevelFor).  Methods take a value receiver; the pointers inside are
// shared by all copies.
type resettableLevel struct {
	orig, cur *atomic.Int32
	reset     *atomic.Pointer[time.Timer]
}

var _ zapcore.LevelEnabler = resettableLevel{}

// NewResettableLevelAt returns a level set to l.
func NewResettableLevelAt(l zapcore.Level) resettableLevel {
	rl := resettableLevel{
		orig:  new(atomic.Int32),
		cur:   new(atomic.Int32),
		reset: new(atomic.Pointer[time.Timer]),
	}
	rl.orig.Store(int32(l))
	rl.cur.Store(int32(l))
	return rl
}

// Level returns the current level.
func (rl resettableLevel) Level() zapcore.Level {
	return zapcore.Level(rl.cur.Load())
}

// Enabled implements zapcore.LevelEnabler.
func (rl resettableLevel) Enabled(l zapcore.Level) bool {
	return rl.Level().Enabled(l)
}

func (rl resettableLevel) String() string {
	return rl.Level().String()
}

// UnmarshalText implements encoding.TextUnmarshaler by calling SetLevel.
func (rl resettableLevel) UnmarshalText(text []byte) error {
	var l zapcore.Level
	if err := l.UnmarshalText(text); err != nil {
		return err //nolint:wrapcheck
	}
	rl.SetLevel(l)
	return nil
}

// SetLevel sets both the current and the original level.
func (rl resettableLevel) SetLevel(l zapcore.Level) {
	if t := rl.reset.Swap(nil); t != nil {
		t.Stop()
	}
	rl.orig.Store(int32(l))
	rl.cur.Store(int32(l))
}

// SetLevelFor changes the current level for d, then reverts to the original level.
func (rl resettableLevel) SetLevelFor(l zapcore.Level, d time.Duration) {
	t := time.AfterFunc(d, func() {
		rl.cur.Store(rl.orig.Load())
	})
	if old := rl.reset.Swap(t); old != nil {
		old.Stop()
	}
	rl.cur.Store(int32(l))
}
