package log

import (
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type byteSize int64

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (b byteSize) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("bytes", int64(b))
	if b >= 0 {
		enc.AddString("human", humanize.IBytes(uint64(b)))
	}
	return nil
}

// Bytes is a Field holding a byte count, logged both raw and human readable.
func Bytes(name string, n int64) Field {
	return zap.Object(name, byteSize(n))
}

// URI is a Field holding a URI.
func URI(name, uri string) Field {
	return zap.String(name, uri)
}

// TaskIndex is a Field holding the position of a task in its job's task list.
func TaskIndex(i int64) Field {
	return zap.Int64("taskIndex", i)
}
