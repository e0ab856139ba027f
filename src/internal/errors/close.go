package errors

import (
	"fmt"
	"io"
)

// Close closes c and joins the close error, wrapped with the formatted message, into *retErr.  It
// is meant to be deferred with a named return value.
func Close(retErr *error, c io.Closer, format string, args ...any) {
	Invoke(retErr, c.Close, format, args...)
}

// Invoke calls f and joins its error, wrapped with the formatted message, into *retErr.
func Invoke(retErr *error, f func() error, format string, args ...any) {
	if err := f(); err != nil {
		JoinInto(retErr, Wrap(err, fmt.Sprintf(format, args...)))
	}
}
