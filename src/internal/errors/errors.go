// Package errors wraps github.com/pkg/errors and the standard library errors package so that the
// rest of the code base only has one errors import.  Errors created or wrapped here carry a stack
// trace; EnsureStack adds one to errors coming from outside the module.
package errors

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Frame is a single stack frame.
type Frame = pkgerrors.Frame

// StackTrace is a stack of Frames from innermost (newest) to outermost (oldest).
type StackTrace = pkgerrors.StackTrace

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// New returns an error with the supplied message and a stack trace.
func New(message string) error {
	return pkgerrors.New(message)
}

// Errorf formats according to a format specifier and returns the string as an error with a stack
// trace.  %w is honoured.
func Errorf(format string, args ...interface{}) error {
	return pkgerrors.WithStack(fmt.Errorf(format, args...))
}

// Wrap returns an error annotating err with a stack trace and the supplied message.  If err is nil,
// Wrap returns nil.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf is Wrap with a format specifier.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// EnsureStack adds a stack trace to err if it does not already have one.
func EnsureStack(err error) error {
	if err == nil {
		return nil
	}
	var st stackTracer
	if errors.As(err, &st) {
		return err
	}
	return pkgerrors.WithStack(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// JoinInto joins err into *dst.  It is meant for deferred cleanup functions that should not mask
// the error already being returned.
func JoinInto(dst *error, err error) {
	if err == nil {
		return
	}
	if *dst == nil {
		*dst = err
		return
	}
	*dst = errors.Join(*dst, err)
}

// ForEachStackFrame calls f on each frame of the outermost stack trace attached to err.
func ForEachStackFrame(err error, f func(Frame)) {
	var st stackTracer
	if errors.As(err, &st) {
		for _, frame := range st.StackTrace() {
			f(frame)
		}
	}
}
