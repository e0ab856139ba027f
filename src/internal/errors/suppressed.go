package errors

import (
	"fmt"
	"strings"
)

// SuppressedError is a primary error together with the secondary errors that occurred while
// cleaning up after it.  The primary error is what callers match with Is/As; the secondary errors
// stay observable through Suppressed instead of masking it.
type SuppressedError struct {
	Err        error
	Suppressed []error
}

// WithSuppressed attaches the non-nil secondary errors to primary.  If primary is nil the
// secondaries are joined and returned on their own; if there are no secondaries primary is
// returned unchanged.
func WithSuppressed(primary error, secondary ...error) error {
	var errs []error
	for _, err := range secondary {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if primary == nil {
		return Join(errs...)
	}
	if len(errs) == 0 {
		return primary
	}
	var se *SuppressedError
	if As(primary, &se) {
		se.Suppressed = append(se.Suppressed, errs...)
		return primary
	}
	return &SuppressedError{Err: primary, Suppressed: errs}
}

func (e *SuppressedError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Err.Error()
	}
	msgs := make([]string, 0, len(e.Suppressed))
	for _, s := range e.Suppressed {
		msgs = append(msgs, s.Error())
	}
	return fmt.Sprintf("%v (suppressed: %s)", e.Err, strings.Join(msgs, "; "))
}

// Unwrap returns the primary error only.
func (e *SuppressedError) Unwrap() error {
	return e.Err
}

// Suppressed returns the secondary errors attached to err, if any.
func Suppressed(err error) []error {
	var se *SuppressedError
	if As(err, &se) {
		return se.Suppressed
	}
	return nil
}
