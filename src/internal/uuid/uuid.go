// Package uuid generates the random identifiers used for scratch directories and temporary
// outputs.
package uuid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a new uuid in its canonical dashed form.
func New() string {
	return uuid.NewString()
}

// NewWithoutDashes returns a new uuid with the dashes removed, which is safe to use as a single
// path component on every supported filesystem.
func NewWithoutDashes() string {
	return strings.ReplaceAll(New(), "-", "")
}

// IsUUIDWithoutDashes reports whether s looks like a value returned by NewWithoutDashes.
func IsUUIDWithoutDashes(s string) bool {
	if len(s) != 32 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
