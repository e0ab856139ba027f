// Package fsutil is the filesystem capability layer: one FS interface with a local variant and an
// object storage variant, selected by URI scheme through a Registry.
package fsutil

import (
	"context"
	"io"
	"io/fs"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// Kind classifies a filesystem entry.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	}
	return "other"
}

// FileInfo describes one filesystem entry.
type FileInfo struct {
	URI  string
	Name string
	Kind Kind
	Size int64
}

// ErrUnsupported is returned by operations a filesystem variant cannot perform.
var ErrUnsupported = errors.New("operation not supported by filesystem")

// FS is the set of filesystem operations the copy engines need.  Paths are URIs.  Stat and Open of
// a missing entry return an error for which IsNotExist is true.
type FS interface {
	Stat(ctx context.Context, uri string) (FileInfo, error)
	Exists(ctx context.Context, uri string) (bool, error)
	// List returns the immediate children of a directory, in no particular order.
	List(ctx context.Context, uri string) ([]FileInfo, error)
	// Open returns a reader positioned at offset.
	Open(ctx context.Context, uri string, offset int64) (io.ReadCloser, error)
	// Create opens uri for writing, truncating any existing content.
	Create(ctx context.Context, uri string) (io.WriteCloser, error)
	// Remove deletes uri.  Removing a missing entry is not an error.
	Remove(ctx context.Context, uri string, recursive bool) error
	// Mkdir creates a directory and any missing parents.
	Mkdir(ctx context.Context, uri string) error
	Rename(ctx context.Context, src, dst string) error
	// Link hard links src to dst, or returns an error.  Callers fall back to copying.
	Link(ctx context.Context, src, dst string) error
}

// WriteAtCloser is the handle used for positioned writes.
type WriteAtCloser interface {
	io.WriterAt
	io.Closer
}

// WriterAtFS is implemented by filesystems that support positioned writes into a pre-sized file.
type WriterAtFS interface {
	FS
	// Truncate creates uri if it is missing and sets its size.
	Truncate(ctx context.Context, uri string, size int64) error
	// OpenWriterAt opens an existing file for positioned writes.
	OpenWriterAt(ctx context.Context, uri string) (WriteAtCloser, error)
}

// IsNotExist reports whether err means the entry does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func notExist(uri string) error {
	return errors.Wrapf(fs.ErrNotExist, "%s", uri)
}
