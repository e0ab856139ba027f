package fsutil

import (
	"context"
	"io"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// Registry is an FS that dispatches every call to the variant registered for the URI's scheme.
// Operations between two URIs on different variants (Rename, Link) are handled here.
type Registry struct {
	schemes  map[string]FS
	fallback FS
}

var _ WriterAtFS = (*Registry)(nil)

// NewRegistry returns a registry serving file:// from the local filesystem and every other scheme
// from blob, which may be nil to support local URIs only.
func NewRegistry(blob FS) *Registry {
	return &Registry{
		schemes:  map[string]FS{LocalScheme: LocalFS{}},
		fallback: blob,
	}
}

// NewDefaultRegistry returns a registry backed by LocalFS and a BlobFS opening buckets with
// obj.NewBucket.
func NewDefaultRegistry() (*Registry, error) {
	b, err := NewBlobFS(nil, DefaultBucketCacheSize)
	if err != nil {
		return nil, err
	}
	return NewRegistry(b), nil
}

// Register serves scheme from f.
func (r *Registry) Register(scheme string, f FS) {
	r.schemes[scheme] = f
}

// For returns the variant serving uri.
func (r *Registry) For(uri string) (FS, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if f, ok := r.schemes[u.Scheme]; ok {
		return f, nil
	}
	if r.fallback == nil {
		return nil, errors.Errorf("%s: no filesystem registered for scheme %q", uri, u.Scheme)
	}
	return r.fallback, nil
}

func (r *Registry) Stat(ctx context.Context, uri string) (FileInfo, error) {
	f, err := r.For(uri)
	if err != nil {
		return FileInfo{}, err
	}
	return f.Stat(ctx, uri)
}

func (r *Registry) Exists(ctx context.Context, uri string) (bool, error) {
	f, err := r.For(uri)
	if err != nil {
		return false, err
	}
	return f.Exists(ctx, uri)
}

func (r *Registry) List(ctx context.Context, uri string) ([]FileInfo, error) {
	f, err := r.For(uri)
	if err != nil {
		return nil, err
	}
	return f.List(ctx, uri)
}

func (r *Registry) Open(ctx context.Context, uri string, offset int64) (io.ReadCloser, error) {
	f, err := r.For(uri)
	if err != nil {
		return nil, err
	}
	return f.Open(ctx, uri, offset)
}

func (r *Registry) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	f, err := r.For(uri)
	if err != nil {
		return nil, err
	}
	return f.Create(ctx, uri)
}

func (r *Registry) Remove(ctx context.Context, uri string, recursive bool) error {
	f, err := r.For(uri)
	if err != nil {
		return err
	}
	return f.Remove(ctx, uri, recursive)
}

func (r *Registry) Mkdir(ctx context.Context, uri string) error {
	f, err := r.For(uri)
	if err != nil {
		return err
	}
	return f.Mkdir(ctx, uri)
}

// Rename moves src to dst.  When they live on different variants the file is streamed across and
// the source removed; directories cannot be moved between variants.
func (r *Registry) Rename(ctx context.Context, src, dst string) error {
	sf, err := r.For(src)
	if err != nil {
		return err
	}
	df, err := r.For(dst)
	if err != nil {
		return err
	}
	if sf == df {
		return sf.Rename(ctx, src, dst)
	}
	if err := CopyFile(ctx, sf, df, src, dst); err != nil {
		return err
	}
	return sf.Remove(ctx, src, false)
}

func (r *Registry) Link(ctx context.Context, src, dst string) error {
	sf, err := r.For(src)
	if err != nil {
		return err
	}
	df, err := r.For(dst)
	if err != nil {
		return err
	}
	if sf != df {
		return errors.Wrapf(ErrUnsupported, "link %s to %s across filesystems", src, dst)
	}
	return sf.Link(ctx, src, dst)
}

func (r *Registry) writerAt(uri string) (WriterAtFS, error) {
	f, err := r.For(uri)
	if err != nil {
		return nil, err
	}
	w, ok := f.(WriterAtFS)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "positioned writes to %s", uri)
	}
	return w, nil
}

func (r *Registry) Truncate(ctx context.Context, uri string, size int64) error {
	w, err := r.writerAt(uri)
	if err != nil {
		return err
	}
	return w.Truncate(ctx, uri, size)
}

func (r *Registry) OpenWriterAt(ctx context.Context, uri string) (WriteAtCloser, error) {
	w, err := r.writerAt(uri)
	if err != nil {
		return nil, err
	}
	return w.OpenWriterAt(ctx, uri)
}

// CopyFile streams the file at src on sf to dst on df.
func CopyFile(ctx context.Context, sf, df FS, src, dst string) (retErr error) {
	r, err := sf.Open(ctx, src, 0)
	if err != nil {
		return err
	}
	defer errors.Close(&retErr, r, "close %s", src)
	w, err := df.Create(ctx, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "copy %s to %s", src, dst)
	}
	return errors.Wrapf(w.Close(), "close %s", dst)
}
