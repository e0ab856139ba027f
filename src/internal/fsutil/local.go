package fsutil

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// LocalFS serves file:// URIs from the local filesystem.
type LocalFS struct{}

var _ WriterAtFS = LocalFS{}

func localPath(uri string) (string, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != LocalScheme {
		return "", errors.Errorf("%s is not a local URI", uri)
	}
	if u.Authority != "" && u.Authority != "localhost" {
		return "", errors.Errorf("%s: local URIs cannot name a host", uri)
	}
	return filepath.FromSlash(u.Path), nil
}

func infoFor(uri string, fi fs.FileInfo) FileInfo {
	result := FileInfo{URI: uri, Name: fi.Name(), Size: fi.Size()}
	switch {
	case fi.Mode().IsRegular():
		result.Kind = KindFile
	case fi.IsDir():
		result.Kind = KindDir
		result.Size = 0
	}
	return result
}

// Stat follows symlinks.
func (LocalFS) Stat(ctx context.Context, uri string) (FileInfo, error) {
	p, err := localPath(uri)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return FileInfo{}, errors.EnsureStack(err)
	}
	return infoFor(uri, fi), nil
}

func (l LocalFS) Exists(ctx context.Context, uri string) (bool, error) {
	return exists(ctx, l, uri)
}

func (LocalFS) List(ctx context.Context, uri string) ([]FileInfo, error) {
	p, err := localPath(uri)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	base := MustParseURI(uri)
	var result []FileInfo
	for _, e := range entries {
		fi, err := os.Stat(filepath.Join(p, e.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				// dangling symlink, or removed since ReadDir
				result = append(result, FileInfo{URI: base.Join(e.Name()).String(), Name: e.Name()})
				continue
			}
			return nil, errors.EnsureStack(err)
		}
		result = append(result, infoFor(base.Join(e.Name()).String(), fi))
	}
	return result, nil
}

func (LocalFS) Open(ctx context.Context, uri string, offset int64) (io.ReadCloser, error) {
	p, err := localPath(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, errors.EnsureStack(err)
		}
	}
	return f, nil
}

func (LocalFS) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	p, err := localPath(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	return f, nil
}

func (LocalFS) Remove(ctx context.Context, uri string, recursive bool) error {
	p, err := localPath(uri)
	if err != nil {
		return err
	}
	if recursive {
		return errors.EnsureStack(os.RemoveAll(p))
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.EnsureStack(err)
	}
	return nil
}

func (LocalFS) Mkdir(ctx context.Context, uri string) error {
	p, err := localPath(uri)
	if err != nil {
		return err
	}
	return errors.EnsureStack(os.MkdirAll(p, 0o777))
}

func (LocalFS) Rename(ctx context.Context, src, dst string) error {
	sp, err := localPath(src)
	if err != nil {
		return err
	}
	dp, err := localPath(dst)
	if err != nil {
		return err
	}
	return errors.EnsureStack(os.Rename(sp, dp))
}

func (LocalFS) Link(ctx context.Context, src, dst string) error {
	sp, err := localPath(src)
	if err != nil {
		return err
	}
	dp, err := localPath(dst)
	if err != nil {
		return err
	}
	return errors.EnsureStack(os.Link(sp, dp))
}

func (LocalFS) Truncate(ctx context.Context, uri string, size int64) (retErr error) {
	p, err := localPath(uri)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return errors.EnsureStack(err)
	}
	defer errors.Close(&retErr, f, "close %s", uri)
	return errors.EnsureStack(f.Truncate(size))
}

func (LocalFS) OpenWriterAt(ctx context.Context, uri string) (WriteAtCloser, error) {
	p, err := localPath(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	return f, nil
}

func exists(ctx context.Context, f FS, uri string) (bool, error) {
	if _, err := f.Stat(ctx, uri); err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
