package catpaths

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
)

func writeFile(t *testing.T, p, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func uri(t *testing.T, p string) string {
	t.Helper()
	u, err := fsutil.Sanitize(p)
	require.NoError(t, err)
	return u
}

func newPathset(t *testing.T, paths ...string) *pathset.Pathset {
	t.Helper()
	ps, err := pathset.New(paths...)
	require.NoError(t, err)
	return ps
}

func inode(t *testing.T, p string) uint64 {
	t.Helper()
	fi, err := os.Stat(p)
	require.NoError(t, err)
	return fi.Sys().(*syscall.Stat_t).Ino
}

func TestConcatenate(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dirA", "z.txt"), "zzz")
	writeFile(t, filepath.Join(dir, "dirA", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "dirA", "_SUCCESS"), "ignored")
	writeFile(t, filepath.Join(dir, "dirA", "sub", "m.txt"), "mm")
	writeFile(t, filepath.Join(dir, "fileB"), "BBBB")
	ps := newPathset(t, filepath.Join(dir, "dirA"), filepath.Join(dir, "fileB"))
	out := filepath.Join(dir, "out")
	res, err := Copy(ctx, fsutil.NewRegistry(nil), ps, uri(t, out), Options{ChunkSize: 2, ProgressEvery: 1})
	require.NoError(t, err)
	require.Equal(t, Result{Leaves: 4, Bytes: 10}, res)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "ammzzzBBBB", string(data))
}

func TestSingleFileHardLink(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "src"), "payload")
	dest := writeFile(t, filepath.Join(dir, "dest"), "old content")
	res, err := Copy(ctx, fsutil.NewRegistry(nil), newPathset(t, src), uri(t, dest), Options{})
	require.NoError(t, err)
	require.True(t, res.Linked)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
	require.Equal(t, inode(t, src), inode(t, dest))
}

// noLinkFS fails every hard link.
type noLinkFS struct {
	fsutil.FS
}

func (noLinkFS) Link(ctx context.Context, src, dst string) error {
	return errors.Wrap(syscall.EXDEV, "link")
}

func TestHardLinkFallback(t *testing.T) {
	ctx, h := log.TestWithCapture(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "src"), "payload")
	dest := filepath.Join(dir, "dest")
	res, err := Copy(ctx, noLinkFS{fsutil.NewRegistry(nil)}, newPathset(t, src), uri(t, dest), Options{DeleteSource: true})
	require.NoError(t, err)
	require.False(t, res.Linked)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err), "source should be deleted")
	require.Contains(t, h.Logs(), "info: failed to hard link, will copy")
}

// failingFS returns destination writers that fail after failAfter bytes, and optionally refuses to
// remove anything.
type failingFS struct {
	fsutil.FS
	failAfter int
	noRemove  bool
}

type failingWriter struct {
	io.WriteCloser
	left int
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.left {
		n, _ := w.WriteCloser.Write(p[:w.left])
		w.left = 0
		return n, errDiskFull
	}
	w.left -= len(p)
	return w.WriteCloser.Write(p)
}

func (f failingFS) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	w, err := f.FS.Create(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &failingWriter{WriteCloser: w, left: f.failAfter}, nil
}

var errReadOnly = errors.New("read only")

func (f failingFS) Remove(ctx context.Context, uri string, recursive bool) error {
	if f.noRemove {
		return errReadOnly
	}
	return f.FS.Remove(ctx, uri, recursive)
}

func TestFailureCleanup(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "0123456789")
	b := writeFile(t, filepath.Join(dir, "b"), "0123456789")
	out := filepath.Join(dir, "out")
	_, err := Copy(ctx, failingFS{FS: fsutil.NewRegistry(nil), failAfter: 15}, newPathset(t, a, b), uri(t, out), Options{})
	require.True(t, errors.Is(err, errDiskFull), "%v", err)
	require.Empty(t, errors.Suppressed(err))
	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err), "partial output must be removed")
}

func TestFailureCleanupBlocked(t *testing.T) {
	ctx, h := log.TestWithCapture(t)
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "0123456789")
	b := writeFile(t, filepath.Join(dir, "b"), "0123456789")
	out := filepath.Join(dir, "out")
	_, err := Copy(ctx, failingFS{FS: fsutil.NewRegistry(nil), failAfter: 15, noRemove: true}, newPathset(t, a, b), uri(t, out), Options{})
	require.True(t, errors.Is(err, errDiskFull), "%v", err)
	suppressed := errors.Suppressed(err)
	require.Len(t, suppressed, 1)
	require.True(t, errors.Is(suppressed[0], errReadOnly))
	require.Contains(t, h.Logs(), "error: could not remove partial output")
}

func TestExistingDirectoryDestination(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "0123456789")
	b := writeFile(t, filepath.Join(dir, "b"), "abcde")
	results := filepath.Join(dir, "results")
	precious := writeFile(t, filepath.Join(results, "precious"), "keep me")
	r := fsutil.NewRegistry(nil)
	for _, ps := range []*pathset.Pathset{newPathset(t, a, b), newPathset(t, a)} {
		_, err := Copy(ctx, r, ps, uri(t, results), Options{})
		require.Error(t, err)
		data, err := os.ReadFile(precious)
		require.NoError(t, err, "an existing directory must not be removed")
		require.Equal(t, "keep me", string(data))
	}
}

func TestDeleteSourceFailuresAreLogged(t *testing.T) {
	ctx, h := log.TestWithCapture(t)
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "x")
	b := writeFile(t, filepath.Join(dir, "b"), "y")
	out := filepath.Join(dir, "out")
	f := failingFS{FS: fsutil.NewRegistry(nil), failAfter: 1 << 20, noRemove: true}
	_, err := Copy(ctx, f, newPathset(t, a, b), uri(t, out), Options{DeleteSource: true})
	require.NoError(t, err)
	var n int
	for _, l := range h.Logs() {
		if l == "warn: unable to delete source path" {
			n++
		}
	}
	require.Equal(t, 2, n)
}

func TestBlobDestination(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "hello ")
	b := writeFile(t, filepath.Join(dir, "b"), "world")
	blobs, err := fsutil.NewBlobFS(nil, 1)
	require.NoError(t, err)
	r := fsutil.NewRegistry(blobs)
	res, err := Copy(ctx, r, newPathset(t, a, b), "mem://bucket/out", Options{})
	require.NoError(t, err)
	require.Equal(t, int64(11), res.Bytes)
	rc, err := r.Open(ctx, "mem://bucket/out", 0)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = io.Copy(&buf, rc)
	require.NoError(t, err)
	require.Equal(t, "hello world", buf.String())
}

func TestRejects(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "x")
	r := fsutil.NewRegistry(nil)
	_, err := Copy(ctx, r, newPathset(t), uri(t, filepath.Join(dir, "out")), Options{})
	require.Error(t, err)
	_, err = Copy(ctx, r, newPathset(t, a), "relative", Options{})
	require.Error(t, err)
	_, err = Copy(ctx, r, newPathset(t, a), uri(t, a), Options{})
	require.Error(t, err)
}
