package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
)

func TestPut(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "reads", "lane1"), 0o755))
	for name, data := range map[string]string{
		"reads/lane1/a.fastq": "AAAA",
		"reads/b.fastq":       "BB",
		"single.fastq":        "S",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(src, filepath.FromSlash(name)), []byte(data), 0o644))
	}
	ps, err := pathset.New(filepath.Join(src, "reads"), filepath.Join(src, "single.*"))
	require.NoError(t, err)
	ps.Datatype = "fastq"
	workspace := filepath.Join(dir, "workspace")

	out, err := Put(ctx, fsutil.NewRegistry(nil), ps, workspace, "dataset_1.dat", 2)
	require.NoError(t, err)
	dest := filepath.Join(workspace, "dataset_1.dat")
	destURI, err := fsutil.Sanitize(dest)
	require.NoError(t, err)
	require.Equal(t, []string{destURI}, out.Paths())
	require.Equal(t, "fastq", out.Datatype)
	require.Equal(t, "Copied from\n"+strings.Join(ps.Paths(), "\n"), out.Comment)
	for name, data := range map[string]string{
		"reads/lane1/a.fastq": "AAAA",
		"reads/b.fastq":       "BB",
		"single.fastq":        "S",
	} {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(src), filepath.FromSlash(name)))
		require.NoError(t, err)
		require.Equal(t, data, string(got))
	}

	_, err = Put(ctx, fsutil.NewRegistry(nil), ps, workspace, "dataset_1.dat", 2)
	require.ErrorContains(t, err, "already exists")
}

func TestPutRejects(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	ps, err := pathset.New(dir)
	require.NoError(t, err)
	f := fsutil.NewRegistry(nil)
	_, err = Put(ctx, f, ps, "", "x", 1)
	require.ErrorContains(t, err, "HADOOP_GALAXY_PUT_DIR")
	_, err = Put(ctx, f, ps, dir, "a/b", 1)
	require.Error(t, err)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Put(ctx, f, ps, file, "x", 1)
	require.ErrorContains(t, err, "not a directory")

	missing, err := pathset.New(filepath.Join(dir, "nothing-*"))
	require.NoError(t, err)
	_, err = Put(ctx, f, missing, filepath.Join(dir, "ws"), "x", 1)
	require.ErrorContains(t, err, "pattern matched nothing")
}

// brokenFS fails to create files named bad.
type brokenFS struct {
	fsutil.FS
}

func (f brokenFS) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	if strings.HasSuffix(uri, "/bad") {
		return nil, errors.New("disk full")
	}
	return f.FS.Create(ctx, uri)
}

func TestPutCleanup(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good"), []byte("g"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), []byte("b"), 0o644))
	ps, err := pathset.New(filepath.Join(dir, "good"), filepath.Join(dir, "bad"))
	require.NoError(t, err)
	workspace := filepath.Join(dir, "ws")
	_, err = Put(ctx, brokenFS{fsutil.NewRegistry(nil)}, ps, workspace, "out", 1)
	require.ErrorContains(t, err, "disk full")
	_, err = os.Stat(filepath.Join(workspace, "out"))
	require.True(t, os.IsNotExist(err))
}

func TestTarget(t *testing.T) {
	got, err := Target("file:///ws/out", "s3://bucket/data/x")
	require.NoError(t, err)
	require.Equal(t, "file:///ws/out/data/x", got)
}
