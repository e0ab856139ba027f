package resolve

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
)

func writeFile(t *testing.T, p string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
}

func uri(t *testing.T, p string) string {
	t.Helper()
	u, err := fsutil.Sanitize(p)
	require.NoError(t, err)
	return u
}

// tree creates
//
//	dirA/z.txt dirA/a.txt dirA/.hidden dirA/_logs/x dirA/sub/deep/c.txt dirA/sub/b.txt
//	fileB
func tree(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dirA", "z.txt"), 3)
	writeFile(t, filepath.Join(dir, "dirA", "a.txt"), 1)
	writeFile(t, filepath.Join(dir, "dirA", ".hidden"), 1)
	writeFile(t, filepath.Join(dir, "dirA", "_logs", "x"), 1)
	writeFile(t, filepath.Join(dir, "dirA", "sub", "deep", "c.txt"), 2)
	writeFile(t, filepath.Join(dir, "dirA", "sub", "b.txt"), 2)
	writeFile(t, filepath.Join(dir, "fileB"), 5)
	return dir
}

func TestWalkAllOrdering(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dirA", "z.txt"), 2)
	writeFile(t, filepath.Join(dir, "dirA", "a.txt"), 1)
	writeFile(t, filepath.Join(dir, "fileB"), 4)
	r := New(fsutil.LocalFS{})
	leaves, err := r.WalkAll(ctx, []string{uri(t, filepath.Join(dir, "dirA")), uri(t, filepath.Join(dir, "fileB"))})
	require.NoError(t, err)
	require.Equal(t, []string{
		uri(t, filepath.Join(dir, "dirA", "a.txt")),
		uri(t, filepath.Join(dir, "dirA", "z.txt")),
		uri(t, filepath.Join(dir, "fileB")),
	}, URIs(leaves))
	require.Equal(t, int64(7), TotalSize(leaves))
	require.Equal(t, uri(t, filepath.Join(dir, "dirA")), leaves[0].Root)
	require.Equal(t, leaves[2].URI, leaves[2].Root)
}

func TestWalkSkipsHidden(t *testing.T) {
	ctx := log.Test(t)
	dir := tree(t)
	leaves, err := New(fsutil.LocalFS{}).Walk(ctx, uri(t, filepath.Join(dir, "dirA")))
	require.NoError(t, err)
	var rel []string
	for _, l := range leaves {
		r, err := filepath.Rel(dir, l.URI[len("file://"):])
		require.NoError(t, err)
		rel = append(rel, r)
		require.Equal(t, fsutil.KindFile, l.Kind)
	}
	require.Equal(t, []string{"dirA/a.txt", "dirA/sub/b.txt", "dirA/sub/deep/c.txt", "dirA/z.txt"}, rel)
}

func TestExpand(t *testing.T) {
	ctx := log.Test(t)
	dir := tree(t)
	r := New(fsutil.LocalFS{})
	dirA := uri(t, filepath.Join(dir, "dirA"))
	testCases := []struct {
		depth int
		want  []string
	}{
		{0, []string{"dirA"}},
		{1, []string{"dirA/a.txt", "dirA/sub", "dirA/z.txt"}},
		{2, []string{"dirA/a.txt", "dirA/sub/b.txt", "dirA/sub/deep", "dirA/z.txt"}},
		{5, []string{"dirA/a.txt", "dirA/sub/b.txt", "dirA/sub/deep/c.txt", "dirA/z.txt"}},
	}
	for _, tc := range testCases {
		leaves, err := r.Expand(ctx, dirA, tc.depth)
		require.NoError(t, err)
		var want []string
		for _, w := range tc.want {
			want = append(want, uri(t, filepath.Join(dir, w)))
		}
		require.Equal(t, want, URIs(leaves), "depth %d", tc.depth)
	}

	fileB := uri(t, filepath.Join(dir, "fileB"))
	leaves, err := r.Expand(ctx, fileB, 0)
	require.NoError(t, err)
	require.Equal(t, []Leaf{{URI: fileB, Size: 5, Kind: fsutil.KindFile, Root: fileB}}, leaves)

	_, err = r.Expand(ctx, dirA, -1)
	require.Error(t, err)
	_, err = r.Expand(ctx, uri(t, filepath.Join(dir, "missing")), 1)
	require.True(t, fsutil.IsNotExist(err))
}

func TestSkipOtherKinds(t *testing.T) {
	ctx, h := log.TestWithCapture(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), 1)
	require.NoError(t, syscall.Mkfifo(filepath.Join(dir, "fifo"), 0o644))
	leaves, err := New(fsutil.LocalFS{}).Walk(ctx, uri(t, dir))
	require.NoError(t, err)
	require.Equal(t, []string{uri(t, filepath.Join(dir, "a"))}, URIs(leaves))
	require.Contains(t, h.Logs(), "warn: skipping item of unsupported kind")
}

func TestGlob(t *testing.T) {
	ctx := log.Test(t)
	dir := tree(t)
	r := New(fsutil.LocalFS{})

	fileB := uri(t, filepath.Join(dir, "fileB"))
	got, err := r.Glob(ctx, fileB)
	require.NoError(t, err)
	require.Equal(t, []string{fileB}, got)

	got, err = r.GlobAll(ctx, []string{uri(t, filepath.Join(dir, "dirA", "*.txt")), fileB})
	require.NoError(t, err)
	require.Equal(t, []string{
		uri(t, filepath.Join(dir, "dirA", "a.txt")),
		uri(t, filepath.Join(dir, "dirA", "z.txt")),
		fileB,
	}, got)

	var re *ResolutionError
	_, err = r.Glob(ctx, uri(t, filepath.Join(dir, "dirA", "*.nope")))
	require.True(t, errors.As(err, &re))
	require.Equal(t, "pattern matched nothing", re.Reason)
	_, err = r.Glob(ctx, uri(t, filepath.Join(dir, "missing")))
	require.True(t, errors.As(err, &re))
}

func TestQualify(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	testCases := []struct {
		mode      Mode
		defaultFS string
		in        string
		want      string
		wantErr   bool
	}{
		{mode: DefaultMode, in: "/data/x", want: "file:///data/x"},
		{mode: DefaultMode, in: "rel", want: "file://" + filepath.Join(cwd, "rel")},
		{mode: DefaultMode, defaultFS: "hdfs://nn:8020", in: "/data/x", want: "hdfs://nn:8020/data/x"},
		{mode: DefaultMode, defaultFS: "hdfs://nn:8020", in: "s3://b/k", want: "s3://b/k"},
		{mode: DefaultMode, defaultFS: "hdfs://nn:8020", in: "rel", wantErr: true},
		{mode: DefaultMode, defaultFS: "file://", in: "/x", want: "file:///x"},
		{mode: LocalMode, defaultFS: "hdfs://nn:8020", in: "/x", want: "file:///x"},
		{mode: LocalMode, in: "file:/x", want: "file:///x"},
		{mode: LocalMode, in: "s3://b/k", wantErr: true},
		{mode: DefaultMode, in: "", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := Qualify(tc.mode, tc.defaultFS, tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}
