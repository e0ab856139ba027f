package worker

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/partition"
	"github.com/crs4/hadoop-galaxy/src/internal/resolve"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
)

type testReporter struct {
	mu       sync.Mutex
	status   []string
	counters task.Counters
}

func (r *testReporter) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = append(r.status, msg)
}

func (r *testReporter) Count(group, name string, n int64) {
	r.counters.Add(group, name, n)
}

func uri(t *testing.T, p string) string {
	u, err := fsutil.Sanitize(p)
	require.NoError(t, err)
	return u
}

func TestCatPaths(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	var leaves []resolve.Leaf
	for _, c := range []struct{ name, data string }{{"a", "0123456789"}, {"b", ""}, {"c", "abcde"}} {
		p := filepath.Join(dir, c.name)
		require.NoError(t, os.WriteFile(p, []byte(c.data), 0o644))
		leaves = append(leaves, resolve.Leaf{URI: uri(t, p), Size: int64(len(c.data)), Kind: fsutil.KindFile, Root: uri(t, p)})
	}
	dest := uri(t, filepath.Join(dir, "out"))
	out, tasks, err := partition.ByteRanges(leaves, dest)
	require.NoError(t, err)
	f := fsutil.NewRegistry(nil)
	written := testutil.ToFloat64(bytesWrittenMetric)

	tk := task.Task{Index: 0, Line: line(t, tasks[0])}
	require.ErrorContains(t, CatPaths(ctx, f, tk, &testReporter{}), "does not exist")

	require.NoError(t, f.Truncate(ctx, out.URI, out.TotalSize))
	r := &testReporter{}
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	for i := len(tasks) - 1; i >= 0; i-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = CatPaths(ctx, f, task.Task{Index: tasks[i].Index, Line: line(t, tasks[i])}, r)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Equal(t, "0123456789abcde", string(data))
	require.Equal(t, int64(15), r.counters.Get(CounterGroup, "file bytes written"))
	require.Equal(t, int64(3), r.counters.Get(CounterGroup, "files catted"))
	require.Equal(t, written+15, testutil.ToFloat64(bytesWrittenMetric))
	require.NotEmpty(t, r.status)
	require.True(t, strings.HasPrefix(r.status[0], "Copying 0 of "), r.status[0])
}

func TestCatPathsRejects(t *testing.T) {
	ctx := log.Test(t)
	f := fsutil.NewRegistry(nil)
	err := CatPaths(ctx, f, task.Task{Line: "file:///a\t0\t1\ts3://bucket/out\t0"}, &testReporter{})
	require.ErrorContains(t, err, "local filesystem")
	err = CatPaths(ctx, f, task.Task{Line: "file:///a\t0\t1"}, &testReporter{})
	require.Error(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(src, []byte("abc"), 0o644))
	dest := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(dest, make([]byte, 10), 0o644))
	err = CatPaths(ctx, f, task.Task{Line: uri(t, src) + "\t0\t10\t" + uri(t, dest) + "\t0"}, &testReporter{})
	require.ErrorContains(t, err, "ended after 3 bytes")
}

func line(t *testing.T, r task.Record) string {
	l, err := task.FormatLine(r.Fields())
	require.NoError(t, err)
	return l
}

func TestTextZipper(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	content := strings.Repeat("some text line\n", 1000)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "in", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "sub", "y.txt"), []byte(content), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "job"), 0o755))
	tt := partition.TransformTask{Index: 4, InputRoot: uri(t, filepath.Join(dir, "in")), OutputRoot: uri(t, filepath.Join(dir, "final")), RelPath: "sub/y.txt"}
	r := &testReporter{}
	compressed := testutil.ToFloat64(bytesCompressedMetric)
	err := TextZipper(ctx, fsutil.NewRegistry(nil), task.Task{Index: 4, Line: line(t, tt), OutputDir: uri(t, filepath.Join(dir, "job"))}, r)
	require.NoError(t, err)

	zf, err := os.Open(filepath.Join(dir, "job", "part-00004.gz"))
	require.NoError(t, err)
	defer zf.Close()
	zr, err := gzip.NewReader(zf)
	require.NoError(t, err)
	var got bytes.Buffer
	_, err = io.Copy(&got, zr)
	require.NoError(t, err)
	require.Equal(t, content, got.String())
	require.Equal(t, int64(len(content)), r.counters.Get(CounterGroup, "bytes compressed"))
	require.Equal(t, int64(1), r.counters.Get(CounterGroup, "files compressed"))
	require.Equal(t, compressed+float64(len(content)), testutil.ToFloat64(bytesCompressedMetric))
	require.Contains(t, r.status[0], "sub/y.txt")

	err = TextZipper(ctx, fsutil.NewRegistry(nil), task.Task{Index: 5, Line: tt.InputRoot + "\t" + tt.OutputRoot + "\tmissing", OutputDir: uri(t, filepath.Join(dir, "job"))}, r)
	require.Error(t, err)
}

func TestEntryPoints(t *testing.T) {
	eps := EntryPoints()
	for _, name := range []string{CatPathsEntryPoint, TextZipperEntryPoint} {
		_, err := eps.Get(name)
		require.NoError(t, err)
	}
}
