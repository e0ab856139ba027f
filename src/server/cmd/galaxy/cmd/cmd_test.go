package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
)

func run(t *testing.T, args ...string) {
	t.Helper()
	ctx := log.Test(t)
	c := GalaxyCmd(ctx, &Env{LogLevel: "debug"})
	c.SetArgs(args)
	require.NoError(t, c.ExecuteContext(ctx))
}

func setupInputs(t *testing.T) string {
	dir := t.TempDir()
	for name, data := range map[string]string{
		"data/dirA/z.txt": "zzz",
		"data/dirA/a.txt": "a",
		"data/fileB":      "BBBB",
		"data/other.fq":   "fq",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	}
	return dir
}

func TestMakeAndSplitPathset(t *testing.T) {
	dir := setupInputs(t)
	ps := filepath.Join(dir, "in.pathset")
	run(t, "make-pathset", "--force-local", "--data-format", "text", ps,
		filepath.Join(dir, "data", "dirA"), filepath.Join(dir, "data", "file*"))
	got, err := pathset.ReadFile(ps)
	require.NoError(t, err)
	require.Equal(t, "text", got.Datatype)
	require.Equal(t, []string{uri(t, dir, "data/dirA"), uri(t, dir, "data/fileB")}, got.Paths())

	yes, no := filepath.Join(dir, "yes.pathset"), filepath.Join(dir, "no.pathset")
	run(t, "split-pathset", "--expand-levels", "1", "--anchor-end", ".*/a\\.txt", ps, yes, no)
	match, err := pathset.ReadFile(yes)
	require.NoError(t, err)
	require.Equal(t, []string{uri(t, dir, "data/dirA/a.txt")}, match.Paths())
	require.Equal(t, "text", match.Datatype)
	noMatch, err := pathset.ReadFile(no)
	require.NoError(t, err)
	require.Equal(t, []string{uri(t, dir, "data/dirA/z.txt"), uri(t, dir, "data/fileB")}, noMatch.Paths())
}

func uri(t *testing.T, dir, rel string) string {
	u, err := fsutil.Sanitize(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return u
}

func writePathset(t *testing.T, name string, paths ...string) {
	ps, err := pathset.New(paths...)
	require.NoError(t, err)
	require.NoError(t, ps.WriteFile(name))
}

func TestCatPaths(t *testing.T) {
	dir := setupInputs(t)
	ps := filepath.Join(dir, "in.pathset")
	writePathset(t, ps, filepath.Join(dir, "data", "dirA"), filepath.Join(dir, "data", "fileB"))

	for _, c := range []struct {
		name string
		args []string
	}{
		{"sequential", []string{"cat-paths"}},
		{"local", []string{"dist-cat-paths"}},
		{"parallel", []string{"--parallelism", "3", "dist-cat-paths"}},
	} {
		t.Run(c.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out")
			run(t, append(c.args, ps, out)...)
			data, err := os.ReadFile(out)
			require.NoError(t, err)
			require.Equal(t, "azzzBBBB", string(data))
		})
	}
}

func TestDistTextZipper(t *testing.T) {
	dir := setupInputs(t)
	out := filepath.Join(dir, "zipped")
	run(t, "dist-text-zipper", filepath.Join(dir, "data", "dirA"), filepath.Join(dir, "data", "fileB"), out)
	for _, name := range []string{"a.txt.gz", "z.txt.gz", "fileB.gz"} {
		_, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
	}
}

func TestPutDataset(t *testing.T) {
	dir := setupInputs(t)
	src := filepath.Join(dir, "in.pathset")
	writePathset(t, src, filepath.Join(dir, "data", "fileB"))
	dest := filepath.Join(dir, "galaxy", "dataset_7.dat")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	ws := filepath.Join(dir, "ws")
	run(t, "put-dataset", "--workspace", ws, src, dest)
	ps, err := pathset.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []string{uri(t, ws, "dataset_7.dat")}, ps.Paths())
	data, err := os.ReadFile(filepath.Join(ws, "dataset_7.dat", dir, "data", "fileB"))
	require.NoError(t, err)
	require.Equal(t, "BBBB", string(data))
}
