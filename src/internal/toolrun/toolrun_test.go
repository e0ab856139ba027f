package toolrun

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
)

func TestConfig(t *testing.T) {
	c, err := ReadConfig(strings.NewReader(`
HADOOP_HOME: /opt/hadoop
other_key: ignored
tool_env:
  PATH: /opt/tools/bin
  JAVA_OPTS: -Xmx2g
`))
	require.NoError(t, err)
	require.Equal(t, "/opt/hadoop", c.HadoopHome)
	env := c.Environ([]string{"PATH=/usr/bin", "HOME=/root", "HADOOP_HOME=/usr/lib/hadoop"})
	require.Equal(t, []string{"HADOOP_HOME=/opt/hadoop", "HOME=/root", "JAVA_OPTS=-Xmx2g", "PATH=/opt/tools/bin"}, env)

	c, err = ReadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, c.ToolEnv)
	var nilConfig *Config
	require.Equal(t, []string{"A=1"}, nilConfig.Environ([]string{"A=1"}))

	_, err = ReadConfig(strings.NewReader("tool_env: [not, a, map]"))
	require.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	p, err := OutputPath("/galaxy/files/dataset_3.dat", "", "")
	require.NoError(t, err)
	require.Equal(t, "file:///galaxy/files/hadoop_output/dataset_3.dat", p)
	p, err = OutputPath("/galaxy/files/dataset_3.dat", "hdfs://nn:8020/user/me", "")
	require.NoError(t, err)
	require.Equal(t, "hdfs://nn:8020/user/me/dataset_3.dat", p)
	p, err = OutputPath("/galaxy/files/dataset_3.dat", "/scratch", "job")
	require.NoError(t, err)
	require.Equal(t, "file:///scratch/job", p)
}

func TestFindExecutable(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), nil, 0o644))
	p, err := FindExecutable("tool", []string{"PATH=/nonexistent:" + dir})
	require.NoError(t, err)
	require.Equal(t, tool, p)
	_, err = FindExecutable("data", []string{"PATH=" + dir})
	require.Error(t, err)
	_, err = FindExecutable(filepath.Join(dir, "data"), nil)
	require.ErrorContains(t, err, "not an executable")
}

func TestRun(t *testing.T) {
	ctx := log.Test(t)
	dir := t.TempDir()
	tool := filepath.Join(dir, "tool.sh")
	// The last argument is the output directory; the tool lists its other arguments there.
	require.NoError(t, os.WriteFile(tool, []byte(`#!/bin/sh
for last; do true; done
out=$(echo "$last" | sed 's|^file://||')
mkdir -p "$out"
echo "$@" > "$out/args"
echo "$GREETING" > "$out/env"
`), 0o755))
	input, err := pathset.New(filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	require.NoError(t, err)
	outputPathset := filepath.Join(dir, "galaxy", "out.dat")
	require.NoError(t, os.MkdirAll(filepath.Dir(outputPathset), 0o755))
	outputURI, err := OutputPath(outputPathset, "", "")
	require.NoError(t, err)
	var stdout bytes.Buffer
	r := &Runner{
		Executable: tool,
		Args:       []string{"-D", "x=y"},
		Config:     &Config{ToolEnv: map[string]string{"GREETING": "hello"}},
		Stdout:     &stdout,
	}
	require.NoError(t, r.Run(ctx, fsutil.NewRegistry(nil), input, outputURI, outputPathset))

	outDir := filepath.Join(dir, "galaxy", OutputDirName, "out.dat")
	args, err := os.ReadFile(filepath.Join(outDir, "args"))
	require.NoError(t, err)
	require.Equal(t, "-D x=y "+strings.Join(input.Paths(), " ")+" "+outputURI+"\n", string(args))
	env, err := os.ReadFile(filepath.Join(outDir, "env"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(env))
	ps, err := pathset.ReadFile(outputPathset)
	require.NoError(t, err)
	require.Equal(t, []string{outputURI}, ps.Paths())

	failing := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\nexit 3\n"), 0o755))
	r = &Runner{Executable: failing}
	err = r.Run(ctx, fsutil.NewRegistry(nil), input, outputURI, filepath.Join(dir, "galaxy", "other.dat"))
	require.ErrorContains(t, err, "exit code: 3")
	_, err = os.Stat(filepath.Join(dir, "galaxy", "other.dat"))
	require.True(t, os.IsNotExist(err))
}
