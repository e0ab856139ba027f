package obj

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src, dst := memblob.OpenBucket(nil), memblob.OpenBucket(nil)
	require.NoError(t, src.WriteAll(ctx, "a/b", []byte("payload"), nil))
	require.NoError(t, Copy(ctx, src, dst, "a/b", "c"))
	data, err := dst.ReadAll(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	require.Error(t, Copy(ctx, src, dst, "missing", "d"))
}

func TestWithPipeError(t *testing.T) {
	boom := errors.New("boom")
	err := WithPipe(func(w io.Writer) error {
		return boom
	}, func(r io.Reader) error {
		_, err := io.ReadAll(r)
		return err
	})
	require.True(t, errors.Is(err, boom))
}

func TestNewBucket(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	t.Setenv("HADOOP_GALAXY_FILEBLOB_ROOT", root)
	b, err := NewBucket(ctx, Local, "x")
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.WriteAll(ctx, "k", []byte("v"), nil))
	data, err := os.ReadFile(filepath.Join(root, "x", "k"))
	require.NoError(t, err)
	require.Equal(t, "v", string(data))

	_, err = NewBucket(ctx, "nosuch", "x")
	require.True(t, strings.Contains(err.Error(), "unrecognized storage backend"))
}
