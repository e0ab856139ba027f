package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureStack(t *testing.T) {
	require.NoError(t, EnsureStack(nil))
	err := EnsureStack(io.EOF)
	require.True(t, Is(err, io.EOF))
	var frames int
	ForEachStackFrame(err, func(Frame) { frames++ })
	require.NotZero(t, frames)

	wrapped := Wrap(io.EOF, "read")
	require.Equal(t, wrapped, EnsureStack(wrapped))
}

func TestJoinInto(t *testing.T) {
	var err error
	JoinInto(&err, nil)
	require.NoError(t, err)
	JoinInto(&err, io.EOF)
	require.Equal(t, io.EOF, err)
	JoinInto(&err, io.ErrClosedPipe)
	require.True(t, Is(err, io.EOF))
	require.True(t, Is(err, io.ErrClosedPipe))
}

func TestWithSuppressed(t *testing.T) {
	primary := New("write failed")
	cleanup := New("remove failed")

	require.Equal(t, primary, WithSuppressed(primary))
	require.Equal(t, primary, WithSuppressed(primary, nil))

	err := WithSuppressed(primary, cleanup)
	require.True(t, Is(err, primary))
	require.False(t, Is(err, cleanup))
	require.Equal(t, []error{cleanup}, Suppressed(err))
	require.Contains(t, err.Error(), "write failed")
	require.Contains(t, err.Error(), "remove failed")

	other := New("second cleanup")
	err = WithSuppressed(err, other)
	require.Equal(t, []error{cleanup, other}, Suppressed(err))

	require.True(t, Is(WithSuppressed(nil, cleanup), cleanup))
	require.Nil(t, Suppressed(primary))
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestClose(t *testing.T) {
	f := func(c closer) (retErr error) {
		defer Close(&retErr, c, "close %s", "thing")
		return nil
	}
	require.NoError(t, f(closer{}))
	err := f(closer{err: New("disk gone")})
	require.ErrorContains(t, err, "close thing: disk gone")
}
