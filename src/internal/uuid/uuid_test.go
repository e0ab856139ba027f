package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithoutDashes(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewWithoutDashes()
		require.NotContains(t, id, "-")
		require.True(t, IsUUIDWithoutDashes(id), id)
		require.False(t, seen[id])
		seen[id] = true
	}
	require.False(t, IsUUIDWithoutDashes(New()))
	require.False(t, IsUUIDWithoutDashes("not-a-uuid"))
}
