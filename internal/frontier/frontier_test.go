package frontier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFrontierDeduplicates verifies equivalent URL spellings occupy one slot.
func TestFrontierDeduplicates(t *testing.T) {
	t.Parallel()

	f := New()
	require.True(t, f.Push("https://example.com/a", 0))
	require.False(t, f.Push("https://EXAMPLE.com/a", 1))
	require.False(t, f.Push("https://example.com/a/", 1))
	require.False(t, f.Push("https://example.com/a#frag", 1))
	require.Equal(t, 1, f.Len())
}

// TestFrontierBreadthFirstOrder checks that entries drain in discovery order,
// so shallower depths always come out before deeper ones.
func TestFrontierBreadthFirstOrder(t *testing.T) {
	t.Parallel()

	f := New()
	f.Push("https://example.com/", 0)
	f.Push("https://example.com/a", 1)
	f.Push("https://example.com/b", 1)
	f.Push("https://example.com/a/x", 2)

	depths := []int{}
	for {
		entry, ok := f.Pop()
		if !ok {
			break
		}
		depths = append(depths, entry.Depth)
	}
	require.Equal(t, []int{0, 1, 1, 2}, depths)
}

// TestFrontierRejectsUnparseable ensures malformed URLs never enter the queue.
func TestFrontierRejectsUnparseable(t *testing.T) {
	t.Parallel()

	f := New()
	require.False(t, f.Push("://bad", 0))
	require.False(t, f.Push("relative/path", 0))
	require.Equal(t, 0, f.Len())
	require.Equal(t, 0, f.SeenCount())
}

func TestFrontierPopEmpty(t *testing.T) {
	t.Parallel()

	f := New()
	_, ok := f.Pop()
	require.False(t, ok)
}
