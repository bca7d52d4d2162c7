package ftl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidityIndex_BucketsStayOrdered(t *testing.T) {
	vi := NewValidityIndex(4)
	require.Equal(t, NoMinimum, vi.UpdateMinValid())

	for _, id := range []int{9, 2, 300, 17} {
		vi.Insert(4, id)
	}
	require.Equal(t, []int{2, 9, 17, 300}, vi.Members(4))
	require.Equal(t, 4, vi.UpdateMinValid())

	vi.Move(4, 1, 17)
	require.Equal(t, 1, vi.UpdateMinValid())
	require.Equal(t, 1, vi.Min())
	first, ok := vi.First(1)
	require.True(t, ok)
	require.Equal(t, 17, first)
	require.True(t, vi.Contains(1, 17))
	require.False(t, vi.Contains(4, 17))
	require.Equal(t, []int{0, 1, 0, 0, 3}, vi.Sizes())

	_, ok = vi.First(0)
	require.False(t, ok)
}

func TestValidityIndex_BadMembershipPanics(t *testing.T) {
	vi := NewValidityIndex(2)
	vi.Insert(2, 1)
	requireInvariantPanic(t, func() { vi.Insert(2, 1) })
	requireInvariantPanic(t, func() { vi.Remove(0, 1) })
	requireInvariantPanic(t, func() { vi.Insert(3, 4) })
}

func TestFreePool_Order(t *testing.T) {
	fp := NewFreePool()
	for _, id := range []int{4, 1, 7} {
		fp.PushBack(id)
	}
	fp.PushFront(9)
	fp.PushBack(4) // already present
	require.Equal(t, []int{9, 4, 1, 7}, fp.IDs())

	require.True(t, fp.Remove(1))
	require.False(t, fp.Remove(1))
	front, ok := fp.Front()
	require.True(t, ok)
	require.Equal(t, 9, front)

	id, ok := fp.PopFront()
	require.True(t, ok)
	require.Equal(t, 9, id)
	require.Equal(t, 2, fp.Len())
	require.False(t, fp.Contains(9))
}
