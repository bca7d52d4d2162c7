package flash

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected an invariant panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value should be an error, got %T", r)
		require.True(t, errors.Is(err, ErrInvariantViolation))
	}()
	fn()
}

func TestBlock_WriteFillsInSlotOrder(t *testing.T) {
	b := NewBlock(3, 4)
	table := make([]LogicalPage, 8)

	for i, lpn := range []LPN{5, 1, 7} {
		next := b.Write(nil, lpn, &table[lpn])
		require.Equal(t, i+1, next)
		require.Equal(t, PageRef{Block: 3, Slot: i}, table[lpn].Ref)
		require.True(t, table[lpn].Mapped())
	}
	require.Equal(t, 3, b.Valid())
	require.False(t, b.IsFull())

	// The last slot returns the full sentinel.
	require.Equal(t, BlockFull, b.Write(nil, 2, &table[2]))
	require.True(t, b.IsFull())
	require.Equal(t, 4, b.Valid())
	require.Equal(t, 4, b.Written())

	owner, ok := b.Page(1).Owner()
	require.True(t, ok)
	require.Equal(t, LPN(1), owner)
	require.Equal(t, 3, b.Page(1).Block())
}

func TestBlock_WriteToFullBlockPanics(t *testing.T) {
	b := NewBlock(0, 1)
	table := make([]LogicalPage, 2)
	b.Write(nil, 0, &table[0])
	requireInvariantPanic(t, func() { b.Write(nil, 1, &table[1]) })
}

func TestBlock_Obsolete(t *testing.T) {
	b := NewBlock(0, 2)
	table := make([]LogicalPage, 2)
	b.Write(nil, 0, &table[0])
	b.Write(nil, 1, &table[1])

	b.Obsolete(0)
	require.Equal(t, 1, b.Valid())
	require.Equal(t, Obsolete, b.Page(0).Status())
	_, ok := b.Page(0).Owner()
	require.False(t, ok)

	// Obsoleting twice is a bookkeeping defect.
	requireInvariantPanic(t, func() { b.Obsolete(0) })
	requireInvariantPanic(t, func() { b.Obsolete(9) })
}

func TestBlock_CleanAndCompactKeepsSlotOrder(t *testing.T) {
	b := NewBlock(1, 4)
	table := make([]LogicalPage, 4)
	for _, lpn := range []LPN{3, 0, 2, 1} {
		b.Write(nil, lpn, &table[lpn])
	}
	b.Obsolete(1)

	survivors := b.CleanAndCompact()
	require.Equal(t, []LPN{3, 2, 1}, survivors)
	require.Equal(t, 0, b.Valid())
	require.Equal(t, 0, b.NextFree())
	for i := 0; i < b.Size(); i++ {
		require.Equal(t, FreePhysical, b.Page(i).Status())
	}
}

func TestGeometry_Validate(t *testing.T) {
	g, err := NewGeometry(3, 2, 4, 4096, 100)
	require.NoError(t, err)
	require.Equal(t, 8, g.LogicalPages())
	require.Equal(t, 12, g.PhysicalPages())
	require.InDelta(t, 0.5, g.OverProvisioning(), 1e-9)
	require.InDelta(t, 2.0/3.0, g.Alpha(), 1e-9)

	_, err = NewGeometry(2, 2, 4, 4096, 100)
	require.ErrorIs(t, err, ErrInvalidGeometry)
	require.ErrorIs(t, err, ErrNoOverProvisioning)

	_, err = NewGeometry(3, 2, 0, 4096, 100)
	require.ErrorIs(t, err, ErrNonPositiveGeometry)
}
