package ftl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sushant-115/gojoftl/core/flash"
)

func TestAlphaFor(t *testing.T) {
	cases := []struct {
		op    float64
		alpha int
	}{
		{0.05, 7},
		{0.2, 7},
		{1.0 / 3, 5},
		{0.5, 6},
		{0.6, 3},
		{0.8, 5},
		{1.0, 2},
		{1.5, 3},
		{2.0, 4},
		{3.0, 2},
		{100, 5},
	}
	for _, c := range cases {
		alpha, ok := AlphaFor(c.op)
		require.True(t, ok, "op %f", c.op)
		require.Equal(t, c.alpha, alpha, "op %f", c.op)
	}

	_, ok := AlphaFor(0)
	require.False(t, ok)
}

func TestDefaultGenerations(t *testing.T) {
	require.Equal(t, 5, DefaultGenerations(flash.Geometry{PhysicalBlocks: 100, LogicalBlocks: 80}))
	require.Equal(t, 1, DefaultGenerations(flash.Geometry{PhysicalBlocks: 4, LogicalBlocks: 2}))
	require.Equal(t, 10, DefaultGenerations(flash.Geometry{PhysicalBlocks: 1000, LogicalBlocks: 990}))
}
