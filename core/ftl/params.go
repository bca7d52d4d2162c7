package ftl

import (
	"math"

	"github.com/sushant-115/gojoftl/core/flash"
)

// overLoadingFactor relates logical blocks to a good generation count.
const overLoadingFactor = 15.3792

type alphaBound struct {
	upper float64 // inclusive upper bound of the over-provisioning ratio
	alpha int
}

// alphaTable maps over-provisioning ranges (previous upper, upper] to the
// exponent of the block score denominator. Values were tuned empirically.
var alphaTable = []alphaBound{
	{11.0 / 105, 7},
	{17.0 / 91, 7},
	{11.0 / 39, 7},
	{13.0 / 33, 5},
	{29.0 / 55, 6},
	{131.0 / 198, 3},
	{8.0 / 9, 5},
	{8.0 / 7, 2},
	{79.0 / 40, 3},
	{99.0 / 40, 4},
	{11.0 / 3, 2},
	{math.MaxInt32, 5},
}

// AlphaFor returns the score exponent for an over-provisioning ratio.
// Ratios at or below zero have no entry.
func AlphaFor(op float64) (int, bool) {
	if op <= 0 {
		return 0, false
	}
	for _, b := range alphaTable {
		if op <= b.upper {
			return b.alpha, true
		}
	}
	return 0, false
}

// DefaultGenerations is the generation count heuristic:
// max(min(floor(U/15.3792), T-U), 1).
func DefaultGenerations(g flash.Geometry) int {
	n := int(float64(g.LogicalBlocks) / overLoadingFactor)
	if spare := g.PhysicalBlocks - g.LogicalBlocks; spare < n {
		n = spare
	}
	return max(n, 1)
}
