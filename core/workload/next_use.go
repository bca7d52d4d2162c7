package workload

import (
	"fmt"

	"github.com/sushant-115/gojoftl/core/flash"
)

// NextUseIndex answers, for every position of a write sequence, where the
// same logical page is written next. It is built once in O(n) and is
// read-only afterwards.
type NextUseIndex struct {
	// next[i] is the next position of seq[i], or len(seq) if never rewritten.
	next []uint64
	// first[lpn] is the first position of lpn, or len(seq).
	first []uint64
}

// NewNextUseIndex indexes seq. Every entry must be below logicalPages.
func NewNextUseIndex(seq []flash.LPN, logicalPages int) (*NextUseIndex, error) {
	if logicalPages <= 0 {
		return nil, ErrNoLogicalPages
	}
	n := uint64(len(seq))
	idx := &NextUseIndex{
		next:  make([]uint64, n),
		first: make([]uint64, logicalPages),
	}
	for i := range idx.first {
		idx.first[i] = n
	}
	for i := int(n) - 1; i >= 0; i-- {
		lpn := seq[i]
		if int(lpn) >= logicalPages {
			return nil, fmt.Errorf("workload: page %d at position %d exceeds %d logical pages", lpn, i, logicalPages)
		}
		idx.next[i] = idx.first[lpn]
		idx.first[lpn] = uint64(i)
	}
	return idx, nil
}

// Len is the length of the indexed sequence.
func (x *NextUseIndex) Len() uint64 { return uint64(len(x.next)) }

// NextUse returns the position after i at which seq[i] is written again,
// or Len() if it never is.
func (x *NextUseIndex) NextUse(i uint64) uint64 { return x.next[i] }

// Locations lists every position of lpn in ascending order.
func (x *NextUseIndex) Locations(lpn flash.LPN) []uint64 {
	var locs []uint64
	for p := x.first[lpn]; p < x.Len(); p = x.next[p] {
		locs = append(locs, p)
	}
	return locs
}

// Generation buckets the rewrite distance of position i into one of
// generations classes over horizon writes. Short-lived writes get low
// generations; pages never rewritten go to the last one.
func (x *NextUseIndex) Generation(i uint64, generations int, horizon uint64) int {
	last := generations - 1
	next := x.next[i]
	if next == x.Len() || horizon == 0 {
		return last
	}
	g := (next - i) * uint64(generations) / horizon
	if g > uint64(last) {
		return last
	}
	return int(g)
}
