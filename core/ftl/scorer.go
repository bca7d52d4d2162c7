package ftl

import (
	"math"

	"github.com/sushant-115/gojoftl/core/flash"
)

// BlockScore rates a reclamation candidate against the future write sequence,
// walking forward from base for at most pagesPerBlock*physicalBlocks entries.
// Each step adds |resident| / d^alpha (|resident| at d = 0), where resident is
// the set of the block's valid pages not yet rewritten in the walk. The walk
// stops as soon as every resident page has been rewritten.
//
// A high score means the resident pages stay live for a long time, so moving
// them now pays off; the engine reclaims the highest scoring candidate.
func (f *FTL) BlockScore(blockID int, seq []flash.LPN, base uint64) float64 {
	if blockID < 0 || blockID >= len(f.blocks) {
		flash.PanicInvariant("FTL.BlockScore", nil, "block %d out of range", blockID)
	}
	b := f.blocks[blockID]
	resident := make(map[flash.LPN]struct{}, b.Valid())
	for i := 0; i < b.Size(); i++ {
		if lpn, ok := b.Page(i).Owner(); ok {
			resident[lpn] = struct{}{}
		}
	}

	horizon := base + uint64(f.geo.PagesPerBlock)*uint64(f.geo.PhysicalBlocks)
	if n := uint64(len(seq)); horizon > n {
		horizon = n
	}
	exp := float64(f.alpha)

	score := 0.0
	for i := base; i < horizon; i++ {
		if _, ok := resident[seq[i]]; ok {
			delete(resident, seq[i])
			if len(resident) == 0 {
				return score
			}
		}
		d := i - base
		if d > 0 {
			score += float64(len(resident)) / math.Pow(float64(d), exp)
		} else {
			score += float64(len(resident))
		}
	}
	return score
}
