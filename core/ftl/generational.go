package ftl

import (
	"fmt"

	"github.com/sushant-115/gojoftl/core/flash"
)

func newGenerationMap(n int) []int {
	m := make([]int, n)
	for i := range m {
		m[i] = noBlock
	}
	return m
}

// Generations is the number of generations served by the generational policy.
func (f *FTL) Generations() int { return len(f.genBlocks) }

// ActiveBlock returns the block currently receiving generation gen's writes.
func (f *FTL) ActiveBlock(gen int) (int, bool) {
	if gen < 0 || gen >= len(f.genBlocks) || f.genBlocks[gen] == noBlock {
		return 0, false
	}
	return f.genBlocks[gen], true
}

// writeGenerational places lpn into the active block of p.Generation. A
// generation draws a new block from the pool only when its previous one
// filled, so two generations never share an active block.
func (f *FTL) writeGenerational(data []byte, lpn flash.LPN, p Generational) error {
	if p.Generation < 0 || p.Generation >= len(f.genBlocks) {
		return fmt.Errorf("%w: %d (generations %d)", ErrUnknownGeneration, p.Generation, len(f.genBlocks))
	}

	id := f.genBlocks[p.Generation]
	if id == noBlock {
		if f.pool.Len() == 0 {
			f.collect(p)
		}
		id, _ = f.pool.PopFront()
		f.genBlocks[p.Generation] = id
	}
	active := f.blocks[id]
	if active.IsFull() {
		flash.PanicInvariant("FTL.writeGenerational", nil, "active block %d of generation %d is full", id, p.Generation)
	}

	f.obsoleteMapping(lpn)
	if active.Write(data, lpn, &f.table[lpn]) == flash.BlockFull {
		f.index.Insert(active.Valid(), active.ID())
		f.genBlocks[p.Generation] = noBlock
	}
	f.countPhysical()
	f.countLogical()
	return nil
}
