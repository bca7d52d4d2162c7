package ftl

import (
	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/core/flash"
)

// WriteToBlock writes lpn into a caller-chosen block. A full target is first
// cleaned in place: its valid pages are rewritten to the start of the same
// block, in their original order. A full target with no obsolete page cannot
// take the write; this is logged as an anomaly and the request is routed
// through the greedy-lookahead path with the fallback sequence instead.
func (f *FTL) WriteToBlock(data []byte, lpn flash.LPN, blockID int, fallback Lookahead) error {
	if err := f.checkLPN(lpn); err != nil {
		return err
	}
	if err := f.checkBlock(blockID); err != nil {
		return err
	}

	target := f.blocks[blockID]
	if target.IsFull() && target.Valid() == f.geo.PagesPerBlock {
		f.stats.Anomalies++
		f.logger.Warn("Target block is full with no obsolete pages, falling back to greedy lookahead",
			zap.Uint32("lpn", uint32(lpn)),
			zap.Int("block", blockID),
			zap.Uint64("anomalies", f.stats.Anomalies),
		)
		return f.Write(data, lpn, fallback)
	}

	if target.IsFull() {
		f.reclaimInPlace(target)
	}

	f.obsoleteMapping(lpn)
	if target.Write(data, lpn, &f.table[lpn]) == flash.BlockFull {
		f.index.Insert(target.Valid(), target.ID())
		f.pool.Remove(target.ID())
		f.retireActive(target.ID())
	}
	f.countPhysical()
	f.countLogical()
	return nil
}

// retireActive detaches block id from any generation still writing into it.
func (f *FTL) retireActive(id int) {
	for gen, active := range f.genBlocks {
		if active == id {
			f.genBlocks[gen] = noBlock
		}
	}
}

// reclaimInPlace erases a full block and rewrites its valid pages back into it.
func (f *FTL) reclaimInPlace(b *flash.Block) {
	f.transition(Idle, SelectingVictim)
	f.transition(SelectingVictim, Relocating)
	f.countErase()
	f.pool.PushBack(b.ID())
	f.index.Remove(b.Valid(), b.ID())

	survivors := b.CleanAndCompact()
	for _, lpn := range survivors {
		lp := &f.table[lpn]
		lp.Clear()
		b.Write(nil, lpn, lp)
		f.countPhysical()
		f.stats.RelocatedPages++
	}
	f.transition(Relocating, Reclaimed)
	f.logger.Debug("block cleaned in place",
		zap.Int("block", b.ID()),
		zap.Int("relocated", len(survivors)),
		zap.Uint64("erases", f.stats.Erases),
	)
	f.notifyErase(b.ID(), len(survivors), true)
	f.transition(Reclaimed, Idle)
}

// SweepFullBlocks reclaims every full block without valid pages and puts it
// at the front of the free pool. It returns the number of blocks erased.
func (f *FTL) SweepFullBlocks() int {
	swept := 0
	for _, b := range f.blocks {
		if !b.IsFull() || b.Valid() != 0 {
			continue
		}
		f.countErase()
		f.index.Remove(0, b.ID())
		f.pool.PushFront(b.ID())
		b.CleanAndCompact()
		f.notifyErase(b.ID(), 0, true)
		swept++
	}
	if swept > 0 {
		f.logger.Debug("swept obsolete blocks", zap.Int("count", swept))
	}
	return swept
}
