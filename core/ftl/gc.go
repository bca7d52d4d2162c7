package ftl

import (
	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/core/flash"
)

// GCState is the phase of a reclamation cycle. Outside a cycle the engine
// is Idle; a cycle always runs to Reclaimed and back to Idle within the
// write that triggered it.
type GCState uint8

const (
	Idle GCState = iota
	SelectingVictim
	Relocating
	Reclaimed
)

func (s GCState) String() string {
	switch s {
	case Idle:
		return "idle"
	case SelectingVictim:
		return "selecting_victim"
	case Relocating:
		return "relocating"
	case Reclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

func (f *FTL) transition(from, to GCState) {
	if f.state != from {
		flash.PanicInvariant("FTL.gc", nil, "transition %s -> %s from state %s", from, to, f.state)
	}
	f.state = to
}

// UpdateMinValid refreshes and returns Y, the minimum valid count among full
// blocks, or NoMinimum if no block is full.
func (f *FTL) UpdateMinValid() int { return f.index.UpdateMinValid() }

// MinBlock returns a full block with the minimum valid count. Ties go to the
// lowest block id.
func (f *FTL) MinBlock() int {
	y := f.index.UpdateMinValid()
	if y == NoMinimum {
		flash.PanicInvariant("FTL.MinBlock", nil, "no full block to reclaim")
	}
	id, _ := f.index.First(y)
	return id
}

// minBlockWithLookahead picks, among the blocks with minimum valid count, the
// one whose resident pages are rewritten furthest in the future.
func (f *FTL) minBlockWithLookahead(la Lookahead) int {
	y := f.index.UpdateMinValid()
	if y == NoMinimum {
		flash.PanicInvariant("FTL.minBlockWithLookahead", nil, "no full block to reclaim")
	}
	// A fully obsolete block costs nothing to reclaim; any of them will do.
	if y == 0 || y == f.geo.PagesPerBlock {
		id, _ := f.index.First(y)
		return id
	}
	return f.bestBlockToEvict(y, la)
}

func (f *FTL) bestBlockToEvict(y int, la Lookahead) int {
	best, bestScore := noBlock, 0.0
	for _, id := range f.index.Members(y) {
		score := f.BlockScore(id, la.Sequence, la.Cursor)
		if best == noBlock || score > bestScore {
			best, bestScore = id, score
		}
	}
	f.logger.Debug("lookahead victim chosen",
		zap.Int("block", best),
		zap.Float64("score", bestScore),
		zap.Int("candidates", f.index.Len(y)),
		zap.Uint64("cursor", la.Cursor),
	)
	return best
}

func (f *FTL) selectVictim(p Policy) int {
	if la, ok := lookaheadOf(p); ok {
		return f.minBlockWithLookahead(la)
	}
	return f.MinBlock()
}

// collect runs one reclamation cycle: pick a victim, return it to the back
// of the free pool and rewrite its valid pages at the pool head.
func (f *FTL) collect(p Policy) {
	f.transition(Idle, SelectingVictim)
	victim := f.selectVictim(p)
	b := f.blocks[victim]
	if !b.IsFull() {
		flash.PanicInvariant("FTL.collect", nil, "victim %d is not full", victim)
	}

	f.transition(SelectingVictim, Relocating)
	f.countErase()
	victimValid := b.Valid()
	f.pool.PushBack(victim)
	f.index.Remove(victimValid, victim)
	survivors := b.CleanAndCompact()
	f.relocate(survivors)

	f.transition(Relocating, Reclaimed)
	if f.pool.Len() == 0 {
		flash.PanicInvariant("FTL.collect", nil, "free pool empty after reclaiming block %d", victim)
	}
	f.logger.Debug("block reclaimed",
		zap.String("policy", p.Name()),
		zap.Int("victim", victim),
		zap.Int("relocated", len(survivors)),
		zap.Uint64("erases", f.stats.Erases),
	)
	f.notifyErase(victim, len(survivors), false)
	f.transition(Reclaimed, Idle)
}

// relocate rewrites survivors, in order, starting at the free pool head.
func (f *FTL) relocate(survivors []flash.LPN) {
	for i, lpn := range survivors {
		id, ok := f.pool.Front()
		if !ok {
			flash.PanicInvariant("FTL.relocate", nil, "free pool exhausted with %d pages left to relocate", len(survivors)-i)
		}
		dest := f.blocks[id]
		lp := &f.table[lpn]
		lp.Clear()
		if dest.Write(nil, lpn, lp) == flash.BlockFull {
			f.index.Insert(dest.Valid(), dest.ID())
			f.pool.PopFront()
		}
		f.countPhysical()
		f.stats.RelocatedPages++
	}
}
