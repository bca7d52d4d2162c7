package ftl

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sushant-115/gojoftl/core/flash"
)

// --- Test Helpers ---

func newTestFTL(t *testing.T, physical, logical, pagesPerBlock int, opts ...Option) *FTL {
	t.Helper()
	geo, err := flash.NewGeometry(physical, logical, pagesPerBlock, 4096, 10000)
	require.NoError(t, err)
	f, err := New(geo, opts...)
	require.NoError(t, err)
	return f
}

func writeGreedy(t *testing.T, f *FTL, lpns ...flash.LPN) {
	t.Helper()
	for _, lpn := range lpns {
		require.NoError(t, f.Write(nil, lpn, Greedy{}))
	}
}

// eraseLog collects every erase event delivered by the FTL.
type eraseLog struct {
	events []EraseEvent
}

func (l *eraseLog) OnErase(ev EraseEvent) { l.events = append(l.events, ev) }

func (l *eraseLog) relocated() uint64 {
	var n uint64
	for _, ev := range l.events {
		n += uint64(ev.Relocated)
	}
	return n
}

func requireInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected an invariant panic")
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, flash.ErrInvariantViolation))
	}()
	fn()
}

// --- Scenarios ---

// TestFTL_GreedyFillsLogicalSpace writes every logical page once: two blocks
// fill exactly and the third stays free.
func TestFTL_GreedyFillsLogicalSpace(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7)

	stats := f.Stats()
	require.Equal(t, uint64(0), stats.Erases)
	require.Equal(t, uint64(8), stats.LogicalWrites)
	require.Equal(t, uint64(8), stats.PhysicalWrites)
	require.Equal(t, []int{0, 1}, f.Bucket(4))
	require.Equal(t, []int{2}, f.FreeBlocks())
	require.Equal(t, 4, f.UpdateMinValid())
	require.NoError(t, f.CheckInvariants())
}

// TestFTL_ObsoletionTriggersGreedyGC rewrites the pages of block 0 until the
// pool runs dry; the next write must reclaim the fully obsolete block 0.
func TestFTL_ObsoletionTriggersGreedyGC(t *testing.T) {
	log := &eraseLog{}
	f := newTestFTL(t, 3, 2, 4, WithObserver(log))
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7)

	// 1. Rewriting page 0 moves block 0 from bucket 4 to bucket 3.
	writeGreedy(t, f, 0)
	ref, ok := f.Lookup(0)
	require.True(t, ok)
	require.Equal(t, flash.PageRef{Block: 2, Slot: 0}, ref)
	info, err := f.Block(0)
	require.NoError(t, err)
	require.Equal(t, 3, info.Valid)
	require.Equal(t, []int{0}, f.Bucket(3))
	require.Equal(t, []int{1}, f.Bucket(4))

	// 2. Rewriting 1..3 fills block 2 and empties the pool.
	writeGreedy(t, f, 1, 2, 3)
	require.Empty(t, f.FreeBlocks())
	require.Equal(t, []int{0}, f.Bucket(0))
	require.Equal(t, []int{1, 2}, f.Bucket(4))
	require.Empty(t, log.events)

	// 3. The next write forces exactly one reclamation of block 0.
	writeGreedy(t, f, 4)
	require.Len(t, log.events, 1)
	require.Equal(t, 0, log.events[0].Victim)
	require.Equal(t, 0, log.events[0].Relocated)
	require.Equal(t, uint64(1), f.Stats().Erases)

	info, err = f.Block(0)
	require.NoError(t, err)
	require.Equal(t, 1, info.Valid, "victim only holds the write that followed the reclamation")
	require.Equal(t, []int{0}, f.FreeBlocks())
	ref, _ = f.Lookup(4)
	require.Equal(t, flash.PageRef{Block: 0, Slot: 0}, ref)
	require.Equal(t, f.Stats().LogicalWrites, f.Stats().PhysicalWrites)
	require.Equal(t, Idle, f.GCState())
	require.NoError(t, f.CheckInvariants())
}

// TestFTL_GenerationalIsolation alternates two generations and checks that
// their active blocks never coincide.
func TestFTL_GenerationalIsolation(t *testing.T) {
	f := newTestFTL(t, 4, 2, 2, WithGenerations(2))
	rng := rand.New(rand.NewPCG(7, 11))
	seq := make([]flash.LPN, 400)
	for i := range seq {
		seq[i] = flash.LPN(rng.IntN(4))
	}

	for i, lpn := range seq {
		p := Generational{Generation: int(lpn) % 2, Sequence: seq, Cursor: uint64(i)}
		require.NoError(t, f.Write(nil, lpn, p))

		a0, ok0 := f.ActiveBlock(0)
		a1, ok1 := f.ActiveBlock(1)
		if ok0 && ok1 {
			require.NotEqual(t, a0, a1, "generations share block at step %d", i)
		}
		require.NoError(t, f.CheckInvariants(), "step %d", i)
	}
	require.Greater(t, f.Stats().Erases, uint64(0))
}

// --- Properties ---

func TestFTL_RandomWorkloadInvariants(t *testing.T) {
	policies := map[string]func(seq []flash.LPN, i int, lpn flash.LPN) Policy{
		"greedy": func([]flash.LPN, int, flash.LPN) Policy { return Greedy{} },
		"lookahead": func(seq []flash.LPN, i int, _ flash.LPN) Policy {
			return Lookahead{Sequence: seq, Cursor: uint64(i)}
		},
		"generational": func(seq []flash.LPN, i int, lpn flash.LPN) Policy {
			return Generational{Generation: int(lpn) % 2, Sequence: seq, Cursor: uint64(i)}
		},
	}

	for name, policyAt := range policies {
		t.Run(name, func(t *testing.T) {
			log := &eraseLog{}
			f := newTestFTL(t, 8, 6, 4, WithObserver(log), WithGenerations(2))
			rng := rand.New(rand.NewPCG(42, 1))
			seq := make([]flash.LPN, 3000)
			for i := range seq {
				seq[i] = flash.LPN(rng.IntN(f.Geometry().LogicalPages()))
			}

			var lastErases uint64
			for i, lpn := range seq {
				require.NoError(t, f.Write(nil, lpn, policyAt(seq, i, lpn)))
				require.NoError(t, f.CheckInvariants(), "step %d", i)

				stats := f.Stats()
				require.GreaterOrEqual(t, stats.Erases, lastErases)
				lastErases = stats.Erases

				if id, ok := f.BruteForceMinValid(); ok {
					info, err := f.Block(id)
					require.NoError(t, err)
					require.Equal(t, info.Valid, f.UpdateMinValid(), "step %d", i)
				}
			}

			stats := f.Stats()
			require.Equal(t, uint64(len(seq)), stats.LogicalWrites)
			require.Equal(t, stats.LogicalWrites+stats.RelocatedPages, stats.PhysicalWrites)
			require.Equal(t, log.relocated(), stats.RelocatedPages)
			require.Equal(t, uint64(len(log.events)), stats.Erases)
			for i, ev := range log.events {
				require.Equal(t, uint64(i+1), ev.Stats.Erases)
			}
			require.Greater(t, stats.Erases, uint64(0))
			require.GreaterOrEqual(t, stats.WriteAmplification(), 1.0)
		})
	}
}

// --- Scorer ---

func TestFTL_BlockScoreEarlyExit(t *testing.T) {
	f := newTestFTL(t, 3, 2, 2) // over-provisioning 0.5
	require.Equal(t, 6, f.Alpha())
	writeGreedy(t, f, 0, 1)

	// Both resident pages are rewritten by step 3, so only steps 0..2 count:
	// 2 (d=0) + 1/1^6 + 1/2^6.
	seq := []flash.LPN{3, 0, 2, 1, 3, 3}
	require.InDelta(t, 3.0+1.0/64, f.BlockScore(0, seq, 0), 1e-12)

	// A sequence that never clears the set keeps its partial score.
	require.InDelta(t, 1.0, f.BlockScore(0, []flash.LPN{0}, 0), 1e-12)

	// Scoring from the end of the sequence walks nothing.
	require.Zero(t, f.BlockScore(0, seq, uint64(len(seq))))
}

func TestFTL_LookaheadPrefersLongLivedPages(t *testing.T) {
	f := newTestFTL(t, 4, 2, 2)
	writeGreedy(t, f, 0, 1, 2, 3, 0, 2)
	// Blocks 0 and 1 both hold one valid page: 1 and 3 respectively.
	require.Equal(t, []int{0, 1}, f.Bucket(1))

	seq := []flash.LPN{1, 1, 1, 1, 1, 1, 1, 1}
	require.Equal(t, 0, f.MinBlock())
	require.Equal(t, 1, f.minBlockWithLookahead(Lookahead{Sequence: seq}))
}

// --- Contract violations ---

func TestFTL_WriteRejectsBadRequests(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)

	err := f.Write(nil, 0, Lookahead{})
	require.ErrorIs(t, err, ErrMissingParameter)

	err = f.Write(nil, 0, Generational{Generation: 0})
	require.ErrorIs(t, err, ErrMissingParameter)

	err = f.Write(nil, 0, nil)
	require.ErrorIs(t, err, ErrMissingParameter)

	err = f.Write(nil, 0, Lookahead{Sequence: []flash.LPN{0}, Cursor: 2})
	require.ErrorIs(t, err, ErrCursorOutOfRange)

	err = f.Write(nil, 8, Greedy{})
	require.ErrorIs(t, err, ErrLogicalPageOutOfRange)

	err = f.Write(nil, 0, Generational{Generation: 5, Sequence: []flash.LPN{}})
	require.ErrorIs(t, err, ErrUnknownGeneration)

	require.Equal(t, uint64(0), f.Stats().LogicalWrites)
	require.NoError(t, f.CheckInvariants())
}

func TestFTL_ReadUnmappedIsNoop(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)
	buf := make([]byte, 16)
	require.NoError(t, f.Read(buf, 3))
	writeGreedy(t, f, 3)
	require.NoError(t, f.Read(buf, 3))
	require.ErrorIs(t, f.Read(buf, 100), ErrLogicalPageOutOfRange)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	geo, err := flash.NewGeometry(4, 2, 2, 4096, 10)
	require.NoError(t, err)
	_, err = New(geo, WithGenerations(3))
	require.ErrorIs(t, err, ErrInvalidGenerations)

	_, err = New(flash.Geometry{PhysicalBlocks: 2, LogicalBlocks: 2, PagesPerBlock: 2, PageSize: 1})
	require.ErrorIs(t, err, flash.ErrInvalidGeometry)
}

// --- Block-targeted writes ---

func TestFTL_WriteToBlockCleansInPlace(t *testing.T) {
	log := &eraseLog{}
	f := newTestFTL(t, 3, 2, 4, WithObserver(log))
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7, 0, 1)
	require.Equal(t, []int{0}, f.Bucket(2))

	require.NoError(t, f.WriteToBlock(nil, 4, 0, Lookahead{Sequence: []flash.LPN{}}))

	require.Len(t, log.events, 1)
	require.True(t, log.events[0].InPlace)
	require.Equal(t, 2, log.events[0].Relocated)
	for lpn, slot := range map[flash.LPN]int{2: 0, 3: 1, 4: 2} {
		ref, ok := f.Lookup(lpn)
		require.True(t, ok)
		require.Equal(t, flash.PageRef{Block: 0, Slot: slot}, ref)
	}
	require.Equal(t, []int{1}, f.Bucket(3))
	require.Equal(t, []int{2, 0}, f.FreeBlocks())

	stats := f.Stats()
	require.Equal(t, uint64(11), stats.LogicalWrites)
	require.Equal(t, uint64(13), stats.PhysicalWrites)
	require.Equal(t, uint64(2), stats.RelocatedPages)
	require.NoError(t, f.CheckInvariants())

	// Filling the target takes it out of the pool and into the index.
	require.NoError(t, f.WriteToBlock(nil, 5, 0, Lookahead{Sequence: []flash.LPN{}}))
	require.Equal(t, []int{2}, f.FreeBlocks())
	require.Equal(t, []int{0}, f.Bucket(4))
	require.NoError(t, f.CheckInvariants())
}

func TestFTL_WriteToBlockFallsBackOnFullyValidBlock(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7)

	require.NoError(t, f.WriteToBlock(nil, 0, 1, Lookahead{Sequence: []flash.LPN{}}))
	ref, _ := f.Lookup(0)
	require.Equal(t, flash.PageRef{Block: 2, Slot: 0}, ref)
	require.Equal(t, uint64(1), f.Stats().Anomalies)
	require.NoError(t, f.CheckInvariants())

	// The fallback path still demands its inputs.
	err := f.WriteToBlock(nil, 1, 1, Lookahead{})
	require.ErrorIs(t, err, ErrMissingParameter)

	err = f.WriteToBlock(nil, 1, 7, Lookahead{Sequence: []flash.LPN{}})
	require.ErrorIs(t, err, ErrBlockOutOfRange)
}

// TestFTL_WriteToBlockRetiresFilledActiveBlock fills a generation's active
// block through WriteToBlock: the generation must draw a fresh block on its
// next write instead of reusing the full one.
func TestFTL_WriteToBlockRetiresFilledActiveBlock(t *testing.T) {
	f := newTestFTL(t, 4, 2, 2, WithGenerations(2))
	seq := []flash.LPN{0, 1, 0}

	require.NoError(t, f.Write(nil, 0, Generational{Generation: 0, Sequence: seq}))
	active, ok := f.ActiveBlock(0)
	require.True(t, ok)

	require.NoError(t, f.WriteToBlock(nil, 1, active, Lookahead{Sequence: seq}))
	_, ok = f.ActiveBlock(0)
	require.False(t, ok)
	require.Equal(t, []int{active}, f.Bucket(2))
	require.NoError(t, f.CheckInvariants())

	require.NotPanics(t, func() {
		require.NoError(t, f.Write(nil, 0, Generational{Generation: 0, Sequence: seq, Cursor: 2}))
	})
	next, ok := f.ActiveBlock(0)
	require.True(t, ok)
	require.NotEqual(t, active, next)
	require.NoError(t, f.CheckInvariants())
}

func TestFTL_CheckInvariantsReportsFullActiveBlock(t *testing.T) {
	f := newTestFTL(t, 4, 2, 2, WithGenerations(2))
	writeGreedy(t, f, 0, 1)
	full, ok := f.BruteForceMinValid()
	require.True(t, ok)

	f.genBlocks[1] = full
	err := f.CheckInvariants()
	require.Error(t, err)
	require.Contains(t, err.Error(), "generation 1 is full")
}

func TestFTL_SweepFullBlocks(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7, 0, 1, 2, 3)
	require.Equal(t, []int{0}, f.Bucket(0))

	require.Equal(t, 1, f.SweepFullBlocks())
	require.Equal(t, []int{0}, f.FreeBlocks())
	require.Empty(t, f.Bucket(0))
	require.Equal(t, uint64(1), f.Stats().Erases)
	require.NoError(t, f.CheckInvariants())

	require.Equal(t, 0, f.SweepFullBlocks())
}

// --- Queries ---

func TestFTL_WindowSize(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)
	require.Equal(t, uint64(0), f.WindowSize())

	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7)
	require.Equal(t, uint64(8), f.WindowSize()) // Y=4, two blocks

	writeGreedy(t, f, 0)
	// Y=3: 3*1 + bucket 4 (1 block * 4) + one slot consumed in block 2.
	require.Equal(t, uint64(8), f.WindowSize())

	writeGreedy(t, f, 1)
	// Y=2: 2*1 + 4*1 + 2.
	require.Equal(t, uint64(8), f.WindowSize())
	require.Equal(t, 2, f.UpdateMinValid())
}

func TestFTL_ValidPageCounts(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4)
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 0)
	require.Equal(t, 6, f.ValidPages())
	require.Equal(t, 6, f.MappedPages())

	n, err := f.ValidWritesInBlock(0)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	_, err = f.ValidWritesInBlock(-1)
	require.ErrorIs(t, err, ErrBlockOutOfRange)
}

func TestFTL_DumpLayout(t *testing.T) {
	f := newTestFTL(t, 3, 2, 2)
	writeGreedy(t, f, 0, 1, 0)

	var buf bytes.Buffer
	require.NoError(t, f.DumpLayout(&buf))
	out := buf.String()
	require.Contains(t, out, "  X |")
	require.Contains(t, out, "  1 |")
	require.Contains(t, out, "  0 |")
}

func TestFTL_SteadyStateCounters(t *testing.T) {
	f := newTestFTL(t, 3, 2, 4, WithSteadyState(8))
	writeGreedy(t, f, 0, 1, 2, 3, 4, 5, 6, 7)
	require.Zero(t, f.Stats().LogicalWritesSteady)

	writeGreedy(t, f, 0, 1)
	stats := f.Stats()
	require.Equal(t, uint64(2), stats.LogicalWritesSteady)
	require.Equal(t, uint64(2), stats.PhysicalWritesSteady)
	require.InDelta(t, 1.0, stats.SteadyWriteAmplification(), 1e-12)
}
