package ftl

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/core/flash"
)

const noBlock = -1

// Stats are the cumulative counters exposed to the driver. The *Steady
// variants only count once the steady-state threshold has been crossed.
type Stats struct {
	Erases               uint64
	ErasesSteady         uint64
	LogicalWrites        uint64
	LogicalWritesSteady  uint64
	PhysicalWrites       uint64
	PhysicalWritesSteady uint64
	// RelocatedPages is the number of valid pages rewritten by reclamation.
	RelocatedPages uint64
	// Anomalies counts recoverable unexpected states, such as a block-targeted
	// write hitting a fully valid block.
	Anomalies uint64
}

// WriteAmplification is physical writes per logical write.
func (s Stats) WriteAmplification() float64 {
	if s.LogicalWrites == 0 {
		return 0
	}
	return float64(s.PhysicalWrites) / float64(s.LogicalWrites)
}

// SteadyWriteAmplification is WriteAmplification over the steady-state window.
func (s Stats) SteadyWriteAmplification() float64 {
	if s.LogicalWritesSteady == 0 {
		return 0
	}
	return float64(s.PhysicalWritesSteady) / float64(s.LogicalWritesSteady)
}

// FTL is one simulated flash translation layer and owns all of its state.
// It is not safe for concurrent use; independent simulations each need
// their own FTL.
type FTL struct {
	geo    flash.Geometry
	logger *zap.Logger

	table  []flash.LogicalPage
	blocks []*flash.Block
	pool   *FreePool
	index  *ValidityIndex

	// genBlocks maps a generation to its active block, or noBlock.
	genBlocks []int

	alpha int
	state GCState
	stats Stats

	steadyEnabled bool
	steadyAfter   uint64

	observer EraseObserver
}

// Option configures an FTL at construction.
type Option func(*FTL) error

// WithLogger sets the logger. The FTL logs under the "ftl" name.
func WithLogger(logger *zap.Logger) Option {
	return func(f *FTL) error {
		if logger != nil {
			f.logger = logger
		}
		return nil
	}
}

// WithObserver installs a hook invoked after every erase.
func WithObserver(o EraseObserver) Option {
	return func(f *FTL) error {
		f.observer = o
		return nil
	}
}

// WithGenerations sets how many generations the generational policy serves.
func WithGenerations(n int) Option {
	return func(f *FTL) error {
		if n < 1 || n > f.geo.PhysicalBlocks-f.geo.LogicalBlocks {
			return fmt.Errorf("%w: got %d", ErrInvalidGenerations, n)
		}
		f.genBlocks = newGenerationMap(n)
		return nil
	}
}

// WithSteadyState starts the steady-state counters once logicalWrites
// reaches the threshold.
func WithSteadyState(threshold uint64) Option {
	return func(f *FTL) error {
		f.EnableSteadyState(threshold)
		return nil
	}
}

// New builds an FTL with every block in the free pool, in id order.
func New(geo flash.Geometry, opts ...Option) (*FTL, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	alpha, ok := AlphaFor(geo.OverProvisioning())
	if !ok {
		return nil, fmt.Errorf("%w: no score exponent for over-provisioning %f", flash.ErrInvalidGeometry, geo.OverProvisioning())
	}

	f := &FTL{
		geo:       geo,
		logger:    zap.NewNop(),
		table:     make([]flash.LogicalPage, geo.LogicalPages()),
		blocks:    make([]*flash.Block, geo.PhysicalBlocks),
		pool:      NewFreePool(),
		index:     NewValidityIndex(geo.PagesPerBlock),
		genBlocks: newGenerationMap(DefaultGenerations(geo)),
		alpha:     alpha,
		state:     Idle,
	}
	for i := range f.blocks {
		f.blocks[i] = flash.NewBlock(i, geo.PagesPerBlock)
		f.pool.PushBack(i)
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.Named("ftl")
	f.logger.Debug("FTL initialized",
		zap.Int("physicalBlocks", geo.PhysicalBlocks),
		zap.Int("logicalBlocks", geo.LogicalBlocks),
		zap.Int("pagesPerBlock", geo.PagesPerBlock),
		zap.Float64("overProvisioning", geo.OverProvisioning()),
		zap.Int("alpha", alpha),
		zap.Int("generations", len(f.genBlocks)),
	)
	return f, nil
}

func (f *FTL) Geometry() flash.Geometry { return f.geo }
func (f *FTL) Stats() Stats             { return f.stats }
func (f *FTL) Alpha() int               { return f.alpha }
func (f *FTL) GCState() GCState         { return f.state }

// Write stores lpn under policy p. A reclamation runs first when the free
// pool is empty; the write itself always lands on a fresh physical slot.
func (f *FTL) Write(data []byte, lpn flash.LPN, p Policy) error {
	if err := f.checkLPN(lpn); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: write policy", ErrMissingParameter)
	}
	if err := p.validate(); err != nil {
		return err
	}

	switch gp := p.(type) {
	case Generational:
		return f.writeGenerational(data, lpn, gp)
	case *Generational:
		return f.writeGenerational(data, lpn, *gp)
	}

	if f.pool.Len() == 0 {
		f.collect(p)
	}
	id, _ := f.pool.Front()
	current := f.blocks[id]
	if current.IsFull() {
		flash.PanicInvariant("FTL.Write", nil, "free pool head %d is full", id)
	}

	f.obsoleteMapping(lpn)
	if current.Write(data, lpn, &f.table[lpn]) == flash.BlockFull {
		f.index.Insert(current.Valid(), current.ID())
		f.pool.PopFront()
	}
	f.countPhysical()
	f.countLogical()
	return nil
}

// Read fills buf with the current copy of lpn. Unmapped pages are a no-op.
func (f *FTL) Read(buf []byte, lpn flash.LPN) error {
	if err := f.checkLPN(lpn); err != nil {
		return err
	}
	lp := &f.table[lpn]
	if !lp.Mapped() {
		return nil
	}
	f.blocks[lp.Ref.Block].Read(buf, lp.Ref.Slot)
	return nil
}

// Lookup returns the physical slot holding lpn.
func (f *FTL) Lookup(lpn flash.LPN) (flash.PageRef, bool) {
	if int(lpn) >= len(f.table) || !f.table[lpn].Mapped() {
		return flash.PageRef{}, false
	}
	return f.table[lpn].Ref, true
}

// MappedPages is the number of logical pages with status Used.
func (f *FTL) MappedPages() int {
	n := 0
	for i := range f.table {
		if f.table[i].Mapped() {
			n++
		}
	}
	return n
}

// obsoleteMapping retires the current copy of lpn, if any, and keeps the
// block's bucket in step with its new valid count.
func (f *FTL) obsoleteMapping(lpn flash.LPN) {
	lp := &f.table[lpn]
	if !lp.Mapped() {
		return
	}
	b := f.blocks[lp.Ref.Block]
	b.Obsolete(lp.Ref.Slot)
	if b.IsFull() {
		f.index.Move(b.Valid()+1, b.Valid(), b.ID())
	}
	lp.Clear()
}

func (f *FTL) checkLPN(lpn flash.LPN) error {
	if int(lpn) >= len(f.table) {
		return fmt.Errorf("%w: %d (logical pages %d)", ErrLogicalPageOutOfRange, lpn, len(f.table))
	}
	return nil
}

func (f *FTL) checkBlock(id int) error {
	if id < 0 || id >= len(f.blocks) {
		return fmt.Errorf("%w: %d (physical blocks %d)", ErrBlockOutOfRange, id, len(f.blocks))
	}
	return nil
}

// EnableSteadyState arms the *Steady counters. They accumulate from the
// write that finds logicalWrites at or above threshold.
func (f *FTL) EnableSteadyState(threshold uint64) {
	f.steadyEnabled = true
	f.steadyAfter = threshold
}

func (f *FTL) inSteadyState() bool {
	return f.steadyEnabled && f.stats.LogicalWrites >= f.steadyAfter
}

func (f *FTL) countLogical() {
	if f.inSteadyState() {
		f.stats.LogicalWritesSteady++
	}
	f.stats.LogicalWrites++
}

func (f *FTL) countPhysical() {
	f.stats.PhysicalWrites++
	if f.inSteadyState() {
		f.stats.PhysicalWritesSteady++
	}
}

func (f *FTL) countErase() {
	f.stats.Erases++
	if f.inSteadyState() {
		f.stats.ErasesSteady++
	}
}
