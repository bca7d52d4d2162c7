package ftl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sushant-115/gojoftl/core/flash"
)

// BlockInfo is a read-only view of a block's counters.
type BlockInfo struct {
	ID       int
	Valid    int
	NextFree int
	Full     bool
}

// Block returns the counters of block id.
func (f *FTL) Block(id int) (BlockInfo, error) {
	if err := f.checkBlock(id); err != nil {
		return BlockInfo{}, err
	}
	b := f.blocks[id]
	return BlockInfo{ID: id, Valid: b.Valid(), NextFree: b.NextFree(), Full: b.IsFull()}, nil
}

// Bucket returns the ids of full blocks with exactly valid valid pages.
func (f *FTL) Bucket(valid int) []int { return f.index.Members(valid) }

// BucketSizes returns the size of every validity bucket.
func (f *FTL) BucketSizes() []int { return f.index.Sizes() }

// FreeBlocks returns the free pool front to back.
func (f *FTL) FreeBlocks() []int { return f.pool.IDs() }

// ValidPages sums valid pages over the validity index and the free pool.
// Active generation blocks are in neither and are not counted.
func (f *FTL) ValidPages() int {
	n := 0
	for i, size := range f.index.Sizes() {
		n += i * size
	}
	for _, id := range f.pool.IDs() {
		n += f.blocks[id].Valid()
	}
	return n
}

// ValidWritesInBlock counts the slots of block id that still map a logical page.
func (f *FTL) ValidWritesInBlock(id int) (int, error) {
	if err := f.checkBlock(id); err != nil {
		return 0, err
	}
	b := f.blocks[id]
	n := 0
	for i := 0; i < b.Size(); i++ {
		if _, ok := b.Page(i).Owner(); ok {
			n++
		}
	}
	return n, nil
}

// BruteForceMinValid scans every block for the full block with the fewest
// valid pages. It is a reference for testing the validity index.
func (f *FTL) BruteForceMinValid() (int, bool) {
	chosen, minValid := noBlock, f.geo.PagesPerBlock+1
	for _, b := range f.blocks {
		if b.IsFull() && b.Valid() < minValid {
			chosen, minValid = b.ID(), b.Valid()
		}
	}
	return chosen, chosen != noBlock
}

// CheckInvariants cross-checks block counters against the page table, the
// validity index and the free pool. All violations are joined.
func (f *FTL) CheckInvariants() error {
	var errs []error
	active := make(map[int]int, len(f.genBlocks))
	for gen, id := range f.genBlocks {
		if id == noBlock {
			continue
		}
		if other, dup := active[id]; dup {
			errs = append(errs, fmt.Errorf("block %d active for generations %d and %d", id, other, gen))
		}
		active[id] = gen
	}

	total := 0
	for _, b := range f.blocks {
		counted := 0
		for i := 0; i < b.Size(); i++ {
			if lpn, ok := b.Page(i).Owner(); ok {
				counted++
				if ref, mapped := f.Lookup(lpn); !mapped || ref.Block != b.ID() || ref.Slot != i {
					errs = append(errs, fmt.Errorf("block %d slot %d owned by lpn %d which maps elsewhere", b.ID(), i, lpn))
				}
			}
		}
		if counted != b.Valid() {
			errs = append(errs, fmt.Errorf("block %d valid=%d but %d valid slots", b.ID(), b.Valid(), counted))
		}
		total += b.Valid()

		for v := 0; v < f.index.Buckets(); v++ {
			in := f.index.Contains(v, b.ID())
			if in && (!b.IsFull() || v != b.Valid()) {
				errs = append(errs, fmt.Errorf("block %d (valid=%d full=%t) found in bucket %d", b.ID(), b.Valid(), b.IsFull(), v))
			}
		}
		gen, isActive := active[b.ID()]
		if isActive && b.IsFull() {
			errs = append(errs, fmt.Errorf("active block %d of generation %d is full", b.ID(), gen))
		}
		switch {
		case b.IsFull():
			if !f.index.Contains(b.Valid(), b.ID()) {
				errs = append(errs, fmt.Errorf("full block %d missing from bucket %d", b.ID(), b.Valid()))
			}
			if f.pool.Contains(b.ID()) {
				errs = append(errs, fmt.Errorf("full block %d still in free pool", b.ID()))
			}
		case isActive:
			if f.pool.Contains(b.ID()) {
				errs = append(errs, fmt.Errorf("active block %d also in free pool", b.ID()))
			}
		default:
			if !f.pool.Contains(b.ID()) {
				errs = append(errs, fmt.Errorf("non-full block %d missing from free pool", b.ID()))
			}
		}
	}
	if mapped := f.MappedPages(); total != mapped {
		errs = append(errs, fmt.Errorf("valid pages %d != mapped logical pages %d", total, mapped))
	}
	return errors.Join(errs...)
}

// DumpLayout writes a page-by-block grid of the device. Obsolete slots show
// as X, free slots are blank and valid slots show their logical page. Meant
// for small geometries while debugging.
func (f *FTL) DumpLayout(w io.Writer) error {
	const cell = 5
	var sb strings.Builder
	rule := "     " + strings.Repeat("-", cell*len(f.blocks)) + "\n"

	sb.WriteString("     ")
	for i := range f.blocks {
		fmt.Fprintf(&sb, "%-*d", cell, i)
	}
	sb.WriteString("\n")
	sb.WriteString(rule)

	for slot := 0; slot < f.geo.PagesPerBlock; slot++ {
		fmt.Fprintf(&sb, "%-4d|", slot)
		for _, b := range f.blocks {
			p := b.Page(slot)
			if lpn, ok := p.Owner(); ok {
				fmt.Fprintf(&sb, "%3d |", lpn)
				continue
			}
			if p.Status() == flash.Obsolete {
				sb.WriteString("  X |")
			} else {
				sb.WriteString("    |")
			}
		}
		sb.WriteString("\n")
		sb.WriteString(rule)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
