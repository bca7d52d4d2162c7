package ftl

import (
	"fmt"

	"github.com/sushant-115/gojoftl/core/flash"
)

// Policy selects how a write is placed and how a victim is chosen when the
// free pool runs dry. Each variant carries exactly the inputs it needs.
type Policy interface {
	Name() string
	validate() error
}

// Greedy reclaims a block with the minimum valid page count.
type Greedy struct{}

// Lookahead scores the minimum-valid candidates against the future write
// sequence, starting at Cursor, and reclaims the highest scoring block.
type Lookahead struct {
	Sequence []flash.LPN
	Cursor   uint64
}

// Generational isolates writes tagged with Generation into that generation's
// own active block. Victims are chosen as in Lookahead.
type Generational struct {
	Generation int
	Sequence   []flash.LPN
	Cursor     uint64
}

func (Greedy) Name() string       { return "greedy" }
func (Lookahead) Name() string    { return "greedy_lookahead" }
func (Generational) Name() string { return "generational" }

func (Greedy) validate() error { return nil }

func (p Lookahead) validate() error {
	return validateSequence(p.Name(), p.Sequence, p.Cursor)
}

func (p Generational) validate() error {
	return validateSequence(p.Name(), p.Sequence, p.Cursor)
}

func validateSequence(name string, seq []flash.LPN, cursor uint64) error {
	if seq == nil {
		return fmt.Errorf("%s: %w: future write sequence", name, ErrMissingParameter)
	}
	if cursor > uint64(len(seq)) {
		return fmt.Errorf("%s: %w: cursor %d, sequence length %d", name, ErrCursorOutOfRange, cursor, len(seq))
	}
	return nil
}

// lookaheadOf returns the sequence view used for victim scoring, if any.
func lookaheadOf(p Policy) (Lookahead, bool) {
	switch p := p.(type) {
	case Lookahead:
		return p, true
	case *Lookahead:
		return *p, true
	case Generational:
		return Lookahead{Sequence: p.Sequence, Cursor: p.Cursor}, true
	case *Generational:
		return Lookahead{Sequence: p.Sequence, Cursor: p.Cursor}, true
	}
	return Lookahead{}, false
}
