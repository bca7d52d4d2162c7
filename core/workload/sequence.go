package workload

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sushant-115/gojoftl/core/flash"
)

var (
	ErrNoLogicalPages = errors.New("workload: logical page count must be positive")
	ErrInvalidHotCold = errors.New("workload: invalid hot/cold parameters")
	ErrEmptyColdArea  = errors.New("workload: hot area leaves no cold pages")
)

// Uniform draws n logical page numbers uniformly from [0, logicalPages)
// as KISS() mod logicalPages.
func Uniform(src *KISS, logicalPages int, n uint64) ([]flash.LPN, error) {
	if logicalPages <= 0 {
		return nil, ErrNoLogicalPages
	}
	seq := make([]flash.LPN, n)
	for i := range seq {
		seq[i] = flash.LPN(src.Next() % uint32(logicalPages))
	}
	return seq, nil
}

// HotCold describes a skewed workload: the first HotPagePercentage percent of
// the logical pages form the hot area and each write lands there with
// probability HotProbability.
type HotCold struct {
	HotPagePercentage float64 `yaml:"hot_page_percentage"`
	HotProbability    float64 `yaml:"hot_probability"`
}

// Validate checks the percentage is in (0,100) and the probability in [0,1].
func (h HotCold) Validate() error {
	if h.HotPagePercentage <= 0 || h.HotPagePercentage >= 100 {
		return fmt.Errorf("%w: hot page percentage %v not in (0,100)", ErrInvalidHotCold, h.HotPagePercentage)
	}
	if h.HotProbability < 0 || h.HotProbability > 1 {
		return fmt.Errorf("%w: hot probability %v not in [0,1]", ErrInvalidHotCold, h.HotProbability)
	}
	return nil
}

// hotBound is the last page of the hot area. The cold area starts right after it.
func (h HotCold) hotBound(logicalPages int) int {
	return int(float64(logicalPages) * (h.HotPagePercentage / 100))
}

// Sequence draws n pages. Within each area pages are uniform. The area is
// picked by a ten-sided coin: a toss at or below HotProbability*10 is hot.
func (h HotCold) Sequence(src *KISS, logicalPages int, n uint64) ([]flash.LPN, error) {
	if logicalPages <= 0 {
		return nil, ErrNoLogicalPages
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	hotEnd := h.hotBound(logicalPages)
	coldStart, coldEnd := hotEnd+1, logicalPages-1
	if coldStart > coldEnd {
		return nil, fmt.Errorf("%w: hot area [0,%d] of %d pages", ErrEmptyColdArea, hotEnd, logicalPages)
	}

	rng := rand.New(src)
	threshold := h.HotProbability * 10
	seq := make([]flash.LPN, n)
	for i := range seq {
		toss := rng.IntN(10) + 1
		if float64(toss) <= threshold {
			seq[i] = flash.LPN(rng.IntN(hotEnd + 1))
		} else {
			seq[i] = flash.LPN(coldStart + rng.IntN(coldEnd-coldStart+1))
		}
	}
	return seq, nil
}

// IsHot reports whether lpn falls in the hot area.
func (h HotCold) IsHot(lpn flash.LPN, logicalPages int) bool {
	return int(lpn) <= h.hotBound(logicalPages)
}
