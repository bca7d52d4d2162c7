package simulator

import (
	"fmt"

	"github.com/sushant-115/gojoftl/config"
	"github.com/sushant-115/gojoftl/core/flash"
	"github.com/sushant-115/gojoftl/core/workload"
)

// BuildSequence generates the write sequence described by cfg. The same
// seed always yields the same sequence.
func BuildSequence(cfg config.Simulation) ([]flash.LPN, error) {
	src := workload.NewKISS(cfg.Seed)
	switch cfg.Workload.Distribution {
	case config.Uniform:
		return workload.Uniform(src, cfg.LogicalPages(), cfg.TotalPages)
	case config.HotCold:
		return cfg.Workload.HotCold.Sequence(src, cfg.LogicalPages(), cfg.TotalPages)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidDistribution, cfg.Workload.Distribution)
	}
}
