package flash

import "fmt"

// Geometry holds the immutable parameters of one simulated device. It is
// built once at startup and passed by value to every component.
type Geometry struct {
	// PhysicalBlocks is the number of erase units on the device (T).
	PhysicalBlocks int `yaml:"physical_blocks"`
	// LogicalBlocks is the exposed capacity in blocks (U). Must be below T.
	LogicalBlocks int `yaml:"logical_blocks"`
	// PagesPerBlock is the number of page slots in each block (Z).
	PagesPerBlock int `yaml:"pages_per_block"`
	// PageSize is the page payload size in bytes.
	PageSize int `yaml:"page_size"`
	// TotalPages is the length of the write sequence driven through the device (N).
	TotalPages uint64 `yaml:"number_of_pages"`
}

// NewGeometry builds and validates a Geometry.
func NewGeometry(physical, logical, pagesPerBlock, pageSize int, totalPages uint64) (Geometry, error) {
	g := Geometry{
		PhysicalBlocks: physical,
		LogicalBlocks:  logical,
		PagesPerBlock:  pagesPerBlock,
		PageSize:       pageSize,
		TotalPages:     totalPages,
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Validate checks the geometry describes an over-provisioned device.
func (g Geometry) Validate() error {
	if g.PhysicalBlocks <= 0 || g.LogicalBlocks <= 0 || g.PagesPerBlock <= 0 || g.PageSize <= 0 {
		return fmt.Errorf("%w: %w (physical=%d logical=%d pages_per_block=%d page_size=%d)",
			ErrInvalidGeometry, ErrNonPositiveGeometry,
			g.PhysicalBlocks, g.LogicalBlocks, g.PagesPerBlock, g.PageSize)
	}
	if g.PhysicalBlocks <= g.LogicalBlocks {
		return fmt.Errorf("%w: %w (physical=%d logical=%d)",
			ErrInvalidGeometry, ErrNoOverProvisioning, g.PhysicalBlocks, g.LogicalBlocks)
	}
	return nil
}

// LogicalPages is the size of the logical page table.
func (g Geometry) LogicalPages() int { return g.LogicalBlocks * g.PagesPerBlock }

// PhysicalPages is the total number of physical page slots.
func (g Geometry) PhysicalPages() int { return g.PhysicalBlocks * g.PagesPerBlock }

// OverProvisioning returns (T-U)/U.
func (g Geometry) OverProvisioning() float64 {
	return float64(g.PhysicalBlocks-g.LogicalBlocks) / float64(g.LogicalBlocks)
}

// Alpha returns U/T, the fraction of physical space exposed to the host.
func (g Geometry) Alpha() float64 {
	return float64(g.LogicalBlocks) / float64(g.PhysicalBlocks)
}
