package flash

// --- Page Management ---

// LPN is a logical page number, an index into the logical page table.
type LPN uint32

// LogicalPageStatus tells whether a logical page is currently mapped.
type LogicalPageStatus uint8

const (
	FreeLogical LogicalPageStatus = iota
	UsedLogical
)

// PhysicalPageStatus is the lifecycle state of a physical page slot:
// Free -> Valid -> Obsolete -> Free.
type PhysicalPageStatus uint8

const (
	FreePhysical PhysicalPageStatus = iota
	Obsolete
	Valid
)

func (s PhysicalPageStatus) String() string {
	switch s {
	case FreePhysical:
		return "free"
	case Obsolete:
		return "obsolete"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// PageRef addresses a physical page slot by block id and in-block index.
type PageRef struct {
	Block int
	Slot  int
}

// LogicalPage is one entry of the logical page table. Ref is meaningful only
// while Status is UsedLogical.
type LogicalPage struct {
	Status LogicalPageStatus
	Ref    PageRef
}

// Clear unmaps the logical page.
func (lp *LogicalPage) Clear() {
	lp.Status = FreeLogical
	lp.Ref = PageRef{}
}

// Mapped reports whether the page currently has a physical copy.
func (lp *LogicalPage) Mapped() bool { return lp.Status == UsedLogical }

// PhysicalPage is a fixed slot inside a Block. Its block id and slot index are
// assigned once; owner is the logical page mapped here while status is Valid.
type PhysicalPage struct {
	block  int
	slot   int
	status PhysicalPageStatus
	owner  LPN
}

func (p PhysicalPage) Block() int                 { return p.block }
func (p PhysicalPage) Slot() int                  { return p.slot }
func (p PhysicalPage) Status() PhysicalPageStatus { return p.status }

// Owner returns the logical page mapped to this slot, if any.
func (p PhysicalPage) Owner() (LPN, bool) {
	if p.status != Valid {
		return 0, false
	}
	return p.owner, true
}

func (p *PhysicalPage) obsolete() {
	p.status = Obsolete
	p.owner = 0
}

func (p *PhysicalPage) reset() {
	p.status = FreePhysical
	p.owner = 0
}
