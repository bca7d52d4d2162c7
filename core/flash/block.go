package flash

// BlockFull is the nextFree sentinel of a block with no unwritten slots.
const BlockFull = -1

// Block is an erase unit owning a fixed array of physical page slots.
// valid always equals the number of slots whose status is Valid.
type Block struct {
	id       int
	pages    []PhysicalPage
	valid    int
	nextFree int
}

// NewBlock creates an empty block with pagesPerBlock free slots.
func NewBlock(id, pagesPerBlock int) *Block {
	b := &Block{
		id:    id,
		pages: make([]PhysicalPage, pagesPerBlock),
	}
	for i := range b.pages {
		b.pages[i].block = id
		b.pages[i].slot = i
	}
	return b
}

func (b *Block) ID() int       { return b.id }
func (b *Block) Valid() int    { return b.valid }
func (b *Block) NextFree() int { return b.nextFree }
func (b *Block) Size() int     { return len(b.pages) }
func (b *Block) IsFull() bool  { return b.nextFree == BlockFull }

// Written is the number of slots consumed since the last clean.
func (b *Block) Written() int {
	if b.IsFull() {
		return len(b.pages)
	}
	return b.nextFree
}

// Page returns a copy of the slot at index slot.
func (b *Block) Page(slot int) PhysicalPage {
	if slot < 0 || slot >= len(b.pages) {
		PanicInvariant("Block.Page", ErrSlotOutOfRange, "block %d slot %d", b.id, slot)
	}
	return b.pages[slot]
}

// Write places lpn into the next free slot and links lp to it. It returns the
// index of the next free slot, or BlockFull when this write exhausted the block.
// Payloads are not retained by the simulator.
func (b *Block) Write(data []byte, lpn LPN, lp *LogicalPage) int {
	if b.IsFull() {
		PanicInvariant("Block.Write", ErrBlockAlreadyFull, "block %d, lpn %d", b.id, lpn)
	}
	slot := b.nextFree
	p := &b.pages[slot]
	p.status = Valid
	p.owner = lpn
	lp.Status = UsedLogical
	lp.Ref = PageRef{Block: b.id, Slot: slot}
	b.valid++

	if slot == len(b.pages)-1 {
		b.nextFree = BlockFull
		return BlockFull
	}
	b.nextFree++
	return b.nextFree
}

// Obsolete marks a valid slot as superseded.
func (b *Block) Obsolete(slot int) {
	if slot < 0 || slot >= len(b.pages) {
		PanicInvariant("Block.Obsolete", ErrSlotOutOfRange, "block %d slot %d", b.id, slot)
	}
	if b.pages[slot].status != Valid {
		PanicInvariant("Block.Obsolete", ErrSlotNotValid, "block %d slot %d is %s", b.id, slot, b.pages[slot].status)
	}
	b.valid--
	b.pages[slot].obsolete()
}

// CleanAndCompact erases the block and returns the logical pages that were
// still valid, in slot order. The caller rewrites them elsewhere, or back into
// this block for an in-place clean.
func (b *Block) CleanAndCompact() []LPN {
	survivors := make([]LPN, 0, b.valid)
	for i := range b.pages {
		if b.pages[i].status == Valid {
			survivors = append(survivors, b.pages[i].owner)
		}
		b.pages[i].reset()
	}
	b.valid = 0
	b.nextFree = 0
	return survivors
}

// Read copies the slot payload into buf. Page contents are not modelled, so
// this only touches the slot.
func (b *Block) Read(buf []byte, slot int) {
	if slot < 0 || slot >= len(b.pages) {
		PanicInvariant("Block.Read", ErrSlotOutOfRange, "block %d slot %d", b.id, slot)
	}
}
