package ftl

// WindowSize estimates how many pages can still be written before the next
// reclamation is forced: Y*|V[Y]| + Z*|V[i]| for every bucket i above Y, plus
// the slots already consumed in free-pool blocks. It does not change state
// apart from refreshing the cached Y.
func (f *FTL) WindowSize() uint64 {
	var window uint64
	if y := f.index.UpdateMinValid(); y != NoMinimum {
		window += uint64(y) * uint64(f.index.Len(y))
		for i := y + 1; i < f.index.Buckets(); i++ {
			window += uint64(f.index.Len(i)) * uint64(f.geo.PagesPerBlock)
		}
	}
	for _, id := range f.pool.IDs() {
		window += uint64(f.blocks[id].Written())
	}
	return window
}
