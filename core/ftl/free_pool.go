package ftl

import "container/list"

// FreePool is the ordered collection of blocks that still have unwritten
// slots. New writes always go to the front block. The element map makes
// removal of an arbitrary block O(1), which the block-targeted write path needs.
type FreePool struct {
	order *list.List            // block ids, front is the current write target
	elems map[int]*list.Element // block id to its element in order
}

func NewFreePool() *FreePool {
	return &FreePool{
		order: list.New(),
		elems: make(map[int]*list.Element),
	}
}

func (fp *FreePool) PushBack(id int) {
	if _, ok := fp.elems[id]; ok {
		return
	}
	fp.elems[id] = fp.order.PushBack(id)
}

func (fp *FreePool) PushFront(id int) {
	if _, ok := fp.elems[id]; ok {
		return
	}
	fp.elems[id] = fp.order.PushFront(id)
}

// Front returns the current write target without removing it.
func (fp *FreePool) Front() (int, bool) {
	e := fp.order.Front()
	if e == nil {
		return 0, false
	}
	return e.Value.(int), true
}

func (fp *FreePool) PopFront() (int, bool) {
	e := fp.order.Front()
	if e == nil {
		return 0, false
	}
	id := e.Value.(int)
	fp.order.Remove(e)
	delete(fp.elems, id)
	return id, true
}

// Remove drops block id wherever it sits. It reports whether it was present.
func (fp *FreePool) Remove(id int) bool {
	e, ok := fp.elems[id]
	if !ok {
		return false
	}
	fp.order.Remove(e)
	delete(fp.elems, id)
	return true
}

func (fp *FreePool) Contains(id int) bool {
	_, ok := fp.elems[id]
	return ok
}

func (fp *FreePool) Len() int { return fp.order.Len() }

// IDs returns the pool contents front to back.
func (fp *FreePool) IDs() []int {
	ids := make([]int, 0, fp.order.Len())
	for e := fp.order.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(int))
	}
	return ids
}
