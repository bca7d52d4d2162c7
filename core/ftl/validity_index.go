package ftl

import (
	"encoding/binary"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/sushant-115/gojoftl/core/flash"
)

// NoMinimum is returned by UpdateMinValid when no block is full.
const NoMinimum = -1

// ValidityIndex groups every full block by its valid page count. Bucket i
// holds the ids of full blocks with exactly i valid pages. Each bucket is a
// radix tree keyed by the big-endian block id, so iteration is in ascending
// id order and membership changes cost O(log N).
type ValidityIndex struct {
	buckets []*iradix.Tree
	// min is the cached minimum non-empty bucket (Y).
	min int
}

// NewValidityIndex creates pagesPerBlock+1 empty buckets.
func NewValidityIndex(pagesPerBlock int) *ValidityIndex {
	vi := &ValidityIndex{
		buckets: make([]*iradix.Tree, pagesPerBlock+1),
		min:     NoMinimum,
	}
	for i := range vi.buckets {
		vi.buckets[i] = iradix.New()
	}
	return vi
}

func blockKey(id int) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(id))
	return k[:]
}

func (vi *ValidityIndex) checkBucket(op string, valid int) {
	if valid < 0 || valid >= len(vi.buckets) {
		flash.PanicInvariant(op, nil, "valid count %d outside [0,%d]", valid, len(vi.buckets)-1)
	}
}

// Insert adds a block that has just become full.
func (vi *ValidityIndex) Insert(valid, id int) {
	vi.checkBucket("ValidityIndex.Insert", valid)
	tree, _, existed := vi.buckets[valid].Insert(blockKey(id), id)
	if existed {
		flash.PanicInvariant("ValidityIndex.Insert", nil, "block %d already in bucket %d", id, valid)
	}
	vi.buckets[valid] = tree
}

// Remove drops a block from bucket valid.
func (vi *ValidityIndex) Remove(valid, id int) {
	vi.checkBucket("ValidityIndex.Remove", valid)
	tree, _, ok := vi.buckets[valid].Delete(blockKey(id))
	if !ok {
		flash.PanicInvariant("ValidityIndex.Remove", nil, "block %d not in bucket %d", id, valid)
	}
	vi.buckets[valid] = tree
}

// Move transfers a block between buckets after its valid count changed.
func (vi *ValidityIndex) Move(from, to, id int) {
	vi.Remove(from, id)
	vi.Insert(to, id)
}

// Contains reports whether block id is in bucket valid.
func (vi *ValidityIndex) Contains(valid, id int) bool {
	if valid < 0 || valid >= len(vi.buckets) {
		return false
	}
	_, ok := vi.buckets[valid].Get(blockKey(id))
	return ok
}

// UpdateMinValid scans the buckets from 0 upward and caches the first
// non-empty index as Y. It returns NoMinimum when no block is full.
func (vi *ValidityIndex) UpdateMinValid() int {
	for i, b := range vi.buckets {
		if b.Len() > 0 {
			vi.min = i
			return i
		}
	}
	vi.min = NoMinimum
	return NoMinimum
}

// Min returns the cached Y from the last UpdateMinValid.
func (vi *ValidityIndex) Min() int { return vi.min }

// First returns the lowest block id in bucket valid.
func (vi *ValidityIndex) First(valid int) (int, bool) {
	if valid < 0 || valid >= len(vi.buckets) {
		return 0, false
	}
	found, id := false, 0
	vi.buckets[valid].Root().Walk(func(_ []byte, v interface{}) bool {
		id, found = v.(int), true
		return true
	})
	return id, found
}

// Members returns the ids of bucket valid in ascending order.
func (vi *ValidityIndex) Members(valid int) []int {
	if valid < 0 || valid >= len(vi.buckets) {
		return nil
	}
	ids := make([]int, 0, vi.buckets[valid].Len())
	vi.buckets[valid].Root().Walk(func(_ []byte, v interface{}) bool {
		ids = append(ids, v.(int))
		return false
	})
	return ids
}

// Len is the number of blocks in bucket valid.
func (vi *ValidityIndex) Len(valid int) int {
	if valid < 0 || valid >= len(vi.buckets) {
		return 0
	}
	return vi.buckets[valid].Len()
}

// Sizes returns the size of every bucket.
func (vi *ValidityIndex) Sizes() []int {
	sizes := make([]int, len(vi.buckets))
	for i, b := range vi.buckets {
		sizes[i] = b.Len()
	}
	return sizes
}

// Buckets is the number of buckets, pagesPerBlock+1.
func (vi *ValidityIndex) Buckets() int { return len(vi.buckets) }
