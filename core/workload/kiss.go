// Package workload produces the write sequences driven through a simulated
// FTL: a seedable KISS generator, uniform and hot/cold page distributions,
// and a next-use index over a finished sequence.
package workload

// Default KISS state, used when the generator is seeded with 0.
const (
	kissX = 123456789
	kissY = 362436000
	kissZ = 521288629
	kissC = 7654321
)

// KISS is George Marsaglia's KISS generator: a linear congruential step, a
// xorshift step and a multiply-with-carry step summed together. Each KISS
// owns its state, so independent simulations never share a stream.
//
// KISS implements math/rand/v2.Source.
type KISS struct {
	x, y, z, c uint32
}

// NewKISS returns a generator. Seed 0 selects the canonical start state;
// any other seed derives a fresh state from it with splitmix64.
func NewKISS(seed uint64) *KISS {
	k := &KISS{x: kissX, y: kissY, z: kissZ, c: kissC}
	if seed == 0 {
		return k
	}
	s := seed
	k.x = uint32(splitmix64(&s))
	// y, z and c must never be zero or the sub-generators collapse.
	for k.y == 0 || k.z == 0 || k.c == 0 {
		k.y = uint32(splitmix64(&s))
		k.z = uint32(splitmix64(&s))
		k.c = uint32(splitmix64(&s)) % 698769069
	}
	return k
}

func splitmix64(s *uint64) uint64 {
	*s += 0x9e3779b97f4a7c15
	z := *s
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Next returns the next 32-bit value.
func (k *KISS) Next() uint32 {
	k.x = 69069*k.x + 12345
	k.y ^= k.y << 13
	k.y ^= k.y >> 17
	k.y ^= k.y << 5
	t := 698769069*uint64(k.z) + uint64(k.c)
	k.c = uint32(t >> 32)
	k.z = uint32(t)
	return k.x + k.y + k.z
}

// Uint64 joins two consecutive values, high word first.
func (k *KISS) Uint64() uint64 {
	hi := uint64(k.Next())
	return hi<<32 | uint64(k.Next())
}
