package generator

// BoolGenerator is a fast source of fair coin flips backed by xorshift128+.
// Each 64-bit draw is consumed one bit at a time. It also satisfies
// math/rand/v2.Source.
type BoolGenerator struct {
	seed   uint64
	s0, s1 uint64
	bits   uint64
	left   int
}

// NewBoolGenerator returns a generator whose stream is fully determined by seed.
func NewBoolGenerator(seed uint64) *BoolGenerator {
	g := &BoolGenerator{seed: seed}
	g.Reset()
	return g
}

// Reset restarts the stream from the construction seed.
func (g *BoolGenerator) Reset() {
	sm := g.seed
	g.s0 = splitmix64(&sm)
	g.s1 = splitmix64(&sm)
	if g.s0 == 0 && g.s1 == 0 {
		g.s1 = 1
	}
	g.bits, g.left = 0, 0
}

// Uint64 returns the next 64 random bits.
func (g *BoolGenerator) Uint64() uint64 {
	s1 := g.s0
	s0 := g.s1
	out := s0 + s1
	g.s0 = s0
	s1 ^= s1 << 23
	g.s1 = s1 ^ s0 ^ (s1 >> 18) ^ (s0 >> 5)
	return out
}

// Next returns a uniformly distributed bool.
func (g *BoolGenerator) Next() bool {
	if g.left == 0 {
		g.bits = g.Uint64()
		g.left = 64
	}
	v := g.bits&1 == 1
	g.bits >>= 1
	g.left--
	return v
}

// Float64 returns a uniform value in [0, 1).
func (g *BoolGenerator) Float64() float64 {
	return float64(g.Uint64()>>11) / (1 << 53)
}

func splitmix64(x *uint64) uint64 {
	*x += 0x9e3779b97f4a7c15
	z := *x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
