package generator

import (
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// SineAdder sums several sine components into a single asset.
type SineAdder struct {
	base
	params     PeriodicParams
	x          []float64
	components []float64
	rng        *rand.Rand
}

// NewSineAdder builds a one-asset generator whose value is the sum of the
// sine components described by p.
func NewSineAdder(p PeriodicParams, opts ...Option) (*SineAdder, error) {
	const kind = "sine_adder"
	n, err := p.validate(kind)
	if err != nil {
		return nil, err
	}
	b, err := newBase(kind, 1, opts)
	if err != nil {
		return nil, err
	}
	g := &SineAdder{
		base:       b,
		params:     p,
		x:          make([]float64, n),
		components: make([]float64, n),
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// NComponents returns the number of summed sine components.
func (g *SineAdder) NComponents() int { return len(g.components) }

// Component returns the last value of component i.
func (g *SineAdder) Component(i int) float64 { return g.components[i] }

func (g *SineAdder) GetData() (models.PriceVector, error) {
	p := &g.params
	sum := 0.
	for i := range g.components {
		c := p.Mu[i] + p.Amp[i]*Sine(g.x[i]*p.Freq[i])
		g.components[i] = c
		sum += c
		g.x[i] += p.DX
	}
	if p.Noise > 0 {
		sum += p.Noise * g.rng.NormFloat64()
	}
	g.values[0] = sum
	g.step++
	return g.values, nil
}

func (g *SineAdder) Reset() error {
	copy(g.x, g.params.Phase)
	sum := 0.
	for i := range g.components {
		g.components[i] = g.params.Mu[i]
		sum += g.params.Mu[i]
	}
	g.values[0] = sum
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}
