package generator

import (
	"math"
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// GaussianParams describe independent normal draws per asset.
type GaussianParams struct {
	Mean []float64 `yaml:"mean" json:"mean"`
	Var  []float64 `yaml:"var" json:"var"`
	Seed uint64    `yaml:"seed" json:"seed"`
}

// DefaultGaussianParams returns a four-asset parameter set.
func DefaultGaussianParams() GaussianParams {
	return GaussianParams{
		Mean: []float64{10., 20., 30., 40.},
		Var:  []float64{1., 1., 2., 2.},
	}
}

// Gaussian draws mean + sqrt(var)*N(0, 1) every step, with no memory.
type Gaussian struct {
	base
	params GaussianParams
	std    []float64
	rng    *rand.Rand
}

// NewGaussian builds a Gaussian generator.
func NewGaussian(p GaussianParams, opts ...Option) (*Gaussian, error) {
	const kind = "gaussian"
	n, err := sameLength(kind, lenOf("mean", p.Mean), lenOf("var", p.Var))
	if err != nil {
		return nil, err
	}
	if err := checkEach(kind, "var", p.Var, nonNegative, "non-negative"); err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &Gaussian{base: b, params: p, std: make([]float64, n)}
	for i, v := range p.Var {
		g.std[i] = math.Sqrt(v)
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gaussian) GetData() (models.PriceVector, error) {
	for i := range g.values {
		g.values[i] = g.params.Mean[i] + g.std[i]*g.rng.NormFloat64()
	}
	g.step++
	return g.values, nil
}

func (g *Gaussian) Reset() error {
	copy(g.values, g.params.Mean)
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}
