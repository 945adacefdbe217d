package generator

import (
	"math"
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// PairParams describe a two-asset pair whose spread mean-reverts to zero.
type PairParams struct {
	Theta float64 `yaml:"theta" json:"theta"`
	Phi   float64 `yaml:"phi" json:"phi"`
	Noise float64 `yaml:"noise" json:"noise"`
	Mean  float64 `yaml:"mean" json:"mean"`
	Seed  uint64  `yaml:"seed" json:"seed"`
}

// DefaultPairParams returns the default pair parameters.
func DefaultPairParams() PairParams {
	return PairParams{Theta: 0.15, Phi: 0.1, Noise: 0.05, Mean: 10.}
}

func (p PairParams) validate(kind string) error {
	if p.Theta < 0 {
		return models.NewConfigError(kind, "theta", "must be non-negative, got %g", p.Theta)
	}
	if p.Phi < 0 {
		return models.NewConfigError(kind, "phi", "must be non-negative, got %g", p.Phi)
	}
	if p.Noise < 0 {
		return models.NewConfigError(kind, "noise", "must be non-negative, got %g", p.Noise)
	}
	return nil
}

// OUPair emits [a, a+s] where a is a random walk started at Mean and s is an
// OU spread around zero.
type OUPair struct {
	base
	params PairParams
	a      float64
	spread float64
	rng    *rand.Rand
}

// NewOUPair builds an OUPair generator.
func NewOUPair(p PairParams, opts ...Option) (*OUPair, error) {
	const kind = "ou_pair"
	if err := p.validate(kind); err != nil {
		return nil, err
	}
	b, err := newBase(kind, 2, opts)
	if err != nil {
		return nil, err
	}
	g := &OUPair{base: b, params: p}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Spread returns the current spread between the two legs.
func (g *OUPair) Spread() float64 { return g.spread }

func (g *OUPair) GetData() (models.PriceVector, error) {
	p := &g.params
	g.a += p.Noise * g.rng.NormFloat64()
	g.spread += -p.Theta*g.spread + p.Phi*g.rng.NormFloat64()
	g.values[0] = g.a
	g.values[1] = g.a + g.spread
	g.step++
	return g.values, nil
}

func (g *OUPair) Reset() error {
	g.a = g.params.Mean
	g.spread = 0
	g.values[0], g.values[1] = g.a, g.a
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}

// CointPair is the multiplicative analogue of OUPair: log(a) is a random
// walk and the second leg is a*exp(s), so the price ratio mean-reverts.
type CointPair struct {
	base
	params PairParams
	logA   float64
	spread float64
	rng    *rand.Rand
}

// NewCointPair builds a CointPair generator. Mean must be positive.
func NewCointPair(p PairParams, opts ...Option) (*CointPair, error) {
	const kind = "coint_pair"
	if err := p.validate(kind); err != nil {
		return nil, err
	}
	if p.Mean <= 0 {
		return nil, models.NewConfigError(kind, "mean", "must be positive, got %g", p.Mean)
	}
	b, err := newBase(kind, 2, opts)
	if err != nil {
		return nil, err
	}
	g := &CointPair{base: b, params: p}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Spread returns the current log spread between the two legs.
func (g *CointPair) Spread() float64 { return g.spread }

func (g *CointPair) GetData() (models.PriceVector, error) {
	p := &g.params
	g.logA += p.Noise * g.rng.NormFloat64()
	g.spread += -p.Theta*g.spread + p.Phi*g.rng.NormFloat64()
	a := math.Exp(g.logA)
	g.values[0] = a
	g.values[1] = a * math.Exp(g.spread)
	g.step++
	return g.values, nil
}

func (g *CointPair) Reset() error {
	g.logA = math.Log(g.params.Mean)
	g.spread = 0
	g.values[0], g.values[1] = g.params.Mean, g.params.Mean
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}
