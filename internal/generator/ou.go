package generator

import (
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// OUParams describe discrete Ornstein-Uhlenbeck processes
// x += theta*(mean - x) + phi*N(0, 1), starting at mean.
type OUParams struct {
	Mean  []float64 `yaml:"mean" json:"mean"`
	Theta []float64 `yaml:"theta" json:"theta"`
	Phi   []float64 `yaml:"phi" json:"phi"`
	Seed  uint64    `yaml:"seed" json:"seed"`
}

// DefaultOUParams returns a four-asset parameter set.
func DefaultOUParams() OUParams {
	return OUParams{
		Mean:  []float64{2., 4.3, 3., 6.},
		Theta: []float64{0.15, 0.06, 0.2, 0.1},
		Phi:   []float64{0.1, 0.05, 0.1, 0.1},
	}
}

func (p OUParams) validate(kind string) (int, error) {
	n, err := sameLength(kind, lenOf("mean", p.Mean), lenOf("theta", p.Theta), lenOf("phi", p.Phi))
	if err != nil {
		return 0, err
	}
	if err := checkEach(kind, "theta", p.Theta, nonNegative, "non-negative"); err != nil {
		return 0, err
	}
	if err := checkEach(kind, "phi", p.Phi, nonNegative, "non-negative"); err != nil {
		return 0, err
	}
	return n, nil
}

// OU is a bank of independent mean-reverting processes.
type OU struct {
	base
	params OUParams
	rng    *rand.Rand
}

// NewOU builds an OU generator.
func NewOU(p OUParams, opts ...Option) (*OU, error) {
	const kind = "ou"
	n, err := p.validate(kind)
	if err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &OU{base: b, params: p}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *OU) GetData() (models.PriceVector, error) {
	p := &g.params
	for i, x := range g.values {
		g.values[i] = x + p.Theta[i]*(p.Mean[i]-x) + p.Phi[i]*g.rng.NormFloat64()
	}
	g.step++
	return g.values, nil
}

func (g *OU) Reset() error {
	copy(g.values, g.params.Mean)
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}

// OUDynamicParams describe OU processes whose parameters are resampled
// from ranges every UpdateEvery steps.
type OUDynamicParams struct {
	Mean        []Range `yaml:"mean" json:"mean"`
	Theta       []Range `yaml:"theta" json:"theta"`
	Phi         []Range `yaml:"phi" json:"phi"`
	UpdateEvery int     `yaml:"update_every" json:"update_every"`
	Seed        uint64  `yaml:"seed" json:"seed"`
}

// DefaultOUDynamicParams returns a three-asset parameter set.
func DefaultOUDynamicParams() OUDynamicParams {
	return OUDynamicParams{
		Mean:        []Range{R(6., 10., 16.), R(6., 10., 16.), R(6., 10., 16.)},
		Theta:       []Range{R(0.001, 0.15, 0.5), R(0.001, 0.15, 0.5), R(0.001, 0.15, 0.5)},
		Phi:         []Range{R(0.0, 0.1, 0.5), R(0.0, 0.1, 0.5), R(0.0, 0.1, 0.5)},
		UpdateEvery: 1000,
	}
}

// OUDynamic is OU with parameters resampled the same way SineDynamic does.
type OUDynamic struct {
	base
	params      OUDynamicParams
	mean        []float64
	theta       []float64
	phi         []float64
	sinceUpdate int
	coin        *BoolGenerator
	rng         *rand.Rand
}

// NewOUDynamic builds an OUDynamic generator.
func NewOUDynamic(p OUDynamicParams, opts ...Option) (*OUDynamic, error) {
	const kind = "ou_dynamic"
	n, err := sameLength(kind, lenOf("mean", p.Mean), lenOf("theta", p.Theta), lenOf("phi", p.Phi))
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name string
		rs   []Range
	}{{"mean", p.Mean}, {"theta", p.Theta}, {"phi", p.Phi}} {
		if err := checkRanges(kind, f.name, f.rs); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		name string
		rs   []Range
	}{{"theta", p.Theta}, {"phi", p.Phi}} {
		for i, r := range f.rs {
			if r.Min < 0 {
				return nil, models.NewConfigError(kind, f.name, "range %d must be non-negative, got min %g", i, r.Min)
			}
		}
	}
	if p.UpdateEvery < 1 {
		return nil, models.NewConfigError(kind, "update_every", "must be at least 1, got %d", p.UpdateEvery)
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &OUDynamic{
		base:   b,
		params: p,
		mean:   make([]float64, n),
		theta:  make([]float64, n),
		phi:    make([]float64, n),
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Mean returns the current mean of asset i.
func (g *OUDynamic) Mean(i int) float64 { return g.mean[i] }

// Theta returns the current reversion speed of asset i.
func (g *OUDynamic) Theta(i int) float64 { return g.theta[i] }

// Phi returns the current noise scale of asset i.
func (g *OUDynamic) Phi(i int) float64 { return g.phi[i] }

func (g *OUDynamic) GetData() (models.PriceVector, error) {
	if g.sinceUpdate >= g.params.UpdateEvery {
		p := &g.params
		for i := range g.values {
			if !g.coin.Next() {
				continue
			}
			g.mean[i] = uniform(g.rng, p.Mean[i].Min, p.Mean[i].Max)
			g.theta[i] = uniform(g.rng, p.Theta[i].Min, p.Theta[i].Max)
			g.phi[i] = uniform(g.rng, p.Phi[i].Min, p.Phi[i].Max)
		}
		g.sinceUpdate = 0
	}
	for i, x := range g.values {
		g.values[i] = x + g.theta[i]*(g.mean[i]-x) + g.phi[i]*g.rng.NormFloat64()
	}
	g.sinceUpdate++
	g.step++
	return g.values, nil
}

func (g *OUDynamic) Reset() error {
	for i := range g.values {
		g.mean[i] = g.params.Mean[i].Nominal
		g.theta[i] = g.params.Theta[i].Nominal
		g.phi[i] = g.params.Phi[i].Nominal
		g.values[i] = g.mean[i]
	}
	g.coin = NewBoolGenerator(g.params.Seed)
	g.rng = newRand(g.params.Seed)
	g.sinceUpdate = 0
	g.step = 0
	return nil
}
