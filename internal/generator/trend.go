package generator

import (
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// TrendParams are the per-asset regime parameters shared by the trend generators.
type TrendParams struct {
	TrendProb []float64 `yaml:"trend_prob" json:"trend_prob"`
	MinPeriod []int     `yaml:"min_period" json:"min_period"`
	MaxPeriod []int     `yaml:"max_period" json:"max_period"`
	DYMin     []float64 `yaml:"dy_min" json:"dy_min"`
	DYMax     []float64 `yaml:"dy_max" json:"dy_max"`
	Start     []float64 `yaml:"start" json:"start"`
	Seed      uint64    `yaml:"seed" json:"seed"`
}

// DefaultTrendParams returns a two-asset parameter set.
func DefaultTrendParams() TrendParams {
	return TrendParams{
		TrendProb: []float64{0.001, 0.001},
		MinPeriod: []int{100, 200},
		MaxPeriod: []int{1000, 1500},
		DYMin:     []float64{0.001, 0.001},
		DYMax:     []float64{0.003, 0.003},
		Start:     []float64{10., 20.},
	}
}

func (p TrendParams) fields() []field {
	return []field{
		lenOf("trend_prob", p.TrendProb), lenOf("min_period", p.MinPeriod), lenOf("max_period", p.MaxPeriod),
		lenOf("dy_min", p.DYMin), lenOf("dy_max", p.DYMax), lenOf("start", p.Start),
	}
}

func (p TrendParams) validate(kind string, extra ...field) (int, error) {
	n, err := sameLength(kind, append(p.fields(), extra...)...)
	if err != nil {
		return 0, err
	}
	if err := validateTrend(kind, p.TrendProb, p.MinPeriod, p.MaxPeriod, p.DYMin, p.DYMax); err != nil {
		return 0, err
	}
	return n, nil
}

func (p TrendParams) machine() *trendMachine {
	return newTrendMachine(p.TrendProb, p.MinPeriod, p.MaxPeriod, p.DYMin, p.DYMax)
}

// SimpleTrendParams extend TrendParams with per-asset random walk noise.
type SimpleTrendParams struct {
	TrendParams `yaml:",inline"`
	Noise       []float64 `yaml:"noise" json:"noise"`
}

// DefaultSimpleTrendParams returns a two-asset parameter set.
func DefaultSimpleTrendParams() SimpleTrendParams {
	return SimpleTrendParams{TrendParams: DefaultTrendParams(), Noise: []float64{0.01, 0.01}}
}

// SimpleTrend is a random walk that occasionally enters directional trends.
type SimpleTrend struct {
	base
	params SimpleTrendParams
	trend  *trendMachine
	rng    *rand.Rand
}

// NewSimpleTrend builds a SimpleTrend generator.
func NewSimpleTrend(p SimpleTrendParams, opts ...Option) (*SimpleTrend, error) {
	const kind = "simple_trend"
	n, err := p.validate(kind, lenOf("noise", p.Noise))
	if err != nil {
		return nil, err
	}
	if err := checkEach(kind, "noise", p.Noise, nonNegative, "non-negative"); err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &SimpleTrend{base: b, params: p, trend: p.machine()}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Regime returns the trend state of asset i after the last step.
func (g *SimpleTrend) Regime(i int) models.RegimeState { return g.trend.regime(i) }

func (g *SimpleTrend) GetData() (models.PriceVector, error) {
	for i := range g.values {
		dir, dy := g.trend.step(i, g.rng)
		g.values[i] += g.params.Noise[i]*g.rng.NormFloat64() + dir.Sign()*dy
	}
	g.step++
	return g.values, nil
}

func (g *SimpleTrend) Reset() error {
	copy(g.values, g.params.Start)
	g.trend.reset()
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}
