package generator

import (
	"math"
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// TrendOUParams extend TrendParams with OU dynamics and an EMA anchor.
type TrendOUParams struct {
	TrendParams `yaml:",inline"`
	Theta       []float64 `yaml:"theta" json:"theta"`
	Phi         []float64 `yaml:"phi" json:"phi"`
	NoiseVar    []float64 `yaml:"noise_var" json:"noise_var"`
	EMAAlpha    []float64 `yaml:"ema_alpha" json:"ema_alpha"`
}

// DefaultTrendOUParams returns a two-asset parameter set.
func DefaultTrendOUParams() TrendOUParams {
	return TrendOUParams{
		TrendParams: DefaultTrendParams(),
		Theta:       []float64{0.15, 0.15},
		Phi:         []float64{0.02, 0.02},
		NoiseVar:    []float64{0.0001, 0.0001},
		EMAAlpha:    []float64{0.05, 0.05},
	}
}

func (p TrendOUParams) validate(kind string) (int, error) {
	n, err := p.TrendParams.validate(kind,
		lenOf("theta", p.Theta), lenOf("phi", p.Phi), lenOf("noise_var", p.NoiseVar), lenOf("ema_alpha", p.EMAAlpha))
	if err != nil {
		return 0, err
	}
	checks := []struct {
		name string
		v    []float64
		ok   func(float64) bool
		what string
	}{
		{"theta", p.Theta, nonNegative, "non-negative"},
		{"phi", p.Phi, nonNegative, "non-negative"},
		{"noise_var", p.NoiseVar, nonNegative, "non-negative"},
		{"ema_alpha", p.EMAAlpha, unitInterval, "in (0, 1]"},
	}
	for _, c := range checks {
		if err := checkEach(kind, c.name, c.v, c.ok, c.what); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// TrendOU is an OU process whose mean follows trends. Outside a trend the
// mean is re-anchored to the EMA of the series.
type TrendOU struct {
	base
	params   TrendOUParams
	trend    *trendMachine
	noiseStd []float64
	ouMean   []float64
	ema      []float64
	rng      *rand.Rand
}

// NewTrendOU builds a TrendOU generator.
func NewTrendOU(p TrendOUParams, opts ...Option) (*TrendOU, error) {
	const kind = "trend_ou"
	n, err := p.validate(kind)
	if err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &TrendOU{
		base:     b,
		params:   p,
		trend:    p.machine(),
		noiseStd: sqrtAll(p.NoiseVar),
		ouMean:   make([]float64, n),
		ema:      make([]float64, n),
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Regime returns the trend state of asset i after the last step.
func (g *TrendOU) Regime(i int) models.RegimeState { return g.trend.regime(i) }

// EMA returns the exponential moving average of asset i.
func (g *TrendOU) EMA(i int) float64 { return g.ema[i] }

// OUMean returns the level asset i currently reverts to.
func (g *TrendOU) OUMean(i int) float64 { return g.ouMean[i] }

func (g *TrendOU) GetData() (models.PriceVector, error) {
	p := &g.params
	for i, x := range g.values {
		dir, dy := g.trend.step(i, g.rng)
		if dir == models.Flat {
			g.ouMean[i] = g.ema[i]
		} else {
			g.ouMean[i] += dir.Sign() * (dy + g.noiseStd[i]*g.rng.NormFloat64())
		}
		x += p.Theta[i]*(g.ouMean[i]-x) + p.Phi[i]*g.rng.NormFloat64()
		g.ema[i] = p.EMAAlpha[i]*x + (1-p.EMAAlpha[i])*g.ema[i]
		g.values[i] = x
	}
	g.step++
	return g.values, nil
}

func (g *TrendOU) Reset() error {
	copy(g.values, g.params.Start)
	copy(g.ouMean, g.params.Start)
	copy(g.ema, g.params.Start)
	g.trend.reset()
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}

// TrendyOU keeps a trend component and a zero-mean OU component separately
// and emits their sum.
type TrendyOU struct {
	base
	params   TrendOUParams
	trend    *trendMachine
	noiseStd []float64
	trendC   []float64
	ouC      []float64
	ema      []float64
	rng      *rand.Rand
}

// NewTrendyOU builds a TrendyOU generator.
func NewTrendyOU(p TrendOUParams, opts ...Option) (*TrendyOU, error) {
	const kind = "trendy_ou"
	n, err := p.validate(kind)
	if err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &TrendyOU{
		base:     b,
		params:   p,
		trend:    p.machine(),
		noiseStd: sqrtAll(p.NoiseVar),
		trendC:   make([]float64, n),
		ouC:      make([]float64, n),
		ema:      make([]float64, n),
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Regime returns the trend state of asset i after the last step.
func (g *TrendyOU) Regime(i int) models.RegimeState { return g.trend.regime(i) }

// TrendComponent returns the accumulated trend level of asset i.
func (g *TrendyOU) TrendComponent(i int) float64 { return g.trendC[i] }

// OUComponent returns the mean-reverting component of asset i.
func (g *TrendyOU) OUComponent(i int) float64 { return g.ouC[i] }

// EMA returns the exponential moving average of the output of asset i.
func (g *TrendyOU) EMA(i int) float64 { return g.ema[i] }

func (g *TrendyOU) GetData() (models.PriceVector, error) {
	p := &g.params
	for i := range g.values {
		dir, dy := g.trend.step(i, g.rng)
		if dir != models.Flat {
			g.trendC[i] += dir.Sign() * (dy + g.noiseStd[i]*g.rng.NormFloat64())
		}
		g.ouC[i] += -p.Theta[i]*g.ouC[i] + p.Phi[i]*g.rng.NormFloat64()
		x := g.trendC[i] + g.ouC[i]
		g.ema[i] = p.EMAAlpha[i]*x + (1-p.EMAAlpha[i])*g.ema[i]
		g.values[i] = x
	}
	g.step++
	return g.values, nil
}

func (g *TrendyOU) Reset() error {
	copy(g.values, g.params.Start)
	copy(g.trendC, g.params.Start)
	copy(g.ema, g.params.Start)
	for i := range g.ouC {
		g.ouC[i] = 0
	}
	g.trend.reset()
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}

func sqrtAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Sqrt(x)
	}
	return out
}
