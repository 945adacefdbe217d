package generator

import (
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// SineDynamicParams describe sine processes whose frequency, level and
// amplitude wander inside per-asset ranges.
type SineDynamicParams struct {
	Freq        []Range `yaml:"freq" json:"freq"`
	Mu          []Range `yaml:"mu" json:"mu"`
	Amp         []Range `yaml:"amp" json:"amp"`
	DX          float64 `yaml:"dx" json:"dx"`
	Noise       float64 `yaml:"noise" json:"noise"`
	UpdateEvery int     `yaml:"update_every" json:"update_every"`
	Seed        uint64  `yaml:"seed" json:"seed"`
}

// DefaultSineDynamicParams returns a three-asset parameter set.
func DefaultSineDynamicParams() SineDynamicParams {
	return SineDynamicParams{
		Freq:        []Range{R(1., 2., 4.), R(0.1, 0.3, 0.6), R(0.5, 1., 2.)},
		Mu:          []Range{R(2., 3., 4.), R(5., 6., 7.), R(8., 9., 10.)},
		Amp:         []Range{R(0.5, 1., 2.), R(0.5, 1., 2.), R(0.5, 1., 2.)},
		DX:          0.01,
		UpdateEvery: 1000,
	}
}

func (p SineDynamicParams) validate(kind string) (int, error) {
	n, err := sameLength(kind, lenOf("freq", p.Freq), lenOf("mu", p.Mu), lenOf("amp", p.Amp))
	if err != nil {
		return 0, err
	}
	for _, f := range []struct {
		name string
		rs   []Range
	}{{"freq", p.Freq}, {"mu", p.Mu}, {"amp", p.Amp}} {
		if err := checkRanges(kind, f.name, f.rs); err != nil {
			return 0, err
		}
	}
	if p.UpdateEvery < 1 {
		return 0, models.NewConfigError(kind, "update_every", "must be at least 1, got %d", p.UpdateEvery)
	}
	if p.Noise < 0 {
		return 0, models.NewConfigError(kind, "noise", "must be non-negative, got %g", p.Noise)
	}
	return n, nil
}

// SineDynamic is a bank of wavetable oscillators. Every UpdateEvery steps
// each asset flips a coin and, on heads, draws new freq/mu/amp uniformly
// from its ranges.
type SineDynamic struct {
	base
	params      SineDynamicParams
	osc         []*WaveTableOsc
	freq        []float64
	mu          []float64
	amp         []float64
	sinceUpdate int
	coin        *BoolGenerator
	rng         *rand.Rand
}

// NewSineDynamic builds a SineDynamic generator.
func NewSineDynamic(p SineDynamicParams, opts ...Option) (*SineDynamic, error) {
	return newSineDynamic("sine_dynamic", p, opts)
}

func newSineDynamic(kind string, p SineDynamicParams, opts []Option) (*SineDynamic, error) {
	n, err := p.validate(kind)
	if err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &SineDynamic{
		base:   b,
		params: p,
		osc:    make([]*WaveTableOsc, n),
		freq:   make([]float64, n),
		mu:     make([]float64, n),
		amp:    make([]float64, n),
	}
	for i := range g.osc {
		g.osc[i] = &WaveTableOsc{}
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Process returns the raw oscillator output of asset i for the last step.
func (g *SineDynamic) Process(i int) float64 { return g.osc[i].Last() }

// Freq returns the current frequency of asset i.
func (g *SineDynamic) Freq(i int) float64 { return g.freq[i] }

// Mu returns the current level of asset i.
func (g *SineDynamic) Mu(i int) float64 { return g.mu[i] }

// Amp returns the current amplitude of asset i.
func (g *SineDynamic) Amp(i int) float64 { return g.amp[i] }

func (g *SineDynamic) GetData() (models.PriceVector, error) {
	g.advance()
	return g.values, nil
}

func (g *SineDynamic) advance() {
	if g.sinceUpdate >= g.params.UpdateEvery {
		g.updateParams()
		g.sinceUpdate = 0
	}
	for i := range g.values {
		v := g.mu[i] + g.amp[i]*g.osc[i].Process()
		if g.params.Noise > 0 {
			v += g.params.Noise * g.rng.NormFloat64()
		}
		g.values[i] = v
	}
	g.sinceUpdate++
	g.step++
}

func (g *SineDynamic) updateParams() {
	p := &g.params
	for i := range g.osc {
		if !g.coin.Next() {
			continue
		}
		g.freq[i] = uniform(g.rng, p.Freq[i].Min, p.Freq[i].Max)
		g.mu[i] = uniform(g.rng, p.Mu[i].Min, p.Mu[i].Max)
		g.amp[i] = uniform(g.rng, p.Amp[i].Min, p.Amp[i].Max)
		g.osc[i].SetFrequency(g.freq[i], p.DX)
	}
}

func (g *SineDynamic) Reset() error {
	p := &g.params
	for i := range g.osc {
		g.freq[i] = p.Freq[i].Nominal
		g.mu[i] = p.Mu[i].Nominal
		g.amp[i] = p.Amp[i].Nominal
		g.osc[i].SetPhase(0)
		g.osc[i].SetFrequency(g.freq[i], p.DX)
		g.values[i] = g.mu[i]
	}
	g.coin = NewBoolGenerator(p.Seed)
	g.rng = newRand(p.Seed)
	g.sinceUpdate = 0
	g.step = 0
	return nil
}

// SineDynamicTrendParams add per-asset fixed-increment trends to SineDynamic.
type SineDynamicTrendParams struct {
	SineDynamicParams `yaml:",inline"`
	TrendMin          []int     `yaml:"trend_min" json:"trend_min"`
	TrendMax          []int     `yaml:"trend_max" json:"trend_max"`
	TrendIncr         []float64 `yaml:"trend_incr" json:"trend_incr"`
	TrendProb         []float64 `yaml:"trend_prob" json:"trend_prob"`
}

// DefaultSineDynamicTrendParams returns a three-asset parameter set.
func DefaultSineDynamicTrendParams() SineDynamicTrendParams {
	return SineDynamicTrendParams{
		SineDynamicParams: DefaultSineDynamicParams(),
		TrendMin:          []int{100, 100, 100},
		TrendMax:          []int{500, 500, 500},
		TrendIncr:         []float64{0.01, 0.01, 0.01},
		TrendProb:         []float64{0.001, 0.001, 0.001},
	}
}

// SineDynamicTrend is SineDynamic plus an accumulated trend level per asset.
// The level persists after a trend ends.
type SineDynamicTrend struct {
	*SineDynamic
	trendParams SineDynamicTrendParams
	trend       *trendMachine
	level       []float64
}

// NewSineDynamicTrend builds a SineDynamicTrend generator.
func NewSineDynamicTrend(p SineDynamicTrendParams, opts ...Option) (*SineDynamicTrend, error) {
	const kind = "sine_dynamic_trend"
	if _, err := sameLength(kind,
		lenOf("freq", p.Freq), lenOf("trend_min", p.TrendMin), lenOf("trend_max", p.TrendMax),
		lenOf("trend_incr", p.TrendIncr), lenOf("trend_prob", p.TrendProb)); err != nil {
		return nil, err
	}
	if err := validateTrend(kind, p.TrendProb, p.TrendMin, p.TrendMax, p.TrendIncr, p.TrendIncr); err != nil {
		return nil, err
	}
	sd, err := newSineDynamic(kind, p.SineDynamicParams, opts)
	if err != nil {
		return nil, err
	}
	g := &SineDynamicTrend{
		SineDynamic: sd,
		trendParams: p,
		trend:       newTrendMachine(p.TrendProb, p.TrendMin, p.TrendMax, p.TrendIncr, p.TrendIncr),
		level:       make([]float64, len(p.TrendIncr)),
	}
	return g, nil
}

// Regime returns the trend state of asset i after the last step.
func (g *SineDynamicTrend) Regime(i int) models.RegimeState { return g.trend.regime(i) }

// TrendLevel returns the accumulated trend component of asset i.
func (g *SineDynamicTrend) TrendLevel(i int) float64 { return g.level[i] }

func (g *SineDynamicTrend) GetData() (models.PriceVector, error) {
	g.advance()
	for i := range g.values {
		dir, dy := g.trend.step(i, g.rng)
		g.level[i] += dir.Sign() * dy
		g.values[i] += g.level[i]
	}
	return g.values, nil
}

func (g *SineDynamicTrend) Reset() error {
	if err := g.SineDynamic.Reset(); err != nil {
		return err
	}
	g.trend.reset()
	for i := range g.level {
		g.level[i] = 0
	}
	return nil
}
