package generator

import (
	"math"
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

// Waveform maps a phase in cycles to a value in [-1, 1].
type Waveform func(u float64) float64

// Sine is sin(2*pi*u).
func Sine(u float64) float64 { return math.Sin(2 * math.Pi * u) }

// Sawtooth rises linearly from -1 to 1 once per cycle, crossing zero at whole cycles.
func Sawtooth(u float64) float64 { return 2 * (u - math.Floor(u+0.5)) }

// Triangle is a triangle wave in phase with Sine.
func Triangle(u float64) float64 {
	v := u - 0.25
	return 1 - 4*math.Abs(math.Round(v)-v)
}

// PeriodicParams describe per-asset periodic processes
// value = mu + amp*wave(x*freq), with x starting at phase and advancing by DX
// per step.
type PeriodicParams struct {
	Freq  []float64 `yaml:"freq" json:"freq"`
	Mu    []float64 `yaml:"mu" json:"mu"`
	Amp   []float64 `yaml:"amp" json:"amp"`
	Phase []float64 `yaml:"phase" json:"phase"`
	DX    float64   `yaml:"dx" json:"dx"`
	Noise float64   `yaml:"noise" json:"noise"`
	Seed  uint64    `yaml:"seed" json:"seed"`
}

// DefaultPeriodicParams returns a four-asset parameter set.
func DefaultPeriodicParams() PeriodicParams {
	return PeriodicParams{
		Freq:  []float64{1., 0.3, 2., 0.5},
		Mu:    []float64{2., 2.1, 2.2, 2.3},
		Amp:   []float64{1., 1.2, 1.3, 1.},
		Phase: []float64{0., 1., 2., 1.},
		DX:    0.01,
	}
}

func (p PeriodicParams) validate(kind string) (int, error) {
	n, err := sameLength(kind,
		lenOf("freq", p.Freq), lenOf("mu", p.Mu), lenOf("amp", p.Amp), lenOf("phase", p.Phase))
	if err != nil {
		return 0, err
	}
	if p.Noise < 0 {
		return 0, models.NewConfigError(kind, "noise", "must be non-negative, got %g", p.Noise)
	}
	return n, nil
}

// Periodic generates one deterministic periodic series per asset with
// optional Gaussian noise. Synth, SawTooth and Triangle differ only in Waveform.
type Periodic struct {
	base
	wave   Waveform
	params PeriodicParams
	x      []float64
	rng    *rand.Rand
}

// NewSynth builds a sine generator.
func NewSynth(p PeriodicParams, opts ...Option) (*Periodic, error) {
	return NewPeriodic("synth", Sine, p, opts...)
}

// NewSawTooth builds a sawtooth generator.
func NewSawTooth(p PeriodicParams, opts ...Option) (*Periodic, error) {
	return NewPeriodic("sawtooth", Sawtooth, p, opts...)
}

// NewTriangle builds a triangle wave generator.
func NewTriangle(p PeriodicParams, opts ...Option) (*Periodic, error) {
	return NewPeriodic("triangle", Triangle, p, opts...)
}

// NewPeriodic builds a generator over an arbitrary waveform.
func NewPeriodic(kind string, wave Waveform, p PeriodicParams, opts ...Option) (*Periodic, error) {
	n, err := p.validate(kind)
	if err != nil {
		return nil, err
	}
	b, err := newBase(kind, n, opts)
	if err != nil {
		return nil, err
	}
	g := &Periodic{base: b, wave: wave, params: p, x: make([]float64, n)}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// GetData advances every asset one step.
func (g *Periodic) GetData() (models.PriceVector, error) {
	p := &g.params
	for i := range g.values {
		v := p.Mu[i] + p.Amp[i]*g.wave(g.x[i]*p.Freq[i])
		if p.Noise > 0 {
			v += p.Noise * g.rng.NormFloat64()
		}
		g.values[i] = v
		g.x[i] += p.DX
	}
	g.step++
	return g.values, nil
}

// Reset rewinds phases and reseeds the noise.
func (g *Periodic) Reset() error {
	copy(g.x, g.params.Phase)
	copy(g.values, g.params.Mu)
	g.rng = newRand(g.params.Seed)
	g.step = 0
	return nil
}
