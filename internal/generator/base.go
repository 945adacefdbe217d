// Package generator implements synthetic multi-asset price processes.
//
// Every generator is seeded explicitly and owns its random state, so Reset
// followed by K steps reproduces the first K outputs of a fresh instance.
package generator

import (
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
)

// Option configures a generator.
type Option func(*options)

type options struct {
	name   string
	assets models.Assets
}

// WithName overrides the generator name used in logs and metrics. Default
// asset names are numbered from it.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithAssets names the generated assets. The list length must match the
// number of assets implied by the parameters.
func WithAssets(assets models.Assets) Option {
	return func(o *options) {
		o.assets = assets
	}
}

// base holds the state common to all generators.
type base struct {
	name   string
	assets models.Assets
	values models.PriceVector
	step   int64
}

func newBase(kind string, nAssets int, opts []Option) (base, error) {
	o := &options{name: kind}
	for _, opt := range opts {
		opt(o)
	}
	assets := o.assets
	if assets == nil {
		assets = models.NumberedAssets(o.name+"_", nAssets)
	}
	if len(assets) != nAssets {
		return base{}, models.NewConfigError(kind, "assets", "got %d names for %d assets", len(assets), nAssets)
	}
	return base{
		name:   o.name,
		assets: assets,
		values: make(models.PriceVector, nAssets),
	}, nil
}

func (b *base) Name() string                      { return b.name }
func (b *base) NAssets() int                      { return len(b.assets) }
func (b *base) NFeats() int                       { return len(b.values) }
func (b *base) Assets() models.Assets             { return b.assets }
func (b *base) CurrentPrices() models.PriceVector { return b.values }
func (b *base) CurrentData() models.PriceVector   { return b.values }
func (b *base) CurrentTime() int64                { return b.step }
func (b *base) IsDateTime() bool                  { return false }
func (b *base) DataEnd() bool                     { return false }

// newRand returns the generator RNG for seed. Both PCG words derive from the
// seed so that equal seeds give equal streams.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

var (
	_ repository.TickSource = (*Periodic)(nil)
	_ repository.TickSource = (*SineAdder)(nil)
	_ repository.TickSource = (*SineDynamic)(nil)
	_ repository.TickSource = (*SineDynamicTrend)(nil)
	_ repository.TickSource = (*Gaussian)(nil)
	_ repository.TickSource = (*OU)(nil)
	_ repository.TickSource = (*OUDynamic)(nil)
	_ repository.TickSource = (*OUPair)(nil)
	_ repository.TickSource = (*CointPair)(nil)
	_ repository.TickSource = (*SimpleTrend)(nil)
	_ repository.TickSource = (*TrendOU)(nil)
	_ repository.TickSource = (*TrendyOU)(nil)
)
