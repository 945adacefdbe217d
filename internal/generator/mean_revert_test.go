package generator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
)

func TestGaussianMoments(t *testing.T) {
	g, err := NewGaussian(GaussianParams{Mean: []float64{5, -2}, Var: []float64{4, 0}, Seed: 3})
	require.NoError(t, err)

	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		sum += v[0]
		sumSq += v[0] * v[0]
		require.Equal(t, -2., v[1])
	}
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)
	assert.InDelta(t, 5., mean, 0.1)
	assert.InDelta(t, 2., std, 0.1)
}

func TestGaussianRejectsNegativeVariance(t *testing.T) {
	_, err := NewGaussian(GaussianParams{Mean: []float64{1}, Var: []float64{-1}})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestOUWithoutNoiseStaysAtMean(t *testing.T) {
	g, err := NewOU(OUParams{Mean: []float64{3, 7}, Theta: []float64{0.2, 0.5}, Phi: []float64{0, 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 7}, []float64(g.CurrentPrices()))
	for i := 0; i < 10; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 7}, []float64(v))
	}
}

func TestOURevertsTowardMean(t *testing.T) {
	g, err := NewOU(OUParams{Mean: []float64{10}, Theta: []float64{0.1}, Phi: []float64{0.5}, Seed: 9})
	require.NoError(t, err)
	sum := 0.
	const n = 5000
	for i := 0; i < n; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		sum += v[0]
	}
	assert.InDelta(t, 10., sum/n, 0.5)
}

func TestOULengthMismatch(t *testing.T) {
	tests := []OUParams{
		{Mean: []float64{1, 2}, Theta: []float64{1}, Phi: []float64{1}},
		{Mean: []float64{1}, Theta: []float64{1, 2}, Phi: []float64{1}},
		{Mean: []float64{1}, Theta: []float64{1}, Phi: []float64{1, 2}},
	}
	for _, p := range tests {
		_, err := NewOU(p)
		assert.ErrorIs(t, err, models.ErrConfiguration)
	}
}

func TestOUDynamicResamplesWithinRanges(t *testing.T) {
	p := DefaultOUDynamicParams()
	p.UpdateEvery = 2
	p.Seed = 21
	g, err := NewOUDynamic(p)
	require.NoError(t, err)
	for step := 0; step < 300; step++ {
		_, err := g.GetData()
		require.NoError(t, err)
		for i := 0; i < g.NAssets(); i++ {
			require.True(t, g.Mean(i) >= p.Mean[i].Min && g.Mean(i) <= p.Mean[i].Max)
			require.True(t, g.Theta(i) >= p.Theta[i].Min && g.Theta(i) <= p.Theta[i].Max)
			require.True(t, g.Phi(i) >= p.Phi[i].Min && g.Phi(i) <= p.Phi[i].Max)
		}
	}
}

func TestOUDynamicNegativeRangeNamesField(t *testing.T) {
	for _, field := range []string{"theta", "phi"} {
		t.Run(field, func(t *testing.T) {
			p := DefaultOUDynamicParams()
			neg := Range{Min: -0.1, Nominal: 0, Max: 0.1}
			if field == "theta" {
				p.Theta[0] = neg
			} else {
				p.Phi[0] = neg
			}
			_, err := NewOUDynamic(p)
			require.ErrorIs(t, err, models.ErrConfiguration)
			var cfgErr *models.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, field, cfgErr.Field)
		})
	}
}

func TestOUPairLegs(t *testing.T) {
	g, err := NewOUPair(PairParams{Theta: 0.3, Phi: 0, Noise: 0.1, Mean: 50, Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, g.NAssets())
	for i := 0; i < 100; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		// without spread noise the legs coincide
		assert.Equal(t, v[0], v[1])
	}

	g, err = NewOUPair(PairParams{Theta: 0.3, Phi: 0.2, Noise: 0.1, Mean: 50, Seed: 4})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		assert.InDelta(t, v[0]+g.Spread(), v[1], 1e-12)
	}
}

func TestCointPairRatio(t *testing.T) {
	g, err := NewCointPair(PairParams{Theta: 0.2, Phi: 0.05, Noise: 0.01, Mean: 100, Seed: 8})
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		require.Greater(t, v[0], 0.)
		assert.InDelta(t, math.Exp(g.Spread()), v[1]/v[0], 1e-9)
	}

	_, err = NewCointPair(PairParams{Mean: 0})
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = NewOUPair(PairParams{Theta: -1, Mean: 1})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
