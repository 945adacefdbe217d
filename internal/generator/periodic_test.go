package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
)

func unitParams() PeriodicParams {
	return PeriodicParams{
		Freq:  []float64{1},
		Mu:    []float64{0},
		Amp:   []float64{1},
		Phase: []float64{0},
		DX:    0.25,
	}
}

func collect(t *testing.T, src interface {
	GetData() (models.PriceVector, error)
}, steps int) [][]float64 {
	t.Helper()
	out := make([][]float64, 0, steps)
	for i := 0; i < steps; i++ {
		v, err := src.GetData()
		require.NoError(t, err)
		out = append(out, v.Clone())
	}
	return out
}

func TestSynthQuarterSteps(t *testing.T) {
	g, err := NewSynth(unitParams())
	require.NoError(t, err)

	want := []float64{0, 1, 0, -1, 0}
	for i, w := range want {
		v, err := g.GetData()
		require.NoError(t, err)
		require.Len(t, v, 1)
		assert.InDelta(t, w, v[0], 1e-12, "step %d", i)
	}
	assert.EqualValues(t, len(want), g.CurrentTime())
	assert.False(t, g.DataEnd())
	assert.False(t, g.IsDateTime())
}

func TestSynthInstancesAgree(t *testing.T) {
	p := DefaultPeriodicParams()
	p.Noise = 0.05
	p.Seed = 42
	a, err := NewSynth(p)
	require.NoError(t, err)
	b, err := NewSynth(p)
	require.NoError(t, err)

	assert.Equal(t, collect(t, a, 200), collect(t, b, 200))
}

func TestSynthSeedChangesNoise(t *testing.T) {
	p := DefaultPeriodicParams()
	p.Noise = 0.05
	p.Seed = 1
	a, err := NewSynth(p)
	require.NoError(t, err)
	p.Seed = 2
	b, err := NewSynth(p)
	require.NoError(t, err)

	assert.NotEqual(t, collect(t, a, 20), collect(t, b, 20))
}

func TestWaveforms(t *testing.T) {
	tests := []struct {
		name string
		ctor func(PeriodicParams, ...Option) (*Periodic, error)
		want []float64
	}{
		{"sawtooth", NewSawTooth, []float64{0, 0.5, -1, -0.5, 0}},
		{"triangle", NewTriangle, []float64{0, 1, 0, -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.ctor(unitParams())
			require.NoError(t, err)
			got := collect(t, g, len(tt.want))
			for i, w := range tt.want {
				assert.InDelta(t, w, got[i][0], 1e-12, "step %d", i)
			}
		})
	}
}

func TestPeriodicLengthMismatch(t *testing.T) {
	fields := []string{"freq", "mu", "amp", "phase"}
	for i := range fields {
		for j := range fields {
			if i == j {
				continue
			}
			t.Run(fields[i]+"_vs_"+fields[j], func(t *testing.T) {
				p := unitParams()
				vecs := []*[]float64{&p.Freq, &p.Mu, &p.Amp, &p.Phase}
				*vecs[i] = []float64{1, 2}
				*vecs[j] = []float64{1, 2, 3}
				for _, ctor := range []func(PeriodicParams, ...Option) (*Periodic, error){NewSynth, NewSawTooth, NewTriangle} {
					_, err := ctor(p)
					require.Error(t, err)
					assert.True(t, errors.Is(err, models.ErrConfiguration))
				}
				_, err := NewSineAdder(p)
				assert.ErrorIs(t, err, models.ErrConfiguration)
			})
		}
	}
}

func TestPeriodicRejectsEmptyAndBadAssets(t *testing.T) {
	_, err := NewSynth(PeriodicParams{})
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewSynth(unitParams(), WithAssets(models.NewAssets("a", "b")))
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "assets", cfgErr.Field)
}

func TestPeriodicNamesAssets(t *testing.T) {
	g, err := NewSynth(unitParams(), WithName("wave"), WithAssets(models.NewAssets("EURUSD")))
	require.NoError(t, err)
	assert.Equal(t, "wave", g.Name())
	assert.Equal(t, []string{"EURUSD"}, g.Assets().Names())
	assert.Equal(t, 1, g.NAssets())
	assert.Equal(t, 1, g.NFeats())
}

func TestSineAdderSumsComponents(t *testing.T) {
	p := PeriodicParams{
		Freq:  []float64{1, 2},
		Mu:    []float64{1, 2},
		Amp:   []float64{1, 0.5},
		Phase: []float64{0, 0},
		DX:    0.125,
	}
	g, err := NewSineAdder(p)
	require.NoError(t, err)
	assert.Equal(t, 1, g.NAssets())
	assert.Equal(t, 2, g.NComponents())
	assert.Equal(t, 3., g.CurrentPrices()[0])

	for i := 0; i < 16; i++ {
		v, err := g.GetData()
		require.NoError(t, err)
		assert.InDelta(t, g.Component(0)+g.Component(1), v[0], 1e-12)
	}
}
