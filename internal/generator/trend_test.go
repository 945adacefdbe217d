package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
)

type regimeSource interface {
	GetData() (models.PriceVector, error)
	Regime(i int) models.RegimeState
	NAssets() int
}

// runLengths steps src and returns, per asset, the lengths of maximal runs of
// ticks that moved in the same direction.
func runLengths(t *testing.T, src regimeSource, steps int) [][]int {
	t.Helper()
	n := src.NAssets()
	runs := make([][]int, n)
	cur := make([]int, n)
	dir := make([]models.Direction, n)
	for s := 0; s < steps; s++ {
		_, err := src.GetData()
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			st := src.Regime(i)
			switch {
			case st.Moved != models.Flat && st.Moved == dir[i]:
				cur[i]++
			case st.Moved != models.Flat:
				if cur[i] > 0 {
					runs[i] = append(runs[i], cur[i])
				}
				cur[i], dir[i] = 1, st.Moved
			default:
				if cur[i] > 0 {
					runs[i] = append(runs[i], cur[i])
				}
				cur[i], dir[i] = 0, models.Flat
			}
		}
	}
	return runs
}

func eagerTrend() TrendParams {
	return TrendParams{
		TrendProb: []float64{1, 0.05},
		MinPeriod: []int{3, 1},
		MaxPeriod: []int{7, 20},
		DYMin:     []float64{0.5, 0.1},
		DYMax:     []float64{0.5, 0.2},
		Start:     []float64{100, 50},
		Seed:      17,
	}
}

func TestTrendRunLengthsWithinBounds(t *testing.T) {
	p := eagerTrend()
	tests := []struct {
		name string
		src  func() (regimeSource, error)
	}{
		{"simple_trend", func() (regimeSource, error) {
			return NewSimpleTrend(SimpleTrendParams{TrendParams: p, Noise: []float64{0.01, 0.01}})
		}},
		{"trend_ou", func() (regimeSource, error) {
			q := DefaultTrendOUParams()
			q.TrendParams = p
			return NewTrendOU(q)
		}},
		{"trendy_ou", func() (regimeSource, error) {
			q := DefaultTrendOUParams()
			q.TrendParams = p
			return NewTrendyOU(q)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.src()
			require.NoError(t, err)
			runs := runLengths(t, src, 3000)
			for i, rs := range runs {
				require.NotEmpty(t, rs, "asset %d never trended", i)
				for _, l := range rs {
					assert.GreaterOrEqual(t, l, p.MinPeriod[i], "asset %d", i)
					assert.LessOrEqual(t, l, p.MaxPeriod[i], "asset %d", i)
				}
			}
		})
	}
}

func TestSimpleTrendIncrements(t *testing.T) {
	p := eagerTrend()
	g, err := NewSimpleTrend(SimpleTrendParams{TrendParams: p, Noise: []float64{0, 0}})
	require.NoError(t, err)

	prev := g.CurrentPrices().Clone()
	for s := 0; s < 200; s++ {
		v, err := g.GetData()
		require.NoError(t, err)
		st := g.Regime(0)
		diff := v[0] - prev[0]
		if st.Moved != models.Flat {
			assert.InDelta(t, 0.5*st.Moved.Sign(), diff, 1e-9)
		} else {
			assert.Zero(t, diff)
		}
		prev = v.Clone()
	}
}

func TestTrendClearsStateOnLastTick(t *testing.T) {
	p := eagerTrend()
	g, err := NewSimpleTrend(SimpleTrendParams{TrendParams: p, Noise: []float64{0, 0}})
	require.NoError(t, err)

	ends := 0
	justEnded := false
	for s := 0; s < 300; s++ {
		_, err := g.GetData()
		require.NoError(t, err)
		st := g.Regime(0)
		if justEnded {
			assert.Equal(t, models.RegimeState{}, st, "tick after a trend must be flat")
		}
		if st.Trending {
			assert.Positive(t, st.Remaining)
			assert.Equal(t, st.Direction, st.Moved)
		}
		justEnded = !st.Trending && st.Moved != models.Flat
		if justEnded {
			ends++
			assert.Zero(t, st.Remaining)
			assert.Equal(t, models.Flat, st.Direction)
		}
	}
	assert.Positive(t, ends)

	require.NoError(t, g.Reset())
	assert.Equal(t, models.RegimeState{}, g.Regime(0))
}

func TestTrendNeverStartsWithZeroProbability(t *testing.T) {
	p := eagerTrend()
	p.TrendProb = []float64{0, 0}
	g, err := NewSimpleTrend(SimpleTrendParams{TrendParams: p, Noise: []float64{0, 0}})
	require.NoError(t, err)
	for s := 0; s < 500; s++ {
		v, err := g.GetData()
		require.NoError(t, err)
		require.False(t, g.Regime(0).Trending)
		require.Equal(t, []float64{100, 50}, []float64(v))
	}
}

func TestTrendParamsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SimpleTrendParams)
	}{
		{"trend_prob length", func(p *SimpleTrendParams) { p.TrendProb = p.TrendProb[:1] }},
		{"min_period length", func(p *SimpleTrendParams) { p.MinPeriod = p.MinPeriod[:1] }},
		{"max_period length", func(p *SimpleTrendParams) { p.MaxPeriod = append(p.MaxPeriod, 3) }},
		{"dy_min length", func(p *SimpleTrendParams) { p.DYMin = p.DYMin[:1] }},
		{"dy_max length", func(p *SimpleTrendParams) { p.DYMax = p.DYMax[:1] }},
		{"start length", func(p *SimpleTrendParams) { p.Start = p.Start[:1] }},
		{"noise length", func(p *SimpleTrendParams) { p.Noise = p.Noise[:1] }},
		{"min above max", func(p *SimpleTrendParams) { p.MinPeriod[0] = 10; p.MaxPeriod[0] = 5 }},
		{"zero min period", func(p *SimpleTrendParams) { p.MinPeriod[0] = 0 }},
		{"dy_min above dy_max", func(p *SimpleTrendParams) { p.DYMin[1] = 1 }},
		{"probability above one", func(p *SimpleTrendParams) { p.TrendProb[0] = 1.5 }},
		{"negative noise", func(p *SimpleTrendParams) { p.Noise[1] = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultSimpleTrendParams()
			tt.mutate(&p)
			_, err := NewSimpleTrend(p)
			assert.ErrorIs(t, err, models.ErrConfiguration)
		})
	}
}

func TestTrendOUValidation(t *testing.T) {
	p := DefaultTrendOUParams()
	p.EMAAlpha = []float64{0, 0.5}
	_, err := NewTrendOU(p)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	p = DefaultTrendOUParams()
	p.Theta = p.Theta[:1]
	_, err = NewTrendyOU(p)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestTrendOUTracksEMA(t *testing.T) {
	p := DefaultTrendOUParams()
	p.Seed = 2
	g, err := NewTrendOU(p)
	require.NoError(t, err)
	ema := append([]float64(nil), p.Start...)
	for s := 0; s < 300; s++ {
		v, err := g.GetData()
		require.NoError(t, err)
		for i := range v {
			ema[i] = p.EMAAlpha[i]*v[i] + (1-p.EMAAlpha[i])*ema[i]
			assert.InDelta(t, ema[i], g.EMA(i), 1e-9)
		}
	}
}

func TestTrendyOUComponents(t *testing.T) {
	p := DefaultTrendOUParams()
	p.TrendParams = eagerTrend()
	g, err := NewTrendyOU(p)
	require.NoError(t, err)
	for s := 0; s < 300; s++ {
		v, err := g.GetData()
		require.NoError(t, err)
		for i := range v {
			assert.InDelta(t, g.TrendComponent(i)+g.OUComponent(i), v[i], 1e-12)
		}
	}
}
