package generator

import (
	"math/rand/v2"

	"SynthFeed/internal/domain/models"
)

type trendSpec struct {
	prob           float64
	minLen, maxLen int
	dyMin, dyMax   float64
}

// trendMachine runs one NotTrending/Trending state machine per asset.
//
// A trend lasts a number of steps drawn uniformly from [minLen, maxLen]. The
// state is cleared on the last trending step, and the step after it is always
// flat, so consecutive same-direction trending steps never exceed maxLen.
type trendMachine struct {
	specs    []trendSpec
	state    []models.RegimeState
	cooldown []bool
}

func newTrendMachine(prob []float64, minLen, maxLen []int, dyMin, dyMax []float64) *trendMachine {
	m := &trendMachine{
		specs:    make([]trendSpec, len(prob)),
		state:    make([]models.RegimeState, len(prob)),
		cooldown: make([]bool, len(prob)),
	}
	for i := range prob {
		m.specs[i] = trendSpec{prob: prob[i], minLen: minLen[i], maxLen: maxLen[i], dyMin: dyMin[i], dyMax: dyMax[i]}
	}
	return m
}

// step advances asset i and returns the trend direction and the unsigned
// increment for this step. dir is Flat when the asset is not trending.
func (m *trendMachine) step(i int, rng *rand.Rand) (models.Direction, float64) {
	st := &m.state[i]
	sp := m.specs[i]
	st.Moved = models.Flat
	if m.cooldown[i] {
		m.cooldown[i] = false
		return models.Flat, 0
	}
	if !st.Trending {
		if rng.Float64() >= sp.prob {
			return models.Flat, 0
		}
		dir := models.Up
		if rng.IntN(2) == 0 {
			dir = models.Down
		}
		*st = models.RegimeState{
			Trending:  true,
			Direction: dir,
			Remaining: sp.minLen + rng.IntN(sp.maxLen-sp.minLen+1),
		}
	}
	st.Remaining--
	dir, dy := st.Direction, uniform(rng, sp.dyMin, sp.dyMax)
	if st.Remaining == 0 {
		*st = models.RegimeState{}
		m.cooldown[i] = true
	}
	st.Moved = dir
	return dir, dy
}

func (m *trendMachine) regime(i int) models.RegimeState { return m.state[i] }

func (m *trendMachine) reset() {
	for i := range m.state {
		m.state[i] = models.RegimeState{}
		m.cooldown[i] = false
	}
}

func validateTrend(kind string, prob []float64, minLen, maxLen []int, dyMin, dyMax []float64) error {
	if err := checkEach(kind, "trend_prob", prob, probability, "in [0, 1]"); err != nil {
		return err
	}
	for i := range minLen {
		if minLen[i] < 1 {
			return models.NewConfigError(kind, "min_period", "value %d at index %d must be at least 1", minLen[i], i)
		}
		if minLen[i] > maxLen[i] {
			return models.NewConfigError(kind, "max_period", "value %d at index %d is below min_period %d", maxLen[i], i, minLen[i])
		}
		if dyMin[i] > dyMax[i] {
			return models.NewConfigError(kind, "dy_max", "value %g at index %d is below dy_min %g", dyMax[i], i, dyMin[i])
		}
	}
	return nil
}
