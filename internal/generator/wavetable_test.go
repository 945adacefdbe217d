package generator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaveTableTracksSine(t *testing.T) {
	const dX = 0.01
	o := NewWaveTableOsc(1.5, dX)
	for i := 0; i < 1000; i++ {
		want := math.Sin(2 * math.Pi * 1.5 * dX * float64(i))
		assert.InDelta(t, want, o.Process(), 1e-5, "sample %d", i)
	}
}

func TestWaveTableNegativeFrequency(t *testing.T) {
	o := NewWaveTableOsc(-1, 0.1)
	for i := 0; i < 50; i++ {
		want := math.Sin(-2 * math.Pi * 0.1 * float64(i))
		assert.InDelta(t, want, o.Process(), 1e-5)
	}
}

func TestWaveTableSetFrequencyKeepsPhase(t *testing.T) {
	o := NewWaveTableOsc(1, 0.25)
	o.Process()
	o.SetFrequency(2, 0.25)
	// phase is 0.25 cycles, so the next sample is the sine peak.
	assert.InDelta(t, 1., o.Process(), 1e-9)
	assert.InDelta(t, 1., o.Last(), 1e-9)
}
