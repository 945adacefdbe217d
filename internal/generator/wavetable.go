package generator

import "math"

const waveTableSize = 2048

// sineTable holds one sine cycle plus a guard sample for interpolation.
var sineTable = func() []float64 {
	t := make([]float64, waveTableSize+1)
	for i := range t {
		t[i] = math.Sin(2 * math.Pi * float64(i) / waveTableSize)
	}
	return t
}()

// WaveTableOsc is a table-lookup sine oscillator with a phase accumulator.
// Phase is kept in cycles, in [0, 1).
type WaveTableOsc struct {
	phase float64
	incr  float64
	last  float64
}

// NewWaveTableOsc returns an oscillator advancing freq*dX cycles per sample.
func NewWaveTableOsc(freq, dX float64) *WaveTableOsc {
	o := &WaveTableOsc{}
	o.SetFrequency(freq, dX)
	return o
}

// SetFrequency changes the step without touching the phase, so the output stays continuous.
func (o *WaveTableOsc) SetFrequency(freq, dX float64) { o.incr = freq * dX }

// SetPhase moves the accumulator to phase (in cycles).
func (o *WaveTableOsc) SetPhase(phase float64) {
	o.phase = wrapPhase(phase)
	o.last = 0
}

// Process returns the output at the current phase and advances it.
func (o *WaveTableOsc) Process() float64 {
	pos := o.phase * waveTableSize
	i := int(pos)
	frac := pos - float64(i)
	o.last = sineTable[i] + frac*(sineTable[i+1]-sineTable[i])
	o.phase = wrapPhase(o.phase + o.incr)
	return o.last
}

// Last returns the most recent output.
func (o *WaveTableOsc) Last() float64 { return o.last }

func wrapPhase(p float64) float64 {
	p -= math.Floor(p)
	if p >= 1 {
		p = 0
	}
	return p
}
