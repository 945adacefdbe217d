package generator

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolGeneratorDeterministic(t *testing.T) {
	a := NewBoolGenerator(7)
	b := NewBoolGenerator(7)
	for i := 0; i < 500; i++ {
		require.Equal(t, a.Next(), b.Next(), "flip %d", i)
	}
}

func TestBoolGeneratorReset(t *testing.T) {
	g := NewBoolGenerator(99)
	first := make([]bool, 130)
	for i := range first {
		first[i] = g.Next()
	}
	g.Reset()
	for i := range first {
		assert.Equal(t, first[i], g.Next(), "flip %d", i)
	}
}

func TestBoolGeneratorBalanced(t *testing.T) {
	g := NewBoolGenerator(12345)
	heads := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if g.Next() {
			heads++
		}
	}
	assert.InDelta(t, n/2, heads, n*0.03)
}

func TestBoolGeneratorFloat64Range(t *testing.T) {
	g := NewBoolGenerator(0)
	for i := 0; i < 1000; i++ {
		f := g.Float64()
		require.GreaterOrEqual(t, f, 0.)
		require.Less(t, f, 1.)
	}
}

func TestBoolGeneratorAsRandSource(t *testing.T) {
	r := rand.New(NewBoolGenerator(3))
	for i := 0; i < 100; i++ {
		n := r.IntN(10)
		require.True(t, n >= 0 && n < 10)
	}
}
