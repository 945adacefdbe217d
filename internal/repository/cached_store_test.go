package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
	"SynthFeed/pkg/cache"
)

type countingStore struct {
	*MemoryStore
	reads int
}

func (s *countingStore) ReadWindow(start, end int) (*models.RowBlock, error) {
	s.reads++
	return s.MemoryStore.ReadWindow(start, end)
}

func TestCachedStoreServesRepeatReads(t *testing.T) {
	mem, err := NewMemoryStore(
		[]int64{1, 2, 3, 4},
		[][]float64{{1}, {2}, {3}, {4}},
		[][]float64{{10, 11}, {20, 21}, {30, 31}, {40, 41}},
	)
	require.NoError(t, err)
	inner := &countingStore{MemoryStore: mem}

	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachedStore(inner, mc, "mem|a", time.Minute)

	first, err := s.ReadWindow(1, 3)
	require.NoError(t, err)
	second, err := s.ReadWindow(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, first, second)
	assert.Equal(t, []float64{20, 21, 30, 31}, second.Features)

	// clamped end shares the key with the explicit one
	_, err = s.ReadWindow(2, 100)
	require.NoError(t, err)
	_, err = s.ReadWindow(2, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads)

	// datasets with different ids do not share entries
	other := NewCachedStore(inner, mc, "mem|b", time.Minute)
	_, err = other.ReadWindow(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.reads)

	require.NoError(t, s.Invalidate(context.Background()))
	_, err = s.ReadWindow(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.reads)
	_, err = other.ReadWindow(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.reads)
}
