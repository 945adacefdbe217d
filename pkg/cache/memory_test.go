package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type block struct {
	Start  int       `json:"start"`
	Prices []float64 `json:"prices"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := block{Start: 4, Prices: []float64{1.5, 2.5}}
	require.NoError(t, mc.Set(ctx, "window:a:4:8", in, time.Minute))

	var out block
	require.NoError(t, mc.Get(ctx, "window:a:4:8", &out))
	assert.Equal(t, in, out)

	// stored values are copies
	in.Prices[0] = 99
	require.NoError(t, mc.Get(ctx, "window:a:4:8", &out))
	assert.Equal(t, 1.5, out.Prices[0])

	assert.ErrorIs(t, mc.Get(ctx, "missing", &out), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)

	// overwriting an existing key never evicts
	require.NoError(t, mc.Set(ctx, "c", 4, 0))
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"window:x:0:10", "window:x:10:20", "window:y:0:10"} {
		require.NoError(t, mc.Set(ctx, k, k, 0))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("window:x:")))
	assert.Equal(t, 1, mc.Len())

	var s string
	require.NoError(t, mc.Get(ctx, "window:y:0:10", &s))
	assert.Equal(t, "window:y:0:10", s)

	require.NoError(t, mc.DeleteByPattern(ctx, "window:y:0:10"))
	assert.Equal(t, 0, mc.Len())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "window:ab:3:9", GenerateKeyWithParams("window:ab", 3, 9))
	assert.Len(t, HashKey("data.h5|/g|prices"), 32)
	assert.Equal(t, HashKey("a"), HashKey("a"))
	assert.NotEqual(t, HashKey("a"), HashKey("b"))
}

func TestMemoryCacheByteBudget(t *testing.T) {
	// "\"aaaa\"" encodes to 6 bytes
	mc := NewMemoryCache(WithMemoryMaxBytes(14))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "aaaa", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "bbbb", 0))
	assert.Equal(t, int64(12), mc.Bytes())

	require.NoError(t, mc.Set(ctx, "c", "cccc", 0))
	assert.Equal(t, 2, mc.Len())
	assert.Equal(t, int64(12), mc.Bytes())
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "a", &s), ErrCacheMiss)

	// replacing a key releases its old size first
	require.NoError(t, mc.Set(ctx, "c", "cc", 0))
	assert.Equal(t, int64(10), mc.Bytes())

	assert.ErrorIs(t, mc.Set(ctx, "big", "0123456789abcdef", 0), ErrTooLarge)

	require.NoError(t, mc.Delete(ctx, "b", "c"))
	assert.Equal(t, int64(0), mc.Bytes())
}
