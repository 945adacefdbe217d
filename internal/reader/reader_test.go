package reader

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
	internalrepo "SynthFeed/internal/repository"
)

type countingMetrics struct {
	mu      sync.Mutex
	refills int
	rows    int
}

func (m *countingMetrics) RecordTick(string) {}
func (m *countingMetrics) RecordWindowRefill(_ string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refills++
	m.rows += rows
}
func (m *countingMetrics) RecordPublished(string)          {}
func (m *countingMetrics) RecordError(string)              {}
func (m *countingMetrics) RecordLastPrice(string, float64) {}
func (m *countingMetrics) RecordLatency(string, float64)   {}

// fixture builds n rows with timestamp 10*i, price i and features
// [i*100 + j] for j < featCols.
func fixture(t *testing.T, n, priceCols, featCols int) *internalrepo.MemoryStore {
	t.Helper()
	ts := make([]int64, n)
	prices := make([][]float64, n)
	var feats [][]float64
	if featCols > 0 {
		feats = make([][]float64, n)
	}
	for i := 0; i < n; i++ {
		ts[i] = int64(10 * i)
		prices[i] = make([]float64, priceCols)
		for j := range prices[i] {
			prices[i][j] = float64(i) + float64(j)/10
		}
		if featCols > 0 {
			feats[i] = make([]float64, featCols)
			for j := range feats[i] {
				feats[i][j] = float64(i*100 + j)
			}
		}
	}
	s, err := internalrepo.NewMemoryStore(ts, prices, feats)
	require.NoError(t, err)
	return s
}

func TestSingleBoundsAndDataEnd(t *testing.T) {
	m := &countingMetrics{}
	r, err := NewSingle(fixture(t, 100, 1, 3),
		WithStartTime(200), WithEndTime(500), WithCacheSize(7), WithMetrics(m))
	require.NoError(t, err)

	const k = 30
	assert.Equal(t, k, r.Rows())
	assert.Equal(t, 3, r.NFeats())
	assert.Equal(t, 1, r.NAssets())
	assert.True(t, r.IsDateTime())
	assert.EqualValues(t, 200, r.CurrentTime())

	for i := 0; i < k; i++ {
		require.False(t, r.DataEnd(), "row %d", i)
		v, err := r.GetData()
		require.NoError(t, err)
		row := 20 + i
		assert.Equal(t, []float64{float64(row * 100), float64(row*100 + 1), float64(row*100 + 2)}, []float64(v))
		assert.Equal(t, float64(row), r.CurrentPrices()[0])
		assert.EqualValues(t, 10*row, r.CurrentTime())
	}
	assert.True(t, r.DataEnd())

	_, err = r.GetData()
	assert.ErrorIs(t, err, models.ErrDataEnd)

	assert.Equal(t, 5, m.refills)
	assert.Equal(t, k, m.rows)
}

func TestSingleResetReplays(t *testing.T) {
	r, err := NewSingle(fixture(t, 50, 1, 0), WithCacheSize(4))
	require.NoError(t, err)

	first := make([]float64, 0, 50)
	for !r.DataEnd() {
		v, err := r.GetData()
		require.NoError(t, err)
		first = append(first, v[0])
	}
	require.Len(t, first, 50)

	require.NoError(t, r.Reset())
	assert.False(t, r.DataEnd())
	assert.EqualValues(t, 0, r.CurrentTime())
	for i := 0; i < 50; i++ {
		v, err := r.GetData()
		require.NoError(t, err)
		assert.Equal(t, first[i], v[0])
		// without a feature column the data row is the price
		assert.Equal(t, r.CurrentPrices()[0], v[0])
	}
}

func TestSingleRejectsBadConfig(t *testing.T) {
	store := fixture(t, 10, 1, 0)
	tests := []struct {
		name string
		opts []Option
	}{
		{"empty range", []Option{WithStartTime(1000)}},
		{"inverted range", []Option{WithStartTime(50), WithEndTime(20)}},
		{"zero cache", []Option{WithCacheSize(0)}},
		{"wrong asset count", []Option{WithAssets(models.NewAssets("a", "b"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSingle(store, tt.opts...)
			assert.ErrorIs(t, err, models.ErrConfiguration)
		})
	}

	_, err := NewSingle(fixture(t, 10, 2, 0))
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = NewSingle(nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestMultiMatrix(t *testing.T) {
	r, err := NewMulti(fixture(t, 20, 3, 6), WithCacheSize(6),
		WithAssets(models.NewAssets("a", "b", "c")))
	require.NoError(t, err)
	assert.Equal(t, 3, r.NAssets())
	assert.Equal(t, 2, r.NFeats())
	assert.Equal(t, []string{"a", "b", "c"}, r.Assets().Names())

	for i := 0; i < 20; i++ {
		m, err := r.GetData()
		require.NoError(t, err)
		require.Equal(t, 3, m.Rows)
		require.Equal(t, 2, m.Cols)
		for a := 0; a < 3; a++ {
			for f := 0; f < 2; f++ {
				assert.Equal(t, float64(i*100+a*2+f), m.At(a, f))
			}
			assert.InDelta(t, float64(i)+float64(a)/10, r.CurrentPrices()[a], 1e-12)
		}
	}
	assert.True(t, r.DataEnd())
	_, err = r.GetData()
	assert.ErrorIs(t, err, models.ErrDataEnd)

	require.NoError(t, r.Reset())
	m, err := r.GetData()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, m.Row(0))
}

func TestMultiWithoutFeatures(t *testing.T) {
	r, err := NewMulti(fixture(t, 5, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, r.NFeats())
	m, err := r.GetData()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.1}, m.Data)
}

func TestMultiRejectsUnevenFeatures(t *testing.T) {
	_, err := NewMulti(fixture(t, 5, 2, 5))
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

var errDisk = errors.New("disk gone")

type flakyStore struct {
	repository.RowStore
	reads  int
	failAt int
}

func (s *flakyStore) ReadWindow(start, end int) (*models.RowBlock, error) {
	s.reads++
	if s.reads == s.failAt {
		return nil, errDisk
	}
	return s.RowStore.ReadWindow(start, end)
}

func TestRefillErrorIsFatal(t *testing.T) {
	// read 1 loads rows [0, 4) at open; read 2 would load [4, 8)
	store := &flakyStore{RowStore: fixture(t, 10, 1, 0), failAt: 2}
	r, err := NewSingle(store, WithCacheSize(4))
	require.NoError(t, err)

	var got []float64
	for i := 0; i < 4; i++ {
		v, err := r.GetData()
		require.NoError(t, err, "row %d", i)
		got = append(got, v[0])
	}
	assert.Equal(t, []float64{0, 1, 2, 3}, got)
	assert.Equal(t, 1, store.reads)

	_, err = r.GetData()
	require.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "refill window at row 4")
	assert.Equal(t, 3., r.CurrentData()[0])

	// later calls keep failing without touching the store again
	for i := 0; i < 3; i++ {
		_, err = r.GetData()
		require.ErrorIs(t, err, errDisk)
	}
	assert.Equal(t, 2, store.reads)

	// reset clears the failure and replays from the first row
	require.NoError(t, r.Reset())
	got = got[:0]
	for !r.DataEnd() {
		v, err := r.GetData()
		require.NoError(t, err)
		got = append(got, v[0])
	}
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}
