package repository

import (
	"fmt"

	"SynthFeed/internal/domain/models"
	domrepo "SynthFeed/internal/domain/repository"
)

// MemoryStore implements RowStore over in-memory columns.
type MemoryStore struct {
	timestamps []int64
	prices     []float64
	features   []float64
	priceCols  int
	featCols   int
}

// NewMemoryStore builds a store from per-row price and feature values.
// features may be nil. Every row must have the same width.
func NewMemoryStore(timestamps []int64, prices [][]float64, features [][]float64) (*MemoryStore, error) {
	if len(prices) != len(timestamps) {
		return nil, fmt.Errorf("memory store: %d price rows for %d timestamps", len(prices), len(timestamps))
	}
	if features != nil && len(features) != len(timestamps) {
		return nil, fmt.Errorf("memory store: %d feature rows for %d timestamps", len(features), len(timestamps))
	}
	s := &MemoryStore{timestamps: append([]int64(nil), timestamps...)}
	var err error
	if s.prices, s.priceCols, err = flatten("prices", prices); err != nil {
		return nil, err
	}
	if s.features, s.featCols, err = flatten("features", features); err != nil {
		return nil, err
	}
	return s, nil
}

func flatten(name string, rows [][]float64) ([]float64, int, error) {
	if len(rows) == 0 {
		return nil, 0, nil
	}
	cols := len(rows[0])
	out := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, 0, fmt.Errorf("memory store: %s row %d has %d values, want %d", name, i, len(r), cols)
		}
		out = append(out, r...)
	}
	return out, cols, nil
}

func (s *MemoryStore) Len() int         { return len(s.timestamps) }
func (s *MemoryStore) PriceCols() int   { return s.priceCols }
func (s *MemoryStore) FeatureCols() int { return s.featCols }

func (s *MemoryStore) ReadWindow(start, end int) (*models.RowBlock, error) {
	if end > len(s.timestamps) {
		end = len(s.timestamps)
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("memory store: invalid window [%d, %d)", start, end)
	}
	blk := &models.RowBlock{
		Start:      start,
		Timestamps: append([]int64(nil), s.timestamps[start:end]...),
		Prices:     append([]float64(nil), s.prices[start*s.priceCols:end*s.priceCols]...),
	}
	if s.featCols > 0 {
		blk.Features = append([]float64(nil), s.features[start*s.featCols:end*s.featCols]...)
	}
	return blk, nil
}

func (s *MemoryStore) TimestampAt(i int) (int64, error) {
	if i < 0 || i >= len(s.timestamps) {
		return 0, fmt.Errorf("memory store: row %d out of range", i)
	}
	return s.timestamps[i], nil
}

func (s *MemoryStore) Close() error { return nil }

var _ domrepo.RowStore = (*MemoryStore)(nil)
