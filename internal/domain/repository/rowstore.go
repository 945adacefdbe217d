package repository

import "SynthFeed/internal/domain/models"

// RowStore provides read-only, row-indexed access to a time-ordered dataset.
// Rows are sorted by timestamp ascending.
type RowStore interface {
	Len() int
	PriceCols() int
	FeatureCols() int
	// ReadWindow returns rows [start, end). end is clamped to Len().
	ReadWindow(start, end int) (*models.RowBlock, error)
	TimestampAt(i int) (int64, error)
	Close() error
}
