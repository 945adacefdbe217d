package models

// RowBlock is a contiguous slice of dataset rows [Start, Start+Len()).
// Prices and Features are row-major with PriceCols/FeatureCols values per row.
type RowBlock struct {
	Start      int       `json:"start"`
	Prices     []float64 `json:"prices"`
	Features   []float64 `json:"features,omitempty"`
	Timestamps []int64   `json:"timestamps"`
}

// Len returns the number of rows in the block.
func (b *RowBlock) Len() int { return len(b.Timestamps) }

// End returns the first row index past the block.
func (b *RowBlock) End() int { return b.Start + len(b.Timestamps) }

// Contains reports whether global row i is inside the block.
func (b *RowBlock) Contains(i int) bool { return i >= b.Start && i < b.End() }
