package repository

import "SynthFeed/internal/domain/models"

// Source is the part of the data source contract shared by every source.
//
// A source is stepped by a single owner. Vectors and matrices it returns are
// views into its own buffers and stay valid until the next GetData or Reset.
type Source interface {
	NAssets() int
	NFeats() int
	Assets() models.Assets
	// CurrentPrices returns the latest price per asset without advancing.
	CurrentPrices() models.PriceVector
	// Reset rewinds the source to its initial condition.
	Reset() error
	// CurrentTime is a step counter for generators and a row timestamp for
	// file-backed sources.
	CurrentTime() int64
	IsDateTime() bool
	// DataEnd reports that the next GetData has nothing to return.
	DataEnd() bool
}

// TickSource produces one dense vector per step.
type TickSource interface {
	Source
	GetData() (models.PriceVector, error)
	CurrentData() models.PriceVector
}

// BidAskSource produces an assets x features matrix per step.
type BidAskSource interface {
	Source
	GetData() (models.PriceMatrix, error)
	CurrentData() models.PriceMatrix
}

// Feed is a source as driven by the feed runner: Step advances it and returns
// the flattened data row, borrowed like GetData's result.
type Feed interface {
	Source
	Name() string
	Step() ([]float64, error)
	Close() error
}
