package reader

import (
	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
)

// Single reads one instrument: one price per row plus an optional feature row.
type Single struct {
	*fileSource
	assets models.Assets
	data   models.PriceVector
}

// NewSingle opens a single-asset reader over store.
func NewSingle(store repository.RowStore, opts ...Option) (*Single, error) {
	const kind = "hdf_single"
	if store != nil && store.PriceCols() > 1 {
		return nil, models.NewConfigError(kind, "price_key", "expected one price column, dataset has %d", store.PriceCols())
	}
	fs, err := newFileSource(kind, store, opts)
	if err != nil {
		return nil, err
	}
	assets, err := fs.resolveAssets(kind, 1)
	if err != nil {
		return nil, err
	}
	width := store.FeatureCols()
	if width == 0 {
		width = 1
	}
	return &Single{fileSource: fs, assets: assets, data: make(models.PriceVector, width)}, nil
}

func (s *Single) NAssets() int                    { return 1 }
func (s *Single) NFeats() int                     { return len(s.data) }
func (s *Single) Assets() models.Assets           { return s.assets }
func (s *Single) CurrentData() models.PriceVector { return s.data }

// GetData emits the next row. The returned vector is reused by later calls.
func (s *Single) GetData() (models.PriceVector, error) {
	err := s.win.step(func(b *models.RowBlock, off int) {
		s.prices[0] = b.Prices[off]
		if len(b.Features) > 0 {
			copy(s.data, b.Features[off*len(s.data):(off+1)*len(s.data)])
		} else {
			s.data[0] = s.prices[0]
		}
		s.time = b.Timestamps[off]
	})
	if err != nil {
		return nil, err
	}
	return s.data, nil
}

func (s *Single) Reset() error {
	if err := s.rewind(); err != nil {
		return err
	}
	for i := range s.data {
		s.data[i] = 0
	}
	return nil
}

var _ repository.TickSource = (*Single)(nil)
