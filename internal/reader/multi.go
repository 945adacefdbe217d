package reader

import (
	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
)

// Multi reads A assets per row. The feature row holds A*F values and is
// exposed as an A x F matrix.
type Multi struct {
	*fileSource
	assets models.Assets
	data   models.PriceMatrix
}

// NewMulti opens a multi-asset reader over store.
func NewMulti(store repository.RowStore, opts ...Option) (*Multi, error) {
	const kind = "hdf_multi"
	fs, err := newFileSource(kind, store, opts)
	if err != nil {
		return nil, err
	}
	nAssets := store.PriceCols()
	nFeats := 1
	if w := store.FeatureCols(); w > 0 {
		if w%nAssets != 0 {
			return nil, models.NewConfigError(kind, "feature_key", "%d feature columns do not split across %d assets", w, nAssets)
		}
		nFeats = w / nAssets
	}
	assets, err := fs.resolveAssets(kind, nAssets)
	if err != nil {
		return nil, err
	}
	return &Multi{fileSource: fs, assets: assets, data: models.NewPriceMatrix(nAssets, nFeats)}, nil
}

func (s *Multi) NAssets() int                    { return s.data.Rows }
func (s *Multi) NFeats() int                     { return s.data.Cols }
func (s *Multi) Assets() models.Assets           { return s.assets }
func (s *Multi) CurrentData() models.PriceMatrix { return s.data }

// GetData emits the next row as an assets x features matrix. The matrix
// storage is reused by later calls.
func (s *Multi) GetData() (models.PriceMatrix, error) {
	a := s.data.Rows
	err := s.win.step(func(b *models.RowBlock, off int) {
		copy(s.prices, b.Prices[off*a:(off+1)*a])
		if len(b.Features) > 0 {
			w := len(s.data.Data)
			copy(s.data.Data, b.Features[off*w:(off+1)*w])
		} else {
			copy(s.data.Data, s.prices)
		}
		s.time = b.Timestamps[off]
	})
	if err != nil {
		return models.PriceMatrix{}, err
	}
	return s.data, nil
}

func (s *Multi) Reset() error {
	if err := s.rewind(); err != nil {
		return err
	}
	for i := range s.data.Data {
		s.data.Data[i] = 0
	}
	return nil
}

var _ repository.BidAskSource = (*Multi)(nil)
