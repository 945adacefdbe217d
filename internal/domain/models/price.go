package models

import "fmt"

// Asset describes one instrument produced by a data source.
type Asset struct {
	Name       string  `json:"name" yaml:"name"`
	Code       string  `json:"code,omitempty" yaml:"code"`
	Exchange   string  `json:"exchange,omitempty" yaml:"exchange"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier"`
}

// Assets is an ordered asset list. Order defines the index of every
// per-asset value a source produces.
type Assets []Asset

// NewAssets builds an asset list from names.
func NewAssets(names ...string) Assets {
	out := make(Assets, len(names))
	for i, n := range names {
		out[i] = Asset{Name: n, Code: n, Multiplier: 1}
	}
	return out
}

// NumberedAssets names n assets with a common prefix: prefix0, prefix1, ...
func NumberedAssets(prefix string, n int) Assets {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return NewAssets(names...)
}

// Names returns asset names in index order.
func (a Assets) Names() []string {
	out := make([]string, len(a))
	for i, asset := range a {
		out[i] = asset.Name
	}
	return out
}

// Index returns the position of the named asset or -1.
func (a Assets) Index(name string) int {
	for i, asset := range a {
		if asset.Name == name {
			return i
		}
	}
	return -1
}

// PriceVector holds one value per feature (or per asset).
//
// Vectors returned by a source are views into the source's own buffer and stay
// valid only until the next GetData or Reset on that source. Clone before keeping one.
type PriceVector []float64

// Clone returns an independent copy.
func (v PriceVector) Clone() PriceVector {
	if v == nil {
		return nil
	}
	out := make(PriceVector, len(v))
	copy(out, v)
	return out
}

// PriceMatrix is a row-major matrix with one row per asset.
type PriceMatrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewPriceMatrix allocates a zeroed rows x cols matrix.
func NewPriceMatrix(rows, cols int) PriceMatrix {
	return PriceMatrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns element (i, j).
func (m PriceMatrix) At(i, j int) float64 { return m.Data[i*m.Cols+j] }

// Row returns row i as a slice sharing the matrix storage.
func (m PriceMatrix) Row(i int) []float64 { return m.Data[i*m.Cols : (i+1)*m.Cols] }

// Clone returns an independent copy.
func (m PriceMatrix) Clone() PriceMatrix {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return PriceMatrix{Rows: m.Rows, Cols: m.Cols, Data: data}
}
