package repository

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gonum.org/v1/hdf5"

	"SynthFeed/internal/domain/models"
	domrepo "SynthFeed/internal/domain/repository"
	applogger "SynthFeed/pkg/logger"
)

// DatasetKeys names the datasets of one instrument inside a file or table.
// Feature is optional.
type DatasetKeys struct {
	Group     string `yaml:"group_key" json:"group_key"`
	Price     string `yaml:"price_key" json:"price_key"`
	Feature   string `yaml:"feature_key" json:"feature_key"`
	Timestamp string `yaml:"timestamp_key" json:"timestamp_key"`
}

// Validate checks that the required keys are set.
func (k DatasetKeys) Validate() error {
	switch {
	case k.Group == "":
		return errors.New("group_key is required")
	case k.Price == "":
		return errors.New("price_key is required")
	case k.Timestamp == "":
		return errors.New("timestamp_key is required")
	}
	return nil
}

// hdf5Column is one open dataset with shape (rows, cols). A 1-D dataset has
// one column.
type hdf5Column struct {
	ds   *hdf5.Dataset
	rank int
	rows int
	cols int
}

// HDF5Store implements RowStore over one group of an HDF5 file.
type HDF5Store struct {
	mu         sync.Mutex
	path       string
	keys       DatasetKeys
	file       *hdf5.File
	group      *hdf5.Group
	prices     *hdf5Column
	features   *hdf5Column
	timestamps *hdf5Column
	l          *applogger.Logger
}

// OpenHDF5Store opens path read-only and validates the datasets named by keys.
// Prices and features must be float64, timestamps int64.
func OpenHDF5Store(path string, keys DatasetKeys) (*HDF5Store, error) {
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("hdf5 store: %w", err)
	}
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("hdf5 open %s: %w", path, err)
	}
	s := &HDF5Store{path: path, keys: keys, file: f}
	if err := s.open(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *HDF5Store) open() error {
	if !s.file.LinkExists(s.keys.Group) {
		return fmt.Errorf("hdf5 %s: group %q not found", s.path, s.keys.Group)
	}
	g, err := s.file.OpenGroup(s.keys.Group)
	if err != nil {
		return fmt.Errorf("hdf5 %s: open group %q: %w", s.path, s.keys.Group, err)
	}
	s.group = g

	if s.prices, err = s.openColumn(s.keys.Price, hdf5.T_NATIVE_DOUBLE); err != nil {
		return err
	}
	if s.timestamps, err = s.openColumn(s.keys.Timestamp, hdf5.T_NATIVE_INT64); err != nil {
		return err
	}
	if s.timestamps.cols != 1 {
		return fmt.Errorf("hdf5 %s: timestamp dataset %q has %d columns, want 1", s.path, s.keys.Timestamp, s.timestamps.cols)
	}
	if s.prices.rows != s.timestamps.rows {
		return fmt.Errorf("hdf5 %s: %d price rows for %d timestamps", s.path, s.prices.rows, s.timestamps.rows)
	}
	if s.keys.Feature != "" {
		if s.features, err = s.openColumn(s.keys.Feature, hdf5.T_NATIVE_DOUBLE); err != nil {
			return err
		}
		if s.features.rows != s.timestamps.rows {
			return fmt.Errorf("hdf5 %s: %d feature rows for %d timestamps", s.path, s.features.rows, s.timestamps.rows)
		}
	}
	return nil
}

func (s *HDF5Store) openColumn(name string, want *hdf5.Datatype) (*hdf5Column, error) {
	if !s.group.LinkExists(name) {
		return nil, fmt.Errorf("hdf5 %s: dataset %s/%s not found", s.path, s.keys.Group, name)
	}
	ds, err := s.group.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("hdf5 %s: open dataset %s: %w", s.path, name, err)
	}
	col := &hdf5Column{ds: ds}

	dt, err := ds.Datatype()
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("hdf5 %s: datatype of %s: %w", s.path, name, err)
	}
	ok := dt.Equal(want)
	_ = dt.Close()
	if !ok {
		_ = ds.Close()
		return nil, fmt.Errorf("hdf5 %s: dataset %s has unsupported element type", s.path, name)
	}

	space := ds.Space()
	dims, _, err := space.SimpleExtentDims()
	_ = space.Close()
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("hdf5 %s: dims of %s: %w", s.path, name, err)
	}
	switch len(dims) {
	case 1:
		col.rank, col.rows, col.cols = 1, int(dims[0]), 1
	case 2:
		col.rank, col.rows, col.cols = 2, int(dims[0]), int(dims[1])
	default:
		_ = ds.Close()
		return nil, fmt.Errorf("hdf5 %s: dataset %s has rank %d, want 1 or 2", s.path, name, len(dims))
	}
	return col, nil
}

// SetLogger injects a structured logger.
func (s *HDF5Store) SetLogger(l *applogger.Logger) { s.l = l }

func (s *HDF5Store) Len() int       { return s.timestamps.rows }
func (s *HDF5Store) PriceCols() int { return s.prices.cols }

func (s *HDF5Store) FeatureCols() int {
	if s.features == nil {
		return 0
	}
	return s.features.cols
}

// ID identifies the dataset for shared caches.
func (s *HDF5Store) ID() string {
	return fmt.Sprintf("hdf5|%s|%s|%s|%s|%s", s.path, s.keys.Group, s.keys.Price, s.keys.Feature, s.keys.Timestamp)
}

func (s *HDF5Store) ReadWindow(start, end int) (*models.RowBlock, error) {
	if end > s.Len() {
		end = s.Len()
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("hdf5 %s: invalid window [%d, %d)", s.path, start, end)
	}
	blk := &models.RowBlock{Start: start}
	n := end - start
	if n == 0 {
		return blk, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blk.Timestamps = make([]int64, n)
	if err := readRows(s.timestamps, start, n, &blk.Timestamps); err != nil {
		return nil, s.fail("timestamps", start, err)
	}
	blk.Prices = make([]float64, n*s.prices.cols)
	if err := readRows(s.prices, start, n, &blk.Prices); err != nil {
		return nil, s.fail("prices", start, err)
	}
	if s.features != nil {
		blk.Features = make([]float64, n*s.features.cols)
		if err := readRows(s.features, start, n, &blk.Features); err != nil {
			return nil, s.fail("features", start, err)
		}
	}
	return blk, nil
}

func (s *HDF5Store) TimestampAt(i int) (int64, error) {
	if i < 0 || i >= s.Len() {
		return 0, fmt.Errorf("hdf5 %s: row %d out of range", s.path, i)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]int64, 1)
	if err := readRows(s.timestamps, i, 1, &buf); err != nil {
		return 0, s.fail("timestamps", i, err)
	}
	return buf[0], nil
}

func (s *HDF5Store) fail(dataset string, row int, err error) error {
	if s.l != nil {
		s.l.Error("hdf5 read error",
			applogger.String("path", s.path),
			applogger.String("group", s.keys.Group),
			applogger.String("dataset", dataset),
			applogger.Int("row", row),
			applogger.Error(err),
		)
	}
	return fmt.Errorf("hdf5 %s: read %s at row %d: %w", s.path, dataset, row, err)
}

// readRows reads rows [start, start+n) of col into buf, which must point to a
// slice of n*cols elements.
func readRows(col *hdf5Column, start, n int, buf interface{}) error {
	fspace := col.ds.Space()
	defer fspace.Close()

	offset := []uint{uint(start)}
	count := []uint{uint(n)}
	if col.rank == 2 {
		offset = append(offset, 0)
		count = append(count, uint(col.cols))
	}
	if err := fspace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return fmt.Errorf("select hyperslab: %w", err)
	}
	mspace, err := hdf5.CreateSimpleDataspace([]uint{uint(n * col.cols)}, nil)
	if err != nil {
		return fmt.Errorf("memory dataspace: %w", err)
	}
	defer mspace.Close()

	return col.ds.ReadSubset(buf, mspace, fspace)
}

// Close releases datasets, the group and the file.
func (s *HDF5Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, c := range []*hdf5Column{s.prices, s.features, s.timestamps} {
		if c != nil {
			errs = append(errs, c.ds.Close())
		}
	}
	s.prices, s.features, s.timestamps = nil, nil, nil
	if s.group != nil {
		errs = append(errs, s.group.Close())
		s.group = nil
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}
	return errors.Join(errs...)
}

// WriteHDF5Dataset writes one instrument group to path, creating the file
// when it does not exist. Prices and features are (rows, cols) matrices;
// features may be nil when keys.Feature is empty.
func WriteHDF5Dataset(path string, keys DatasetKeys, timestamps []int64, prices, features [][]float64) error {
	if err := keys.Validate(); err != nil {
		return fmt.Errorf("hdf5 write: %w", err)
	}
	if len(timestamps) == 0 {
		return errors.New("hdf5 write: no rows")
	}
	if len(prices) != len(timestamps) {
		return fmt.Errorf("hdf5 write: %d price rows for %d timestamps", len(prices), len(timestamps))
	}
	if keys.Feature != "" && len(features) != len(timestamps) {
		return fmt.Errorf("hdf5 write: %d feature rows for %d timestamps", len(features), len(timestamps))
	}

	var f *hdf5.File
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = hdf5.OpenFile(path, hdf5.F_ACC_RDWR)
	} else {
		f, err = hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	}
	if err != nil {
		return fmt.Errorf("hdf5 write %s: %w", path, err)
	}
	defer f.Close()

	g, err := f.CreateGroup(keys.Group)
	if err != nil {
		return fmt.Errorf("hdf5 write %s: create group %q: %w", path, keys.Group, err)
	}
	defer g.Close()

	ts := append([]int64(nil), timestamps...)
	if err := writeDataset(g, keys.Timestamp, hdf5.T_NATIVE_INT64, []uint{uint(len(ts))}, &ts); err != nil {
		return fmt.Errorf("hdf5 write %s: %w", path, err)
	}
	flat, cols, err := flatten("prices", prices)
	if err != nil {
		return err
	}
	if err := writeDataset(g, keys.Price, hdf5.T_NATIVE_DOUBLE, []uint{uint(len(prices)), uint(cols)}, &flat); err != nil {
		return fmt.Errorf("hdf5 write %s: %w", path, err)
	}
	if keys.Feature != "" {
		flat, cols, err := flatten("features", features)
		if err != nil {
			return err
		}
		if err := writeDataset(g, keys.Feature, hdf5.T_NATIVE_DOUBLE, []uint{uint(len(features)), uint(cols)}, &flat); err != nil {
			return fmt.Errorf("hdf5 write %s: %w", path, err)
		}
	}
	return nil
}

func writeDataset(g *hdf5.Group, name string, dtype *hdf5.Datatype, dims []uint, data interface{}) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return fmt.Errorf("dataspace for %s: %w", name, err)
	}
	defer space.Close()

	ds, err := g.CreateDataset(name, dtype, space)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", name, err)
	}
	defer ds.Close()

	if err := ds.Write(data); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	return nil
}

var _ domrepo.RowStore = (*HDF5Store)(nil)
