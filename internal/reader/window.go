// Package reader streams rows of a time-ordered dataset through a fixed-size
// cache window.
package reader

import (
	"fmt"
	"sort"
	"time"

	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
	applogger "SynthFeed/pkg/logger"
)

// window tracks the global cursor within [lower, upper) and the loaded block.
// refill is the only place that replaces the block. A failed refill is
// sticky: every later step returns it until rewind.
type window struct {
	name    string
	store   repository.RowStore
	size    int
	lower   int
	upper   int
	cursor  int
	block   *models.RowBlock
	log     *applogger.Logger
	metrics repository.Metrics
	err     error
}

func (w *window) refill() error {
	start := time.Now()
	end := w.cursor + w.size
	if end > w.upper {
		end = w.upper
	}
	blk, err := w.store.ReadWindow(w.cursor, end)
	if err != nil {
		w.err = fmt.Errorf("refill window at row %d: %w", w.cursor, err)
		return w.err
	}
	if blk.Start != w.cursor || blk.Len() != end-w.cursor {
		w.err = fmt.Errorf("refill window at row %d: store returned rows [%d, %d), want [%d, %d)",
			w.cursor, blk.Start, blk.End(), w.cursor, end)
		return w.err
	}
	w.block = blk
	if w.metrics != nil {
		w.metrics.RecordWindowRefill(w.name, blk.Len())
		w.metrics.RecordLatency("window_refill", time.Since(start).Seconds())
	}
	w.log.Debug("window refilled",
		applogger.String("source", w.name),
		applogger.Int("start", blk.Start),
		applogger.Int("rows", blk.Len()),
	)
	return nil
}

// step loads the next block if the cursor has left the current one, then
// hands the row at the cursor to emit and advances. emit is only called
// once the row is in memory, so a failed refill never consumes a row.
func (w *window) step(emit func(b *models.RowBlock, off int)) error {
	if w.err != nil {
		return w.err
	}
	if w.cursor >= w.upper {
		return models.ErrDataEnd
	}
	if w.block == nil || !w.block.Contains(w.cursor) {
		if err := w.refill(); err != nil {
			return err
		}
	}
	emit(w.block, w.cursor-w.block.Start)
	w.cursor++
	return nil
}

func (w *window) rewind() error {
	w.cursor = w.lower
	w.block = nil
	w.err = nil
	return w.refill()
}

func (w *window) done() bool { return w.cursor >= w.upper }

// resolveBounds maps [startTime, endTime) to row indices by binary search on
// the timestamp column. Nil bounds are open.
func resolveBounds(store repository.RowStore, startTime, endTime *int64) (int, int, error) {
	n := store.Len()
	search := func(ts int64) (int, error) {
		var ferr error
		i := sort.Search(n, func(i int) bool {
			if ferr != nil {
				return true
			}
			v, err := store.TimestampAt(i)
			if err != nil {
				ferr = err
				return true
			}
			return v >= ts
		})
		return i, ferr
	}

	lo, hi := 0, n
	var err error
	if startTime != nil {
		if lo, err = search(*startTime); err != nil {
			return 0, 0, fmt.Errorf("resolve start time: %w", err)
		}
	}
	if endTime != nil {
		if hi, err = search(*endTime); err != nil {
			return 0, 0, fmt.Errorf("resolve end time: %w", err)
		}
	}
	return lo, hi, nil
}
