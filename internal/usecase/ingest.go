package usecase

import (
	"context"
	"fmt"
	"time"

	"SynthFeed/internal/domain/models"
	drepo "SynthFeed/internal/domain/repository"
	"SynthFeed/pkg/logger"
)

// BlockSink stores row blocks, e.g. repository.ClickHouseSink.
type BlockSink interface {
	StoreBlock(ctx context.Context, blk *models.RowBlock, priceCols, featCols int) error
}

// Ingest copies every row of src into dst, batch rows at a time, and
// returns the number of rows written.
func Ingest(ctx context.Context, src drepo.RowStore, dst BlockSink, batch int, l *logger.Logger) (int, error) {
	if batch < 1 {
		return 0, fmt.Errorf("ingest: batch must be positive, got %d", batch)
	}
	if l == nil {
		l = logger.Nop()
	}
	start := time.Now()
	written := 0
	for written < src.Len() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		blk, err := src.ReadWindow(written, written+batch)
		if err != nil {
			return written, fmt.Errorf("ingest: read rows from %d: %w", written, err)
		}
		if blk.Len() == 0 {
			break
		}
		if err := dst.StoreBlock(ctx, blk, src.PriceCols(), src.FeatureCols()); err != nil {
			return written, fmt.Errorf("ingest: %w", err)
		}
		written += blk.Len()
		l.Debug("ingest batch stored", logger.Int("rows", written), logger.Int("total", src.Len()))
	}
	l.Info("ingest complete", logger.Int("rows", written), logger.Duration("duration_ms", time.Since(start)))
	return written, nil
}
