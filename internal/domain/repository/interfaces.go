package repository

import (
	"context"

	"SynthFeed/internal/domain/models"
)

// Publisher delivers ticks to a downstream sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

type Metrics interface {
	RecordTick(source string)
	RecordWindowRefill(source string, rows int)
	RecordPublished(sink string)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
}
