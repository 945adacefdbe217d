package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
	pkgkafka "SynthFeed/pkg/kafka"
)

type fakeProducer struct {
	topics []string
	keys   [][]byte
	values []interface{}
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
	return nil
}

func (f *fakeProducer) PublishBatch(ctx context.Context, topic string, msgs []pkgkafka.Message) error {
	for _, m := range msgs {
		_ = f.Publish(ctx, topic, m.Key, m.Value)
	}
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherKeysByFeed(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "ticks")
	assert.Equal(t, "kafka", p.Name())

	tick := &models.Tick{Feed: "fx", Step: 1, Prices: []float64{1}}
	require.NoError(t, p.Publish(context.Background(), tick))
	require.NoError(t, p.PublishBatch(context.Background(), []*models.Tick{
		{Feed: "fx", Step: 2}, {Feed: "rates", Step: 1},
	}))
	require.NoError(t, p.PublishBatch(context.Background(), nil))

	assert.Equal(t, []string{"ticks", "ticks", "ticks"}, fp.topics)
	assert.Equal(t, [][]byte{[]byte("fx"), []byte("fx"), []byte("rates")}, fp.keys)
	assert.Same(t, tick, fp.values[0])

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}
