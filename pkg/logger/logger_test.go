package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	digests []Digest
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.digests = append(p.digests, payload.(Digest))
	return nil
}

func TestCollectorDeduplicates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		Service:        "synthfeed",
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "logs",
		Publisher:      pub,
	})
	for i := 0; i < 5; i++ {
		c.AddLog("error", "refill failed", map[string]interface{}{"row": i}, "reader.go:10")
	}
	c.AddLog("warn", "slow publish", nil, "runner.go:20")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.digests, 1)
	assert.Equal(t, "logs", pub.topic)
	d := pub.digests[0]
	assert.Equal(t, "synthfeed", d.Service)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, "refill failed", d.Entries[0].Message)
	assert.Equal(t, 5, d.Entries[0].Count)
	assert.Equal(t, 1, d.Entries[1].Count)
}

func TestLoggerFieldsAndNop(t *testing.T) {
	l := Nop().With(String("feed", "test"), Int("n", 1))
	l.Info("step", Float64("price", 1.5), Bool("end", false), Duration("took", time.Millisecond))
	l.Error("boom", Error(assert.AnError))

	k, v := Float64("price", 2.5).GetKeyValue()
	assert.Equal(t, "price", k)
	assert.Equal(t, 2.5, v)
	k, v = Strings("assets", []string{"a", "b"}).GetKeyValue()
	assert.Equal(t, "assets", k)
	assert.Equal(t, "a, b", v)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewWritesLevelledJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.log")
	l, err := New(&Config{Level: "warn", Format: "json", Output: path, Service: "synthfeed"})
	require.NoError(t, err)

	prices := []float64{1.5, 2}
	l.Info("hidden")
	l.Warn("window refill slow",
		Floats64("prices", prices),
		Uint64("seed", 42),
		Duration("took", 1500*time.Millisecond),
	)
	prices[0] = 99

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, "warn", ev["level"])
	assert.Equal(t, "synthfeed", ev["service"])
	assert.Equal(t, []interface{}{1.5, float64(2)}, ev["prices"])
	assert.Equal(t, float64(42), ev["seed"])
	assert.Equal(t, float64(1500), ev["took"])
}
