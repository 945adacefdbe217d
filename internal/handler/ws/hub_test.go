package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)               {}
func (nopMetrics) RecordWindowRefill(string, int)  {}
func (nopMetrics) RecordPublished(string)          {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func serve(t *testing.T, h *Hub) string {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ticks"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readTick(t *testing.T, c *websocket.Conn) models.Tick {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := c.ReadMessage()
	require.NoError(t, err)
	var tk models.Tick
	require.NoError(t, json.Unmarshal(b, &tk))
	return tk
}

func TestHubBroadcasts(t *testing.T) {
	h := NewHub(nopMetrics{})
	url := serve(t, h)
	a, b := dial(t, url), dial(t, url)
	require.Eventually(t, func() bool { return h.Clients() == 2 }, time.Second, 5*time.Millisecond)

	tick := &models.Tick{Feed: "f", Step: 1, Assets: []string{"x"}, Prices: []float64{1.5}, Data: []float64{1.5}}
	require.NoError(t, h.Publish(context.Background(), tick))

	for _, c := range []*websocket.Conn{a, b} {
		got := readTick(t, c)
		assert.Equal(t, *tick, got)
	}
}

func TestHubReplaysLatestTick(t *testing.T) {
	h := NewHub(nopMetrics{})
	url := serve(t, h)
	require.NoError(t, h.PublishBatch(context.Background(), []*models.Tick{
		{Feed: "f", Step: 1},
		{Feed: "f", Step: 2},
	}))

	c := dial(t, url)
	assert.Equal(t, int64(2), readTick(t, c).Step)
}

func TestHubClose(t *testing.T) {
	h := NewHub(nopMetrics{})
	url := serve(t, h)
	c := dial(t, url)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Close())
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	assert.ErrorIs(t, h.Publish(context.Background(), &models.Tick{Feed: "f", Step: 1}), ErrHubClosed)
	assert.Zero(t, h.Clients())
	_, _, err = websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
}
