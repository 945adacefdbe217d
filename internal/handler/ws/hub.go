package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SynthFeed/internal/domain/models"
	drepo "SynthFeed/internal/domain/repository"
	xlogger "SynthFeed/pkg/logger"
)

// ErrHubClosed is returned by Publish after Close.
var ErrHubClosed = errors.New("websocket hub closed")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts ticks as JSON text frames to every connected client.
// A client whose send buffer is full misses ticks instead of slowing the
// others down. New clients first receive the latest tick.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	closed  bool

	upgrader   websocket.Upgrader
	sendBuf    int
	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
	metrics    drepo.Metrics
	l          *xlogger.Logger
}

type HubOption func(*Hub)

func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuf = n
		}
	}
}

// WithKeepAlive sets the ping period; the pong deadline is derived from it.
func WithKeepAlive(ping time.Duration) HubOption {
	return func(h *Hub) {
		if ping > 0 {
			h.pingPeriod = ping
			h.pongWait = ping * 2
		}
	}
}

func WithLogger(l *xlogger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.l = l
		}
	}
}

func NewHub(metrics drepo.Metrics, opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuf:    256,
		pingPeriod: 30 * time.Second,
		pongWait:   60 * time.Second,
		writeWait:  5 * time.Second,
		metrics:    metrics,
		l:          xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/ticks", func(c echo.Context) error {
		h.ServeWS(c.Response(), c.Request())
		return nil
	})
}

// Name implements repository.Publisher.
func (h *Hub) Name() string { return "websocket" }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Publish(ctx context.Context, t *models.Tick) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	return h.broadcast(b)
}

func (h *Hub) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	for _, t := range ticks {
		if err := h.Publish(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) broadcast(b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.last = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.metrics.RecordError("ws_slow_client")
		}
	}
	return nil
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", xlogger.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.sendBuf)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.l.Debug("websocket client connected", xlogger.String("remote", r.RemoteAddr), xlogger.Int("clients", n))
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards client frames and keeps the read deadline alive.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.l.Debug("websocket read error", xlogger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client; later publishes fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
