// Package dashboard serves the latest portfolio update over HTTP and pushes
// every new one to WebSocket clients.
package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Hub fans updates out to connected clients. It implements app.Publisher.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte

	// onCount is told the client count after every change, on its own
	// goroutine so a caller holding scheduler locks never blocks on it.
	onCount func(n int)
	countCh chan int
	done    chan struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *zap.Logger, onCount func(n int)) *Hub {
	h := &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		onCount: onCount,
		countCh: make(chan int, 64),
		done:    make(chan struct{}),
	}
	go h.notifyLoop()
	return h
}

func (h *Hub) notifyLoop() {
	for {
		select {
		case n := <-h.countCh:
			metrics.WebSocketClients.Set(float64(n))
			if h.onCount != nil {
				h.onCount(n)
			}
		case <-h.done:
			return
		}
	}
}

// Publish stores u as the latest frame and queues it for every client.
// Slow clients drop frames rather than block the refresh loop.
func (h *Hub) Publish(u app.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		h.logger.Error("failed to encode update", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
	h.mu.Unlock()
}

// Latest returns the most recently published update as JSON.
func (h *Hub) Latest() ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.last != nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	close(h.done)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS upgrades the request and sends the latest frame immediately.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.last != nil {
		c.send <- h.last
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.countChanged(n)
	h.logger.Info("ws client connected", zap.Int("total", n))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.countChanged(n)
		h.logger.Info("ws client disconnected", zap.Int("total", n))
	}
}

func (h *Hub) countChanged(n int) {
	select {
	case h.countCh <- n:
	case <-h.done:
	}
}

// readPump keeps the connection alive and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
