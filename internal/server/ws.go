package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/gesture"
)

// Event types pushed to websocket clients.
const (
	EventWord     = "word"
	EventExamples = "examples"
	EventStatus   = "status"
)

// clientBuffer is the number of events queued per client before the client
// starts missing events.
const clientBuffer = 32

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is a message pushed to websocket clients.
type Event struct {
	Type        string               `json:"type"`
	Translation *gesture.Translation `json:"translation,omitempty"`
	Class       *gesture.Class       `json:"class,omitempty"`
	Examples    int                  `json:"examples,omitempty"`
	Status      interface{}          `json:"status,omitempty"`
	Timestamp   int64                `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a display that pushes emitted words and example counts to every
// connected websocket client. A slow client misses events instead of
// holding up the sender.
type Hub struct {
	snapshot func() interface{}
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a Hub. snapshot, if non-nil, is sent to every client when
// it connects.
func NewHub(snapshot func() interface{}, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		snapshot: snapshot,
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	if h.snapshot != nil {
		if msg, err := encodeEvent(Event{Type: EventStatus, Status: h.snapshot()}); err == nil {
			c.send <- msg
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			// Drain until remove closes the channel.
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// remove unregisters c and closes its send channel once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every connected client.
func (h *Hub) Broadcast(ev Event) {
	msg, err := encodeEvent(ev)
	if err != nil {
		h.logger.Warn("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("websocket client too slow, event dropped", "type", ev.Type)
		}
	}
}

func (h *Hub) ShowWord(t gesture.Translation) {
	h.Broadcast(Event{Type: EventWord, Translation: &t})
}

func (h *Hub) ShowExampleCount(class gesture.Class, count int) {
	h.Broadcast(Event{Type: EventExamples, Class: &class, Examples: count})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func encodeEvent(ev Event) ([]byte, error) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	return json.Marshal(ev)
}
