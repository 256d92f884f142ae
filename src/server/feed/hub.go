package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 32
)

// WelcomeMessage is sent to observers when they connect.
type WelcomeMessage struct {
	Type        string `json:"type"`
	Server      string `json:"server"`
	Version     string `json:"version,omitempty"`
	Protocol    string `json:"protocol"`
	Description string `json:"description"`
	ClientID    string `json:"clientId"`
}

// Hub pushes change notifications to every connected WebSocket observer.
// Slow observers whose buffer fills up are disconnected rather than blocking
// the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader
	version  string
	current  func() any

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// NewHub creates a hub. current, if set, provides the message sent right
// after the welcome so new observers start from the present state.
func NewHub(version string, current func() any) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		version: version,
		current: current,
		clients: make(map[*client]bool),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Feed: upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	welcome := WelcomeMessage{
		Type:        "welcome",
		Server:      "MX44 Matrix Control",
		Version:     h.version,
		Protocol:    "JSON",
		Description: "HDMI matrix routing state - sends matrix-update messages on every change",
		ClientID:    c.id,
	}
	c.enqueue(welcome)
	if h.current != nil {
		c.enqueue(h.current())
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("Feed: observer %s connected from %s (%d total)", c.id, r.RemoteAddr, count)

	go h.writePump(c)
	go h.readPump(c)
}

// enqueue is only used before the client is registered, while the buffer is empty.
func (c *client) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Feed: failed to marshal message: %v", err)
		return
	}
	c.send <- data
}

// Broadcast sends v to every observer.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Feed: failed to marshal message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("Feed: observer %s too slow, disconnecting", c.id)
			delete(h.clients, c)
			c.closeSend()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every observer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.closeSend()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	c.closeSend()
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Feed: write to %s failed: %v", c.id, err)
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

// readPump only exists to notice disconnects and answer pings.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		log.Printf("Feed: observer %s disconnected (%d remaining)", c.id, h.ClientCount())
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Feed: read from %s failed: %v", c.id, err)
			}
			return
		}
	}
}
