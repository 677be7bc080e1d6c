package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans engine events out to websocket subscribers. Delivery is
// fire-and-forget: a subscriber that cannot keep up is dropped rather than
// back-pressuring the engine.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool

	broadcast chan []byte
	done      chan struct{}
	once      sync.Once
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   map[*client]bool{},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// Run pumps broadcast messages to subscribers until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-h.done:
			return
		case data := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow subscriber: drop it.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close disconnects all subscribers and stops the hub.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
	})
}

// Publish queues v for fan-out. It never blocks; when the broadcast buffer
// is full the message is dropped.
func (h *Hub) Publish(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("notify: failed to marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// ServeHTTP upgrades the request to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify: upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
}

// readPump discards inbound frames; it exists to notice disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.mu.Lock()
		if h.clients[c] {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
