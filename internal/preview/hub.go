package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/markup/internal/logging"
)

// Message types sent to the browser.
const (
	MessageReload = "reload"
	MessageError  = "error"
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks live-reload connections and broadcasts to them.
//
// The clients map is guarded by mutex. A client's send channel is closed
// only while holding the write lock, so broadcasts never race a close.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.RWMutex

	originPatterns []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewHub creates a hub. Origins matching originPatterns are accepted in
// addition to same-host requests.
func NewHub(logger logging.Logger, originPatterns ...string) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:        make(map[*websocket.Conn]*client),
		originPatterns: originPatterns,
		logger:         logger.WithComponent("websocket"),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// ServeHTTP upgrades the request and keeps the connection until either side
// closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		// Accept has already written the response.
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.register(c)
	defer h.unregister(c)

	h.logger.Debug(r.Context(), "WebSocket client connected", "remote", r.RemoteAddr, "clients", h.Clients())

	// Incoming messages are discarded; ctx ends when the peer goes away.
	ctx := conn.CloseRead(h.ctx)
	h.writeLoop(ctx, c)
}

func (h *Hub) register(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c.conn] = c
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	_, exists := h.clients[c.conn]
	if exists {
		delete(h.clients, c.conn)
		close(c.send)
	}
	h.mutex.Unlock()

	if exists {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "WebSocket write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast sends msg to every client. Clients whose buffer is full miss
// the message.
func (h *Hub) Broadcast(msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal broadcast message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn(h.ctx, nil, "Client send buffer full, dropping message")
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and rejects new ones.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		h.cancel()

		h.mutex.Lock()
		clients := h.clients
		h.clients = make(map[*websocket.Conn]*client)
		for _, c := range clients {
			close(c.send)
		}
		h.mutex.Unlock()

		for conn := range clients {
			_ = conn.Close(websocket.StatusGoingAway, "Server shutdown")
		}
	})
}
