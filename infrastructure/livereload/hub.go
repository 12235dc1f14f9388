// Package livereload pushes reload notifications to connected browsers
// over WebSocket.
package livereload

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/reglet-dev/devkit/domain/ports"
)

// Message types sent to clients.
const (
	TypeHello  = "hello"
	TypeReload = "reload"
	TypeAsset  = "asset"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var _ ports.LiveReloader = (*Hub)(nil)

// Message is the JSON frame sent to browsers.
type Message struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	OldURL string `json:"old_url,omitempty"`
	NewURL string `json:"new_url,omitempty"`
}

type client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan Message
	id   string
}

// Hub tracks connected clients and fans messages out to them. It is an
// http.Handler that upgrades requests to WebSocket connections.
type Hub struct {
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}
	wg         sync.WaitGroup
	count      atomic.Int32
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin check. The default only
// accepts same-host origins.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger:     slog.Default(),
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, sendBuffer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves the hub until ctx is done, then disconnects every client and
// waits for their goroutines to exit.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.wg.Add(2)
			go c.writePump()
			go c.readPump()
			c.send <- Message{Type: TypeHello, ID: c.id}
			h.logger.Debug("live reload client connected", "client", c.id)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.drop(c)
				}
			}

		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				h.drop(c)
			}
			h.wg.Wait()
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count.Add(-1)
	close(c.send)
	h.logger.Debug("live reload client disconnected", "client", c.id)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// ReloadPage asks every client to reload the whole page.
func (h *Hub) ReloadPage() {
	h.publish(Message{Type: TypeReload})
}

// ReloadAsset asks every client to swap references to oldURL for newURL.
func (h *Hub) ReloadAsset(oldURL, newURL string) {
	h.publish(Message{Type: TypeAsset, OldURL: oldURL, NewURL: newURL})
}

// publish never blocks; a message that cannot be queued is dropped.
func (h *Hub) publish(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("live reload queue full, dropping message", "type", msg.Type)
	}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		hub:  h,
		send: make(chan Message, sendBuffer),
		id:   ulid.Make().String(),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Debug("live reload write failed", "client", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it exists to notice disconnects and to
// process control frames.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("live reload read failed", "client", c.id, "error", err)
			}
			return
		}
	}
}
