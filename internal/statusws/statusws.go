// Package statusws is a read-only WebSocket feed of scheduler job results
// (spec.md's ambient addition: an operator dashboard view onto what the
// time-driven orchestrator, internal/scheduler, is doing).
//
// Adapted from the teacher's internal/rpc/websocket.go hub (WSHub/WSClient,
// register/unregister/broadcast channels, ping/pong keepalive), repurposed
// from P2P peer/order events to settlement job-result events. Unlike the
// teacher's hub this feed has no client-driven subscription filtering:
// every connected operator sees every job result, since the volume (one
// event per scheduled job run, across a handful of currencies) never
// warrants filtering.
package statusws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sc-pool/payout-rpc-client/internal/scheduler"
	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one broadcast message: a scheduler.JobResult wrapped with a
// wire timestamp.
type Event struct {
	Type      string               `json:"type"`
	Data      scheduler.JobResult  `json:"data"`
	Timestamp int64                `json:"timestamp"`
}

// EventJobResult is the sole event type this feed emits.
const EventJobResult = "job_result"

// client is one connected operator dashboard.
type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans scheduler.JobResult events out to every connected client. It
// satisfies scheduler.Broadcaster.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	log        *logging.Logger
	mu         sync.RWMutex
}

// NewHub builds a Hub. Call Run in its own goroutine before wiring it into
// a scheduler.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log.Component("statusws"),
	}
}

// Run is the hub's event loop. It never returns, so it runs for the
// lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug("client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Debug("client disconnected", "clients", len(h.clients))

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("failed to marshal event", "error", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, c)
					close(c.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast implements scheduler.Broadcaster: every job result the
// scheduler reports is fanned out to connected operator dashboards.
func (h *Hub) Broadcast(result scheduler.JobResult) {
	event := Event{Type: EventJobResult, Data: result, Timestamp: time.Now().Unix()}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("broadcast channel full, dropping event", "job", result.Job, "currency", result.Currency)
	}
}

// ClientCount returns the number of connected operator dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64), hub: h}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		// This feed is read-only: any message from the client is discarded,
		// but a read loop is still required to notice disconnects and
		// respond to pings per the gorilla/websocket contract.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
