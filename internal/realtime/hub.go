// Package realtime pushes payment-status events to the browser.
//
// The Hub keeps the open notification sockets of each user, keyed by email.
// Publishers (the checkout flow, the Redis source) call Publish; every
// socket of that user receives the event as one JSON text frame.
package realtime

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type client struct {
	email string
	conn  *websocket.Conn
	send  chan Event
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

func key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Publish fans ev out to every socket of email and returns how many sockets
// accepted it.  A socket whose buffer is full is skipped.
func (h *Hub) Publish(email string, ev Event) int {
	metrics.RealtimeEventsTotal.WithLabelValues(string(ev.Status)).Inc()
	if ev.Email == "" {
		ev.Email = email
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients[key(email)] {
		select {
		case c.send <- ev:
			n++
		default:
			h.log.Warnw("notification dropped, socket buffer full", "email", c.email)
		}
	}
	return n
}

// Connections reports how many sockets email has open.
func (h *Hub) Connections(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key(email)])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	k := key(c.email)
	if h.clients[k] == nil {
		h.clients[k] = make(map[*client]struct{})
	}
	h.clients[k][c] = struct{}{}
	h.mu.Unlock()
	metrics.RealtimeConnections.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	k := key(c.email)
	if _, ok := h.clients[k][c]; ok {
		delete(h.clients[k], c)
		if len(h.clients[k]) == 0 {
			delete(h.clients, k)
		}
		close(c.send)
		metrics.RealtimeConnections.Dec()
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and attaches the socket to email.  The
// caller is responsible for authenticating the request first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, email string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Infow("websocket upgrade failed", "err", err)
		return
	}
	c := &client{email: email, conn: conn, send: make(chan Event, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for close and pong frames; the browser never sends
// application messages.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugw("websocket closed", "email", c.email, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.log.Debugw("websocket write failed", "email", c.email, "err", err)
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
