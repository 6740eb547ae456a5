package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/tatianab/who-said-it/internal/models"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// clientMessage is a command sent over the socket.
type clientMessage struct {
	Type       string `json:"type"`
	PoetID     string `json:"poetId,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan stateView
}

// hub fans state changes out to every connected socket.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *slog.Logger
}

func newHub(log *slog.Logger) *hub {
	return &hub{clients: make(map[*client]struct{}), log: log}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast never blocks the session; a client that has fallen behind
// misses the update.
func (h *hub) broadcast(v stateView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- v:
		default:
			h.log.Debug("dropping update for slow client")
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err, "remote", realIP(r))
		return
	}

	c := &client{conn: conn, send: make(chan stateView, 8)}
	var first stateView
	if err := s.do(r.Context(), func() { first = s.view(s.session.State()) }); err != nil {
		_ = conn.Close()
		return
	}
	c.send <- first
	s.hub.add(c)
	s.log.Debug("websocket connected", "remote", realIP(r))

	go c.writePump()
	s.readPump(c)
}

// readPump turns socket commands into session calls until the peer goes
// away.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "start":
			d, err := models.ParseDifficulty(msg.Difficulty)
			if err != nil {
				d = s.opts.Difficulty
			}
			s.loop.Post(func() {
				if err := s.session.Start(d); err != nil {
					s.log.Warn("round not started", "error", err)
				}
			})
		case "answer":
			s.loop.Post(func() { s.session.Answer(msg.PoetID) })
		case "skip":
			s.loop.Post(func() { s.session.Skip() })
		case "abandon":
			s.loop.Post(func() { s.session.Abandon() })
		default:
			// ignore unknown types
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for v := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(v); err != nil {
			return
		}
	}
}
