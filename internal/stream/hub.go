// Package stream serves live dashboard sessions over websockets. Every
// connection gets its own mounted Dashboard, so each browser tab polls and
// tears down independently.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trogers1052/stock-sniper-dashboard/internal/dashboard"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	sendBufferSize = 16
)

// Message types sent to clients
const (
	TypeTable = "table"
	TypeError = "error"
)

// ActionSetType is the client request that changes a view's type
const ActionSetType = "set_type"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope is every server-to-client frame
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Request is a client-to-server frame
type Request struct {
	Action string `json:"action"`
	Slot   string `json:"slot"`
	Type   string `json:"type"`
}

// Factory builds an unmounted dashboard for a new session
type Factory func() (*dashboard.Dashboard, error)

// Hub tracks live sessions
type Hub struct {
	factory Factory
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	dash   *dashboard.Dashboard
	cancel context.CancelFunc

	updates     <-chan string
	unsubscribe func()
	send        chan []byte
	closeOnce   sync.Once
}

// NewHub creates a Hub whose sessions use dashboards built by factory
func NewHub(factory Factory, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		factory:  factory,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// HandleWS upgrades the request and starts a session.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	dash, err := h.factory()
	if err != nil {
		h.logger.Error("stream: failed to build dashboard", slog.String("error", err.Error()))
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("stream: upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		dash:   dash,
		cancel: cancel,
		send:   make(chan []byte, sendBufferSize),
	}
	s.updates, s.unsubscribe = dash.Subscribe()

	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("stream: session opened",
		slog.String("session", s.id),
		slog.Int("total_sessions", total),
	)

	for _, table := range dash.Tables() {
		s.enqueue(Envelope{Type: TypeTable, Payload: table})
	}
	dash.Mount(ctx)

	go s.writePump()
	go s.readPump()
}

// Refresh triggers an out-of-band fetch in every session's dashboard
func (h *Hub) Refresh(resources ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, s := range h.sessions {
		n += s.dash.Refresh(resources...)
	}
	return n
}

// Sessions returns the number of open sessions
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close ends every session
func (h *Hub) Close() {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	total := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("stream: session closed",
		slog.String("session", s.id),
		slog.Int("total_sessions", total),
	)
}

// close unmounts the dashboard, which stops its pollers and closes the
// update channel; the write pump then closes the connection
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		s.cancel()
		s.unsubscribe()
		s.dash.Unmount()
		s.conn.Close()
	})
}

func (s *session) enqueue(e Envelope) {
	data, err := json.Marshal(e)
	if err != nil {
		s.hub.logger.Error("stream: failed to marshal message", slog.String("error", err.Error()))
		return
	}
	select {
	case s.send <- data:
	default:
		s.hub.logger.Warn("stream: dropping message for slow client", slog.String("session", s.id))
	}
}

func (s *session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("stream: unexpected close error",
					slog.String("session", s.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			s.enqueue(errorEnvelope("invalid request"))
			continue
		}
		s.handle(req)
	}
}

func (s *session) handle(req Request) {
	switch req.Action {
	case ActionSetType:
		if err := s.dash.SetType(req.Slot, req.Type); err != nil {
			s.enqueue(errorEnvelope(err.Error()))
		}
	default:
		s.enqueue(errorEnvelope("unknown action " + req.Action))
	}
}

func errorEnvelope(msg string) Envelope {
	return Envelope{Type: TypeError, Payload: map[string]string{"message": msg}}
}

// writePump renders a slot each time it changes and forwards queued frames
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case slot, ok := <-s.updates:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			table, err := s.dash.Table(slot)
			if err != nil {
				continue
			}
			if !s.write(Envelope{Type: TypeTable, Payload: table}) {
				return
			}

		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) write(e Envelope) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(e) == nil
}
