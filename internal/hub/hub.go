package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/haven-home/haven-core/internal/infrastructure/config"
	"github.com/haven-home/haven-core/internal/infrastructure/logging"
	"github.com/haven-home/haven-core/internal/observability/metrics"
	"github.com/haven-home/haven-core/internal/topology"
)

// sendBufferSize is the per-session outbound frame buffer.
const sendBufferSize = 256

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Single-installation LAN deployment; no cross-origin policy.
		return true
	},
}

// Hub owns the connected sessions and their shared router.
type Hub struct {
	cfg     config.WebSocketConfig
	router  *Router
	graph   *topology.Graph
	version string
	logger  *logging.Logger

	sessions map[*Session]struct{}
	mu       sync.RWMutex
}

// NewHub creates a session hub over the shared graph and router.
func NewHub(cfg config.WebSocketConfig, router *Router, graph *topology.Graph, version string, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		router:   router,
		graph:    graph,
		version:  version,
		logger:   logger,
		sessions: make(map[*Session]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// HandleWebSocket upgrades the HTTP connection and starts a session.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s := &Session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.register(s)

	// The connect-time pushes are queued before the read pump starts,
	// so the client sees them ahead of any response frame.
	s.sendEvent(EventInfrastructure, h.graph.Snapshot())
	s.sendEvent(EventVersion, h.version)

	go s.writePump(h.cfg)
	go s.readPump(h.cfg)
}

// register adds a session to the hub.
func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	metrics.SessionOpened()
	h.logger.Debug("session connected", "sessions", h.SessionCount())
}

// unregister removes a session. Only the goroutine that removes the
// session from the map closes its send channel, preventing double-close
// panics during shutdown.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, existed := h.sessions[s]
	delete(h.sessions, s)
	h.mu.Unlock()

	if existed {
		close(s.send)
		metrics.SessionClosed()
	}
	h.logger.Debug("session disconnected", "sessions", h.SessionCount())
}

// Broadcast pushes an event to every connected session.
func (h *Hub) Broadcast(event string, value any) {
	data, err := json.Marshal(Event{Type: TypeEvent, Event: event, Value: value})
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.trySend(data)
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// closeAll disconnects every session so write pumps exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.sessions {
		close(s.send)
		if s.conn != nil {
			s.conn.Close()
		}
		delete(h.sessions, s)
		metrics.SessionClosed()
	}
}
