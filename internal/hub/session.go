package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haven-home/haven-core/internal/infrastructure/config"
)

// Session is one connected WebSocket client.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump reads request frames and dispatches them in order.
// One goroutine per session: commands within a session are sequential.
func (s *Session) readPump(cfg config.WebSocketConfig) {
	defer func() {
		s.hub.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	s.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("websocket read error", "error", err)
			} else {
				s.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any frame resets the read deadline; browsers do not always
		// answer protocol-level pings.
		//nolint:errcheck // Best-effort deadline reset
		s.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		s.handleMessage(message)
	}
}

// writePump writes outbound frames and protocol pings.
func (s *Session) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			s.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			s.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound frame. Non-request frames are
// ignored; a request always gets exactly one response.
func (s *Session) handleMessage(data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.hub.logger.Debug("dropping malformed frame", "error", err)
		return
	}
	if req.Type != TypeRequest {
		return
	}

	resp := s.hub.router.Dispatch(context.Background(), &req)
	s.sendFrame(resp)
}

// sendEvent queues an event frame for this session.
func (s *Session) sendEvent(event string, value any) {
	s.sendFrame(Event{Type: TypeEvent, Event: event, Value: value})
}

// sendFrame marshals and queues any frame for this session.
func (s *Session) sendFrame(frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.hub.logger.Error("failed to marshal frame", "error", err)
		return
	}
	s.trySend(data)
}

// trySend queues data without blocking. Closed channels (session torn
// down mid-send) and full buffers (slow client) are both absorbed.
func (s *Session) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case s.send <- data:
	default:
		// Session buffer full, skip
	}
}
