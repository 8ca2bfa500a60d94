package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientMessage is every request frame a client can send.
type clientMessage struct {
	Type   string `json:"type,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Auth   bool   `json:"auth,omitempty"`
	Token  string `json:"token,omitempty"`
}

// session is one connected client.
type session struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	token string
}

func newSession(h *Hub, conn *websocket.Conn) *session {
	return &session{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// greet sends the hello frame: classified pairs, disciplined server time,
// and the instance owner.
func (s *session) greet() {
	data := map[string]any{
		"pairs": s.hub.deps.Registry.Infos(),
		"owner": s.hub.deps.Owner,
	}
	if s.hub.deps.Clock != nil {
		data["server_time"] = s.hub.deps.Clock.NowISO()
	}
	s.queue(marshalEvent("hello", data))
}

// queue drops the frame when the session's buffer is full, matching the
// hub's slow-client policy.
func (s *session) queue(payload []byte) {
	select {
	case s.send <- payload:
	default:
		s.hub.logger.Warn("dropping reply for slow client", slog.String("session", s.id))
	}
}

// readPump parses request frames until the connection dies.
func (s *session) readPump(ctx context.Context) {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected close",
					slog.String("session", s.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.queue(marshalEvent("error", "malformed message"))
			continue
		}
		s.handle(ctx, msg)
	}
}

// handle dispatches one request frame.
func (s *session) handle(ctx context.Context, msg clientMessage) {
	if msg.Auth && msg.Token != "" {
		if !s.hub.deps.Users.ValidateToken(msg.Token) {
			s.queue(marshalEvent("auth_error", "Invalid token"))
			return
		}
		s.token = msg.Token
		s.queue(marshalEvent("auth_ok", nil))
		if msg.Type == "" {
			return
		}
	}

	switch msg.Type {
	case "start":
		s.serveSignal(ctx, msg.Symbol, false)
	case "next":
		s.serveSignal(ctx, msg.Symbol, true)
	case "getScores":
		s.queue(marshalEvent("scores", s.hub.deps.Provider.ScoreAll(10)))
	case "admin":
		s.serveAdmin(msg.Token)
	case "":
		// Auth-only frame, already handled.
	default:
		s.queue(marshalEvent("error", "unknown request type"))
	}
}

func (s *session) serveSignal(ctx context.Context, symbol string, forceNext bool) {
	sig, hold := s.hub.deps.Provider.Request(ctx, symbol, forceNext)
	if sig == nil {
		s.queue(marshalEvent("hold", map[string]string{"reason": hold}))
		return
	}
	// The emission path already broadcast the signal to every client; the
	// direct reply keeps the request/response pairing for the caller.
	s.queue(marshalEvent("signal", sig))
}

func (s *session) serveAdmin(token string) {
	if !s.hub.deps.Users.IsAdmin(token) {
		s.queue(marshalEvent("auth_error", "Invalid token"))
		return
	}

	wins, losses, pending := s.hub.deps.Ledger.Stats()
	s.queue(marshalEvent("admin_stats", map[string]any{
		"pairs":   s.hub.deps.Registry.Len(),
		"signals": s.hub.deps.Ledger.Count(),
		"users":   s.hub.deps.Users.Count(),
		"wins":    wins,
		"losses":  losses,
		"pending": pending,
	}))
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
