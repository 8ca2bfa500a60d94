// Package ws is the WebSocket connection layer: it greets clients, answers
// start/next/getScores/admin requests, and relays the push channels from
// the signal bus.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming request frames.
	maxMessageSize = 4096

	// sendBufferSize is the per-client outgoing buffer.
	sendBufferSize = 256
)

// pushChannels are the bus channels relayed to every connected client.
var pushChannels = []string{
	domain.ChannelSignal,
	domain.ChannelPreSignal,
	domain.ChannelLog,
	domain.ChannelOrderConfirm,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Token auth happens in-protocol; the origin is not trusted anyway.
		return true
	},
}

// SignalProvider answers the on-demand requests a client can make.
type SignalProvider interface {
	Request(ctx context.Context, symbol string, forceNext bool) (*domain.Signal, string)
	ScoreAll(limit int) []domain.SymbolScore
}

// TokenValidator gates the protocol's authenticated surfaces.
type TokenValidator interface {
	ValidateToken(token string) bool
	IsAdmin(token string) bool
	Count() int
}

// StatsSource feeds the admin snapshot.
type StatsSource interface {
	Count() int
	Stats() (wins, losses, pending int)
}

// ServerClock supplies the disciplined server time for greetings.
type ServerClock interface {
	NowISO() string
}

// Deps are the collaborators the hub serves requests with.
type Deps struct {
	Bus      domain.SignalBus
	Provider SignalProvider
	Registry *domain.Registry
	Users    TokenValidator
	Ledger   StatsSource
	Clock    ServerClock
	Owner    string
}

// Hub tracks connected clients and fans bus pushes out to all of them.
type Hub struct {
	deps Deps

	clients    map[*session]bool
	broadcast  chan []byte
	register   chan *session
	unregister chan *session
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub over the given dependencies.
func NewHub(deps Deps, logger *slog.Logger) *Hub {
	return &Hub{
		deps:       deps,
		clients:    make(map[*session]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *session),
		unregister: make(chan *session),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run is the hub event loop: client registration and broadcast fan-out. It
// also starts the bus relay goroutines. Returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) error {
	if h.deps.Bus != nil {
		for _, ch := range pushChannels {
			go h.relayChannel(ctx, ch)
		}
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.clients {
				close(s.send)
				delete(h.clients, s)
			}
			h.mu.Unlock()
			return ctx.Err()

		case s := <-h.register:
			h.mu.Lock()
			h.clients[s] = true
			h.mu.Unlock()
			h.logger.Info("client connected",
				slog.String("session", s.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[s]; ok {
				delete(h.clients, s)
				close(s.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.String("session", s.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for s := range h.clients {
				select {
				case s.send <- msg:
				default:
					// Send buffer full; the client is too slow, drop.
					h.logger.Warn("dropping message for slow client",
						slog.String("session", s.id),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// relayChannel forwards one bus channel into the broadcast fan-out.
func (h *Hub) relayChannel(ctx context.Context, channel string) {
	msgCh, err := h.deps.Bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("bus subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Debug("relaying channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("bus subscription closed", slog.String("channel", channel))
				return
			}
			h.broadcast <- data
		}
	}
}

// Broadcast queues a payload for every connected client.
func (h *Hub) Broadcast(payload []byte) {
	h.broadcast <- payload
}

// HandleWS upgrades the request and runs the session pumps.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := newSession(h, conn)
	h.register <- s
	s.greet()

	// The request context dies with the handler return; the session
	// outlives it on the hijacked connection.
	go s.writePump()
	go s.readPump(context.Background())
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalEvent(eventType string, data any) []byte {
	payload, err := json.Marshal(domain.Event{Type: eventType, Data: data})
	if err != nil {
		return []byte(`{"type":"error","data":"encoding failure"}`)
	}
	return payload
}
