package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infouniverseforloop/binary/internal/cache/memory"
	"github.com/infouniverseforloop/binary/internal/domain"
)

type stubProvider struct {
	signal *domain.Signal
	hold   string
	scores []domain.SymbolScore
}

func (p *stubProvider) Request(ctx context.Context, symbol string, forceNext bool) (*domain.Signal, string) {
	if p.signal != nil {
		return p.signal, ""
	}
	return nil, p.hold
}

func (p *stubProvider) ScoreAll(limit int) []domain.SymbolScore {
	if limit < len(p.scores) {
		return p.scores[:limit]
	}
	return p.scores
}

type stubUsers struct {
	valid string
	admin string
}

func (u stubUsers) ValidateToken(token string) bool {
	return token == u.valid || token == u.admin
}
func (u stubUsers) IsAdmin(token string) bool { return token != "" && token == u.admin }
func (u stubUsers) Count() int                { return 3 }

type stubStats struct{}

func (stubStats) Count() int             { return 12 }
func (stubStats) Stats() (int, int, int) { return 7, 4, 1 }

type fixedClock struct{}

func (fixedClock) NowISO() string { return "2026-08-31T12:00:00Z" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialTestHub(t *testing.T, deps Deps) (*websocket.Conn, func()) {
	t.Helper()

	hub := NewHub(deps, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		srv.Close()
		cancel()
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	return ev
}

func baseDeps(provider *stubProvider) Deps {
	return Deps{
		Provider: provider,
		Registry: domain.NewRegistry([]string{"EUR/USD", "BTC (OTC)", "Gold (OTC)"}),
		Users:    stubUsers{valid: "tok-user", admin: "tok-admin"},
		Ledger:   stubStats{},
		Clock:    fixedClock{},
		Owner:    "ops@example.net",
	}
}

func TestHelloGreeting(t *testing.T) {
	conn, done := dialTestHub(t, baseDeps(&stubProvider{}))
	defer done()

	ev := readEvent(t, conn)
	assert.Equal(t, "hello", ev.Type)

	data := ev.Data.(map[string]any)
	assert.Equal(t, "ops@example.net", data["owner"])
	assert.Equal(t, "2026-08-31T12:00:00Z", data["server_time"])

	pairs := data["pairs"].([]any)
	require.Len(t, pairs, 3)
	first := pairs[0].(map[string]any)
	assert.Equal(t, "EUR/USD", first["symbol"])
	assert.Equal(t, "real", first["type"])
	second := pairs[1].(map[string]any)
	assert.Equal(t, "otc", second["type"], "OTC suffix outranks the crypto pattern")
}

func TestAuthFlow(t *testing.T) {
	conn, done := dialTestHub(t, baseDeps(&stubProvider{}))
	defer done()
	readEvent(t, conn) // hello

	require.NoError(t, conn.WriteJSON(map[string]any{"auth": true, "token": "wrong"}))
	ev := readEvent(t, conn)
	assert.Equal(t, "auth_error", ev.Type)
	assert.Equal(t, "Invalid token", ev.Data)

	require.NoError(t, conn.WriteJSON(map[string]any{"auth": true, "token": "tok-user"}))
	ev = readEvent(t, conn)
	assert.Equal(t, "auth_ok", ev.Type)
}

func TestStartReturnsSignal(t *testing.T) {
	provider := &stubProvider{signal: &domain.Signal{
		ID:         3,
		Symbol:     "EUR/USD",
		Direction:  domain.DirectionCall,
		Confidence: 72,
	}}
	conn, done := dialTestHub(t, baseDeps(provider))
	defer done()
	readEvent(t, conn) // hello

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "symbol": "EUR/USD"}))
	ev := readEvent(t, conn)
	require.Equal(t, "signal", ev.Type)

	data := ev.Data.(map[string]any)
	assert.Equal(t, float64(3), data["id"])
	assert.Equal(t, "CALL", data["direction"])
}

func TestNextHoldsWhenNoOpportunity(t *testing.T) {
	provider := &stubProvider{hold: "No confirmed opportunity right now. Hold"}
	conn, done := dialTestHub(t, baseDeps(provider))
	defer done()
	readEvent(t, conn) // hello

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "next"}))
	ev := readEvent(t, conn)
	require.Equal(t, "hold", ev.Type)
	data := ev.Data.(map[string]any)
	assert.Equal(t, provider.hold, data["reason"])
}

func TestGetScores(t *testing.T) {
	provider := &stubProvider{scores: []domain.SymbolScore{
		{Symbol: "EUR/USD", Score: 61.5},
		{Symbol: "GBP/USD", Score: 52},
	}}
	conn, done := dialTestHub(t, baseDeps(provider))
	defer done()
	readEvent(t, conn) // hello

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "getScores"}))
	ev := readEvent(t, conn)
	require.Equal(t, "scores", ev.Type)

	rows := ev.Data.([]any)
	require.Len(t, rows, 2)
	top := rows[0].(map[string]any)
	assert.Equal(t, "EUR/USD", top["symbol"])
	assert.InDelta(t, 61.5, top["score"], 1e-9)
}

func TestAdminStatsRequiresAdminToken(t *testing.T) {
	conn, done := dialTestHub(t, baseDeps(&stubProvider{}))
	defer done()
	readEvent(t, conn) // hello

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "admin", "token": "tok-user"}))
	ev := readEvent(t, conn)
	assert.Equal(t, "auth_error", ev.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "admin", "token": "tok-admin"}))
	ev = readEvent(t, conn)
	require.Equal(t, "admin_stats", ev.Type)

	data := ev.Data.(map[string]any)
	assert.Equal(t, float64(3), data["pairs"])
	assert.Equal(t, float64(12), data["signals"])
	assert.Equal(t, float64(3), data["users"])
	assert.Equal(t, float64(7), data["wins"])
}

func TestBusPushReachesClients(t *testing.T) {
	bus := memory.NewSignalBus()
	deps := baseDeps(&stubProvider{})
	deps.Bus = bus

	conn, done := dialTestHub(t, deps)
	defer done()
	readEvent(t, conn) // hello

	// Give the relay goroutines a beat to subscribe.
	require.Eventually(t, func() bool {
		payload := []byte(`{"type":"signal","data":{"id":9}}`)
		if err := bus.Publish(context.Background(), domain.ChannelSignal, payload); err != nil {
			return false
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return false
		}
		var ev domain.Event
		return json.Unmarshal(raw, &ev) == nil && ev.Type == domain.ChannelSignal
	}, 3*time.Second, 50*time.Millisecond)
}

func TestUnknownTypeYieldsError(t *testing.T) {
	conn, done := dialTestHub(t, baseDeps(&stubProvider{}))
	defer done()
	readEvent(t, conn) // hello

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "reboot"}))
	ev := readEvent(t, conn)
	assert.Equal(t, "error", ev.Type)
}
