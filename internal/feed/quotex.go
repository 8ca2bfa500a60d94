package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/infouniverseforloop/binary/internal/domain"
	"github.com/infouniverseforloop/binary/internal/events"
	"github.com/infouniverseforloop/binary/internal/market"
)

const (
	loginTimeout   = 10 * time.Second
	reconnectDelay = 5 * time.Second
	readDeadline   = 90 * time.Second
)

// Config holds broker connection settings. The feed is inactive when the
// credentials are incomplete; the scanner then runs on simulated ticks.
type Config struct {
	APIURL   string
	WSURL    string
	Username string
	Password string
}

// Active reports whether the config is complete enough to connect.
func (c Config) Active() bool {
	return c.APIURL != "" && c.Username != "" && c.Password != ""
}

// tickMessage is the broker's streaming tick shape.
type tickMessage struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Time   string  `json:"time"`
}

// QuotexFeed logs into the broker HTTP API for a session token, then
// streams ticks over WebSocket into the market store. It reconnects with
// a fixed delay on disconnect.
type QuotexFeed struct {
	cfg       Config
	store     *market.Store
	ticks     domain.TickCache
	publisher *events.Publisher
	client    *http.Client
	logger    *slog.Logger
}

// NewQuotexFeed creates a feed. ticks and publisher may be nil.
func NewQuotexFeed(cfg Config, store *market.Store, ticks domain.TickCache, publisher *events.Publisher, logger *slog.Logger) *QuotexFeed {
	return &QuotexFeed{
		cfg:       cfg,
		store:     store,
		ticks:     ticks,
		publisher: publisher,
		client:    &http.Client{Timeout: loginTimeout},
		logger:    logger.With(slog.String("component", "quotex_feed")),
	}
}

// Run connects and streams ticks until ctx is cancelled. Without complete
// credentials it logs once and blocks until cancellation so the rest of
// the app keeps running on simulated data.
func (f *QuotexFeed) Run(ctx context.Context) error {
	if !f.cfg.Active() {
		f.logger.Info("broker credentials not set, feed inactive")
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("broker feed disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("delay", reconnectDelay),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *QuotexFeed) runConnection(ctx context.Context) error {
	token, err := f.login(ctx)
	if err != nil {
		return fmt.Errorf("feed: login: %w", err)
	}
	if f.cfg.WSURL == "" {
		f.logger.Info("no stream url configured, feed idle after login")
		<-ctx.Done()
		return ctx.Err()
	}

	wsURL := f.cfg.WSURL + "?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: dial: %w", err)
	}
	defer conn.Close()
	f.logger.Info("broker stream connected")

	// Drop the connection when ctx dies so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, data)
	}
}

// login posts credentials and returns the session token. Accepts both
// "token" and "access_token" response keys.
func (f *QuotexFeed) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": f.cfg.Username,
		"password": f.cfg.Password,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(f.cfg.APIURL, "/")+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", fmt.Errorf("no token in response")
	}
	return token, nil
}

func (f *QuotexFeed) handleMessage(ctx context.Context, data []byte) {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		f.logger.Debug("feed message not json", slog.Int("payload_len", len(data)))
		return
	}
	if probe.Event == "order_confirm" {
		if f.publisher != nil {
			if err := f.publisher.OrderConfirm(ctx, json.RawMessage(data)); err != nil {
				f.logger.Warn("order confirm relay failed", slog.String("error", err.Error()))
			}
		}
		return
	}

	var tick tickMessage
	if err := json.Unmarshal(data, &tick); err != nil {
		return
	}
	if tick.Symbol == "" || tick.Price <= 0 {
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(tick.Symbol))
	volume := tick.Volume
	if volume <= 0 {
		volume = 1
	}
	ts := time.Now()
	if tick.Time != "" {
		if parsed, err := time.Parse(time.RFC3339, tick.Time); err == nil {
			ts = parsed
		}
	}

	f.store.AppendTick(symbol, tick.Price, volume, ts.Unix())
	if f.ticks != nil {
		if err := f.ticks.SetTick(ctx, symbol, tick.Price, ts); err != nil {
			f.logger.Debug("tick cache set failed", slog.String("error", err.Error()))
		}
	}
}
