package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infouniverseforloop/binary/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
}

type fakeTicks struct {
	quotes map[string]float64
	err    error
}

func (f fakeTicks) SetTick(ctx context.Context, symbol string, price float64, ts time.Time) error {
	return nil
}

func (f fakeTicks) GetTick(ctx context.Context, symbol string) (float64, time.Time, error) {
	return 0, time.Time{}, domain.ErrNotFound
}

func (f fakeTicks) GetTicks(ctx context.Context, symbols []string) (map[string]float64, error) {
	return f.quotes, f.err
}

func TestListPairsWithQuotes(t *testing.T) {
	registry := domain.NewRegistry([]string{"EUR/USD", "Gold (OTC)"})
	h := NewPairsHandler(registry, fakeTicks{quotes: map[string]float64{"EUR/USD": 1.0931}}, testLogger())

	rec := httptest.NewRecorder()
	h.ListPairs(rec, httptest.NewRequest(http.MethodGet, "/api/pairs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Pairs []pairRow `json:"pairs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pairs, 2)
	assert.Equal(t, domain.ClassReal, body.Pairs[0].Type)
	assert.InDelta(t, 1.0931, body.Pairs[0].LastPrice, 1e-9)
	assert.Equal(t, domain.ClassOTC, body.Pairs[1].Type)
	assert.Zero(t, body.Pairs[1].LastPrice)
}

func TestListPairsSurvivesTickCacheFailure(t *testing.T) {
	registry := domain.NewRegistry([]string{"EUR/USD"})
	h := NewPairsHandler(registry, fakeTicks{err: errors.New("redis down")}, testLogger())

	rec := httptest.NewRecorder()
	h.ListPairs(rec, httptest.NewRequest(http.MethodGet, "/api/pairs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeHistory struct {
	signals []domain.Signal
	err     error
	gotN    int
}

func (f *fakeHistory) RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	f.gotN = limit
	return f.signals, f.err
}

func TestListHistory(t *testing.T) {
	source := &fakeHistory{signals: []domain.Signal{{ID: 1, Symbol: "EUR/USD"}}}
	h := NewHistoryHandler(source, testLogger())

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/signals/history?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, source.gotN)

	var body struct {
		Signals []domain.Signal `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Signals, 1)
	assert.Equal(t, int64(1), body.Signals[0].ID)
}

func TestListHistoryLimitBounds(t *testing.T) {
	source := &fakeHistory{}
	h := NewHistoryHandler(source, testLogger())

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/signals/history?limit=9999", nil))
	assert.Equal(t, 500, source.gotN, "limit capped")

	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/signals/history?limit=junk", nil))
	assert.Equal(t, 50, source.gotN, "default on junk input")
}

func TestListHistoryError(t *testing.T) {
	h := NewHistoryHandler(&fakeHistory{err: errors.New("stream gone")}, testLogger())

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/signals/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
