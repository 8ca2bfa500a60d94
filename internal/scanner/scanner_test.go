package scanner

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infouniverseforloop/binary/internal/cache/memory"
	"github.com/infouniverseforloop/binary/internal/domain"
	"github.com/infouniverseforloop/binary/internal/events"
	"github.com/infouniverseforloop/binary/internal/ledger"
	"github.com/infouniverseforloop/binary/internal/market"
	"github.com/infouniverseforloop/binary/internal/overseer"
	"github.com/infouniverseforloop/binary/internal/scorer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func realCollaborators() Collaborators {
	return Collaborators{
		Computer:      scorer.NewComputer(),
		Manipulation:  scorer.NewManipulation(),
		Patterns:      scorer.NewPatterns(),
		Sentiment:     scorer.NewSentiment(),
		DeepSentiment: scorer.NewDeepSentiment(),
		Risk:          scorer.NewRisk(scorer.NoNews{}, testLogger()),
		Booster:       scorer.NewBooster(),
	}
}

func newScanner(t *testing.T, symbols []string, collab Collaborators, publisher *events.Publisher) (*Scanner, *market.Store, *ledger.Ledger) {
	t.Helper()
	mkt := market.NewStore(testLogger())
	led := ledger.New()
	s := New(
		DefaultConfig(),
		mkt,
		domain.NewRegistry(symbols),
		led,
		overseer.New(45, testLogger()),
		overseer.NewMartingale(),
		collab,
		publisher,
		nil,
		nil,
		nil,
		testLogger(),
	)
	return s, mkt, led
}

// feedTrend pushes n one-second ticks with the given per-tick step.
func feedTrend(mkt *market.Store, symbol string, n int, start, step float64) {
	price := start
	for i := 0; i < n; i++ {
		mkt.AppendTick(symbol, price, 100, int64(1_700_000_000+i))
		price += step
	}
}

func TestCycleEmitsSignalOnTrendingTape(t *testing.T) {
	bus := memory.NewSignalBus()
	publisher := events.NewPublisher(bus, testLogger())
	s, mkt, led := newScanner(t, []string{"EUR/USD"}, realCollaborators(), publisher)

	ctx := context.Background()
	signalCh, err := bus.Subscribe(ctx, domain.ChannelSignal)
	require.NoError(t, err)

	feedTrend(mkt, "EUR/USD", 240, 1.09, 0.0004)

	sig := s.Cycle(ctx)
	require.NotNil(t, sig)

	assert.Equal(t, int64(1), sig.ID)
	assert.Equal(t, "EUR/USD", sig.Symbol)
	assert.Equal(t, domain.DirectionCall, sig.Direction)
	assert.GreaterOrEqual(t, sig.Confidence, 45)
	assert.LessOrEqual(t, sig.Confidence, 99)
	assert.Equal(t, domain.RegimeNormal, sig.Mode)
	assert.Equal(t, "real", sig.Market)
	assert.Greater(t, sig.ExpiryTS, time.Now().Unix())
	assert.Equal(t, domain.MartingaleSuggest, sig.Martingale.Decision)
	assert.Equal(t, 1, led.Count())

	select {
	case payload := <-signalCh:
		var ev domain.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		assert.Equal(t, domain.ChannelSignal, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no signal broadcast")
	}
	assert.Equal(t, 1, bus.StreamLen(domain.StreamSignals))
}

func TestCycleFlatTapeEmitsNothing(t *testing.T) {
	s, mkt, led := newScanner(t, []string{"EUR/USD"}, realCollaborators(), nil)
	feedTrend(mkt, "EUR/USD", 240, 1.09, 0)

	assert.Nil(t, s.Cycle(context.Background()))
	assert.Zero(t, led.Count())
}

func TestCycleInsufficientHistorySimulatesAndSkips(t *testing.T) {
	s, mkt, led := newScanner(t, []string{"EUR/USD"}, realCollaborators(), nil)
	feedTrend(mkt, "EUR/USD", 10, 1.09, 0.0004)

	before := mkt.Len("EUR/USD")
	assert.Nil(t, s.Cycle(context.Background()))
	assert.Zero(t, led.Count())
	assert.GreaterOrEqual(t, mkt.Len("EUR/USD"), before, "thin series kept alive")
}

// Stub collaborators for deterministic pipeline tests.

type stubComputer struct {
	confidences map[string]int
}

func (c stubComputer) Compute(symbol string, window []domain.Candle, opts domain.ComputeOptions) *domain.Candidate {
	conf, ok := c.confidences[symbol]
	if !ok {
		return nil
	}
	last := window[len(window)-1]
	return &domain.Candidate{
		Symbol:     symbol,
		Direction:  domain.DirectionCall,
		Confidence: conf,
		Entry:      last.Close,
		EntryTS:    last.Time,
	}
}

type zeroScreen struct{}

func (zeroScreen) Score(window []domain.Candle) float64 { return 0 }

type noPatterns struct{}

func (noPatterns) Detect(window []domain.Candle) domain.TagSet { return nil }

type flatSentiment struct{}

func (flatSentiment) Sentiment(symbol string, window []domain.Candle) float64 { return 0 }

type neutralDeep struct{}

func (neutralDeep) Estimate(symbol string, window []domain.Candle) domain.SentimentBias {
	return domain.SentimentBias{Score: 50}
}

type fixedRisk struct {
	score float64
}

func (f fixedRisk) Score(ctx context.Context, in domain.RiskInput) (domain.RiskResult, error) {
	return domain.RiskResult{RiskScore: f.score}, nil
}

type noBoost struct{}

func (noBoost) Boost(f domain.FeatureFlags) float64 { return 0 }

func stubCollaborators(confidences map[string]int, risk float64) Collaborators {
	return Collaborators{
		Computer:      stubComputer{confidences: confidences},
		Manipulation:  zeroScreen{},
		Patterns:      noPatterns{},
		Sentiment:     flatSentiment{},
		DeepSentiment: neutralDeep{},
		Risk:          fixedRisk{score: risk},
		Booster:       noBoost{},
	}
}

func TestAutoPickRespectsFloor(t *testing.T) {
	symbols := []string{"LOW/PAIR", "HIGH/PAIR"}
	collab := stubCollaborators(map[string]int{"LOW/PAIR": 40, "HIGH/PAIR": 60}, 0)
	s, mkt, _ := newScanner(t, symbols, collab, nil)
	for _, sym := range symbols {
		feedTrend(mkt, sym, 200, 1.0, 0)
	}

	picked, ok := s.AutoPick()
	require.True(t, ok)
	assert.Equal(t, "HIGH/PAIR", picked)

	weak, _, _ := newScanner(t, []string{"LOW/PAIR"}, collab, nil)
	_, ok = weak.AutoPick()
	assert.False(t, ok)
}

func TestAutoPickBelowFloorDeclines(t *testing.T) {
	collab := stubCollaborators(map[string]int{"LOW/PAIR": 40}, 0)
	s, mkt, _ := newScanner(t, []string{"LOW/PAIR"}, collab, nil)
	feedTrend(mkt, "LOW/PAIR", 200, 1.0, 0)

	_, ok := s.AutoPick()
	assert.False(t, ok)
}

func TestScoreAllRanksAndLimits(t *testing.T) {
	symbols := []string{"A/USD", "B/USD", "C/USD"}
	collab := stubCollaborators(map[string]int{"A/USD": 55, "B/USD": 70, "C/USD": 60}, 0)
	s, mkt, _ := newScanner(t, symbols, collab, nil)
	for _, sym := range symbols {
		feedTrend(mkt, sym, 200, 1.0, 0)
	}

	scores := s.ScoreAll(2)
	require.Len(t, scores, 2)
	assert.Equal(t, "B/USD", scores[0].Symbol)
	assert.Equal(t, "C/USD", scores[1].Symbol)
	require.NotNil(t, scores[0].Candidate)
}

func TestRequestKeepsWeightedConfidence(t *testing.T) {
	collab := stubCollaborators(map[string]int{"EUR/USD": 60}, 0)
	s, mkt, led := newScanner(t, []string{"EUR/USD"}, collab, nil)
	feedTrend(mkt, "EUR/USD", 200, 1.09, 0)

	sig, hold := s.Request(context.Background(), "EUR/USD", false)
	require.NotNil(t, sig, "hold: %s", hold)
	assert.Equal(t, 60, sig.Confidence, "on-demand path does not fold the verdict score")
	assert.Equal(t, 1, led.Count())
}

func TestRequestHoldReasons(t *testing.T) {
	collab := stubCollaborators(map[string]int{"LOW/PAIR": 40}, 0)
	s, mkt, _ := newScanner(t, []string{"LOW/PAIR", "THIN/PAIR"}, collab, nil)
	feedTrend(mkt, "LOW/PAIR", 200, 1.0, 0)

	_, hold := s.Request(context.Background(), "NOPE/PAIR", false)
	assert.Equal(t, HoldUnknownPair, hold)

	_, hold = s.Request(context.Background(), "THIN/PAIR", false)
	assert.Equal(t, HoldWarmingUp, hold)

	_, hold = s.Request(context.Background(), "", false)
	assert.Equal(t, HoldNoAutoPick, hold, "best score below the auto-pick floor")

	_, hold = s.Request(context.Background(), "LOW/PAIR", false)
	assert.Equal(t, HoldLowConfidence, hold)
}

func TestRequestHighRiskHolds(t *testing.T) {
	collab := stubCollaborators(map[string]int{"EUR/USD": 80}, 90)
	s, mkt, led := newScanner(t, []string{"EUR/USD"}, collab, nil)
	feedTrend(mkt, "EUR/USD", 200, 1.09, 0)

	sig, hold := s.Request(context.Background(), "EUR/USD", false)
	assert.Nil(t, sig)
	assert.Equal(t, HoldRiskHigh, hold)
	assert.Zero(t, led.Count())
}

func TestCycleRiskAbortsEmission(t *testing.T) {
	collab := stubCollaborators(map[string]int{"EUR/USD": 80}, 90)
	s, mkt, led := newScanner(t, []string{"EUR/USD"}, collab, nil)
	feedTrend(mkt, "EUR/USD", 200, 1.09, 0)

	assert.Nil(t, s.Cycle(context.Background()))
	assert.Zero(t, led.Count())
}

func TestCyclePublishesPreSignalBeforeSignal(t *testing.T) {
	bus := memory.NewSignalBus()
	publisher := events.NewPublisher(bus, testLogger())
	collab := stubCollaborators(map[string]int{"EUR/USD": 80}, 0)
	s, mkt, _ := newScanner(t, []string{"EUR/USD"}, collab, publisher)
	feedTrend(mkt, "EUR/USD", 200, 1.09, 0)

	ctx := context.Background()
	preCh, err := bus.Subscribe(ctx, domain.ChannelPreSignal)
	require.NoError(t, err)

	require.NotNil(t, s.Cycle(ctx))

	select {
	case payload := <-preCh:
		var ev domain.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		assert.Equal(t, domain.ChannelPreSignal, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no pre-signal advisory")
	}
}
