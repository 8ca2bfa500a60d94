// Package scanner runs the periodic multi-symbol evaluation loop: every
// interval it screens the whole watchlist through the veto cascade, ranks
// the survivors, and pushes the single best candidate through the emission
// pipeline.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/infouniverseforloop/binary/internal/clock"
	"github.com/infouniverseforloop/binary/internal/domain"
	"github.com/infouniverseforloop/binary/internal/events"
	"github.com/infouniverseforloop/binary/internal/filter"
	"github.com/infouniverseforloop/binary/internal/ledger"
	"github.com/infouniverseforloop/binary/internal/market"
	"github.com/infouniverseforloop/binary/internal/overseer"
	"github.com/infouniverseforloop/binary/internal/scorer"
)

// Config holds the scan-loop thresholds.
type Config struct {
	Interval               time.Duration
	MinHistory             int
	WindowSize             int
	ManipulationVeto       float64
	MaxRisk                float64
	MinBroadcastConfidence int
	AutoPick               bool
	AutoPickMinScore       float64
	ExpirySeconds          int64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Interval:               3500 * time.Millisecond,
		MinHistory:             140,
		WindowSize:             300,
		ManipulationVeto:       85,
		MaxRisk:                65,
		MinBroadcastConfidence: 45,
		AutoPick:               true,
		AutoPickMinScore:       50,
		ExpirySeconds:          60,
	}
}

// Collaborators are the pluggable analysis stages.
type Collaborators struct {
	Computer      domain.SignalComputer
	Manipulation  domain.ManipulationScreen
	Patterns      domain.PatternDetector
	Sentiment     domain.SentimentSource
	DeepSentiment domain.DeepSentimentEstimator
	Risk          domain.RiskScorer
	Booster       domain.ConfidenceBooster
}

// Notifier receives emitted signals for out-of-band delivery. Delivery
// failures must not block the emission path.
type Notifier interface {
	SignalEmitted(ctx context.Context, sig domain.Signal)
}

// Scanner owns the scan loop and the shared emission pipeline used by both
// the loop and on-demand requests from the connection layer.
type Scanner struct {
	cfg        Config
	market     *market.Store
	registry   *domain.Registry
	ledger     *ledger.Ledger
	overseer   *overseer.Overseer
	martingale *overseer.Martingale
	collab     Collaborators
	publisher  *events.Publisher
	clock      *clock.Clock
	notifier   Notifier
	store      domain.SignalStore
	logger     *slog.Logger

	lock     domain.LockManager
	scanning atomic.Bool
}

// New wires a scanner. publisher, notifier, and store may be nil.
func New(
	cfg Config,
	mkt *market.Store,
	registry *domain.Registry,
	led *ledger.Ledger,
	ovr *overseer.Overseer,
	mtg *overseer.Martingale,
	collab Collaborators,
	publisher *events.Publisher,
	clk *clock.Clock,
	notifier Notifier,
	store domain.SignalStore,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		cfg:        cfg,
		market:     mkt,
		registry:   registry,
		ledger:     led,
		overseer:   ovr,
		martingale: mtg,
		collab:     collab,
		publisher:  publisher,
		clock:      clk,
		notifier:   notifier,
		store:      store,
		logger:     logger.With(slog.String("component", "scanner")),
	}
}

// WithLock makes scan cycles take a distributed lock first, so only one
// node of a fleet scans per tick. Returns the scanner for chaining.
func (s *Scanner) WithLock(lm domain.LockManager) *Scanner {
	s.lock = lm
	return s
}

// Run executes scan cycles on the configured interval until ctx is
// canceled. A cycle that overruns the interval causes the next tick to be
// skipped, never queued.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.scanning.CompareAndSwap(false, true) {
				s.logger.Debug("previous cycle still running, skipping tick")
				continue
			}
			s.lockedCycle(ctx)
			s.scanning.Store(false)
		}
	}
}

func (s *Scanner) lockedCycle(ctx context.Context) {
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, "scan-cycle", s.cfg.Interval)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				s.logger.Warn("scan lock unavailable", slog.String("error", err.Error()))
			}
			return
		}
		defer release()
	}
	s.Cycle(ctx)
}

// evaluation is one symbol's surviving output of the veto cascade.
type evaluation struct {
	symbol    string
	mode      domain.RegimeMode
	manip     float64
	candidate *domain.Candidate
	composite float64
}

// Cycle runs one full scan: evaluate every watched symbol, rank survivors
// by composite score, and run the top candidate through emission. It
// returns the emitted signal, or nil when the cycle ended without one.
func (s *Scanner) Cycle(ctx context.Context) *domain.Signal {
	var survivors []evaluation
	for _, symbol := range s.registry.Symbols() {
		ev, reason := s.evaluate(symbol, domain.ComputeOptions{})
		if ev == nil {
			s.logger.Debug("symbol skipped",
				slog.String("symbol", symbol),
				slog.String("reason", reason),
			)
			continue
		}
		survivors = append(survivors, *ev)
	}

	if len(survivors) == 0 {
		return nil
	}

	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].composite > survivors[j].composite
	})

	top := survivors[0]
	sig, reason := s.emit(ctx, top, true)
	if sig == nil {
		s.logger.Debug("top candidate aborted",
			slog.String("symbol", top.symbol),
			slog.String("reason", reason),
		)
		return nil
	}
	return sig
}

// evaluate runs the veto cascade for one symbol. A nil evaluation means the
// symbol sat out this cycle for the returned reason.
func (s *Scanner) evaluate(symbol string, opts domain.ComputeOptions) (*evaluation, string) {
	if s.market.Len(symbol) < s.cfg.MinHistory {
		// Keep thin series alive so warmup completes even on a quiet feed.
		s.market.SimulateTick(symbol)
		return nil, "insufficient history"
	}

	window := s.market.Window(symbol, s.cfg.WindowSize)

	mode := filter.DetectRegime(window)
	if mode == domain.RegimeNoTrade {
		return nil, "regime no-trade"
	}

	manip := s.collab.Manipulation.Score(window)
	if manip > s.cfg.ManipulationVeto {
		return nil, "manipulation veto"
	}

	cand := s.collab.Computer.Compute(symbol, window, opts)
	if cand == nil {
		return nil, "no edge"
	}

	if res := filter.CheckDivergence(window); res.Forbid {
		return nil, res.Reason
	}
	if res := filter.CheckLiquiditySweep(window); res.Forbid {
		return nil, res.Reason
	}

	deep := s.collab.DeepSentiment.Estimate(symbol, window)
	composite := float64(cand.Confidence) + float64(deep.Bias) - manip*0.1

	return &evaluation{
		symbol:    symbol,
		mode:      mode,
		manip:     manip,
		candidate: cand,
		composite: composite,
	}, ""
}

// emit runs the shared emission pipeline for a surviving candidate.
// foldVerdict selects the loop behavior where the overseer score joins the
// final confidence; on-demand requests keep the weighted confidence. The
// returned reason explains an abort.
func (s *Scanner) emit(ctx context.Context, ev evaluation, foldVerdict bool) (*domain.Signal, string) {
	window := s.market.Window(ev.symbol, s.cfg.WindowSize)

	patterns := s.collab.Patterns.Detect(window)
	sentiment := s.collab.Sentiment.Sentiment(ev.symbol, window)
	weighted := scorer.ApplyWeights(*ev.candidate, sentiment, patterns)

	risk, err := s.collab.Risk.Score(ctx, domain.RiskInput{
		Symbol:            ev.symbol,
		Candles:           window,
		ManipulationScore: ev.manip,
		Sentiment:         sentiment,
	})
	if err != nil {
		return nil, "risk scorer unavailable"
	}
	if risk.RiskScore > s.cfg.MaxRisk {
		return nil, "risk too high"
	}

	verdict := s.overseer.Decide(weighted)
	if !verdict.OK {
		if verdict.PreSignal {
			s.publishPreSignal(ctx, weighted, verdict.Score)
		}
		return nil, "overseer rejected"
	}
	if verdict.PreSignal {
		// Advisory heads-up precedes the full signal.
		s.publishPreSignal(ctx, weighted, verdict.Score)
	}

	boost := s.collab.Booster.Boost(domain.FeatureFlags{
		HasGapFill:          weighted.Notes.Has(domain.TagFVG),
		HasVolumeSpike:      weighted.Notes.Has(domain.TagVolSpike),
		HasManipulation:     ev.manip > 50,
		HasBreakOfStructure: weighted.Notes.Has(domain.TagBOS),
	})

	final := float64(weighted.Confidence) + boost
	if foldVerdict {
		final += verdict.Score
	}
	confidence := clampInt(int(math.Round(final)), 1, 99)
	if confidence < s.cfg.MinBroadcastConfidence {
		return nil, "confidence below broadcast floor"
	}

	advice := s.martingale.Suggest(confidence, risk.RiskScore, s.ledger.Recent(10))

	now := s.now()
	sig := domain.Signal{
		Symbol:        ev.symbol,
		Market:        string(domain.Classify(ev.symbol)),
		Direction:     weighted.Direction,
		Confidence:    confidence,
		Entry:         weighted.Entry,
		EntryTS:       weighted.EntryTS,
		EntryTimeISO:  time.Unix(weighted.EntryTS, 0).UTC().Format(time.RFC3339),
		ExpiryTS:      now.Unix() + s.cfg.ExpirySeconds,
		Notes:         weighted.Notes,
		Martingale:    advice,
		Mode:          ev.mode,
		CandleSize:    weighted.CandleSize,
		TimeISO:       now.UTC().Format(time.RFC3339),
		ServerTimeISO: now.UTC().Format(time.RFC3339),
	}
	sig = s.ledger.Append(sig)

	s.logger.Info("signal emitted",
		slog.Int64("id", sig.ID),
		slog.String("symbol", sig.Symbol),
		slog.String("direction", string(sig.Direction)),
		slog.Int("confidence", sig.Confidence),
		slog.String("mode", string(sig.Mode)),
	)

	s.broadcast(ctx, sig)
	if s.notifier != nil {
		s.notifier.SignalEmitted(ctx, sig)
	}
	if s.store != nil {
		go s.persist(sig)
	}
	return &sig, ""
}

func (s *Scanner) publishPreSignal(ctx context.Context, cand domain.Candidate, score float64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PreSignal(ctx, cand, score); err != nil {
		s.logger.Warn("pre-signal publish failed", slog.String("error", err.Error()))
	}
}

func (s *Scanner) broadcast(ctx context.Context, sig domain.Signal) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Signal(ctx, sig); err != nil {
		s.logger.Warn("signal publish failed",
			slog.Int64("id", sig.ID),
			slog.String("error", err.Error()),
		)
	}
	msg := "Emitted " + string(sig.Direction) + " " + sig.Symbol
	if err := s.publisher.Log(ctx, msg); err != nil {
		s.logger.Warn("log publish failed", slog.String("error", err.Error()))
	}
}

func (s *Scanner) persist(sig domain.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Insert(ctx, sig); err != nil {
		s.logger.Warn("signal persist failed",
			slog.Int64("id", sig.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scanner) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
