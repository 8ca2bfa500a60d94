package scanner

import (
	"context"
	"sort"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// Hold reasons returned to on-demand requesters when no signal can be
// produced.
const (
	HoldNoAutoPick    = "No pairs available or no suitable auto-pick"
	HoldUnknownPair   = "Unknown pair"
	HoldWarmingUp     = "Collecting history for this pair. Hold"
	HoldNoOpportunity = "No confirmed opportunity right now. Hold"
	HoldRiskHigh      = "Risk high (news/manip). Hold"
	HoldLowConfidence = "Confidence too low"
)

// ScoreAll evaluates every watched symbol in loose mode and returns the
// survivors ranked best first, at most limit rows.
func (s *Scanner) ScoreAll(limit int) []domain.SymbolScore {
	var scores []domain.SymbolScore
	for _, symbol := range s.registry.Symbols() {
		ev, _ := s.evaluate(symbol, domain.ComputeOptions{})
		if ev == nil {
			continue
		}
		scores = append(scores, domain.SymbolScore{
			Symbol:    ev.symbol,
			Score:     ev.composite,
			Candidate: ev.candidate,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

// AutoPick returns the best-scoring symbol when its score clears the
// auto-pick floor.
func (s *Scanner) AutoPick() (string, bool) {
	scores := s.ScoreAll(1)
	if len(scores) == 0 || scores[0].Score < s.cfg.AutoPickMinScore {
		return "", false
	}
	return scores[0].Symbol, true
}

// Request serves a start/next request from the connection layer. An empty
// symbol asks for an auto-pick. Confirmed evaluation is tried first, then
// the loose mode; forceNext further relaxes the edge requirement. On
// success the signal has already been ledgered and broadcast. The returned
// hold reason is set exactly when the signal is nil.
func (s *Scanner) Request(ctx context.Context, symbol string, forceNext bool) (*domain.Signal, string) {
	if symbol == "" {
		if !s.cfg.AutoPick {
			return nil, HoldNoAutoPick
		}
		picked, ok := s.AutoPick()
		if !ok {
			return nil, HoldNoAutoPick
		}
		symbol = picked
	} else if !s.registry.Contains(symbol) {
		return nil, HoldUnknownPair
	}

	ev, reason := s.evaluate(symbol, domain.ComputeOptions{
		RequireFullConfirmation: true,
		ForceNext:               forceNext,
	})
	if ev == nil {
		if reason == "insufficient history" {
			return nil, HoldWarmingUp
		}
		ev, _ = s.evaluate(symbol, domain.ComputeOptions{ForceNext: forceNext})
	}
	if ev == nil {
		return nil, HoldNoOpportunity
	}

	sig, abort := s.emit(ctx, *ev, false)
	if sig != nil {
		return sig, ""
	}
	switch abort {
	case "risk too high", "risk scorer unavailable":
		return nil, HoldRiskHigh
	default:
		return nil, HoldLowConfidence
	}
}
