// Package overseer holds the final gate a candidate passes before it may
// become a signal, and the martingale stake advisor attached to emitted
// signals.
package overseer

import (
	"log/slog"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const (
	defaultMinConfidence = 45
	orderBlockBonus      = 6
	preSignalMargin      = 10
)

// Overseer re-scores a weighted candidate and decides whether it clears the
// emission bar. Scores within a margin below the bar still produce an
// advisory pre-signal verdict.
type Overseer struct {
	minConfidence int
	logger        *slog.Logger
}

// New creates an overseer. minConfidence <= 0 selects the default bar.
func New(minConfidence int, logger *slog.Logger) *Overseer {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	return &Overseer{
		minConfidence: minConfidence,
		logger:        logger.With(slog.String("component", "overseer")),
	}
}

// Decide returns the verdict for a candidate. The score starts from the
// candidate's weighted confidence, earns a bonus when an order block backs
// the setup, and is kept inside [1, 99].
func (o *Overseer) Decide(cand domain.Candidate) domain.Verdict {
	score := float64(cand.Confidence)
	if cand.Notes.Has(domain.TagOrderBlock) {
		score += orderBlockBonus
	}
	if score < 1 {
		score = 1
	}
	if score > 99 {
		score = 99
	}

	v := domain.Verdict{
		Score:     score,
		OK:        score >= float64(o.minConfidence),
		PreSignal: score >= float64(o.minConfidence-preSignalMargin),
	}

	o.logger.Debug("verdict",
		slog.String("symbol", cand.Symbol),
		slog.Float64("score", score),
		slog.Bool("ok", v.OK),
		slog.Bool("pre_signal", v.PreSignal),
	)
	return v
}
