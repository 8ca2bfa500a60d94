package scorer

import (
	"math"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// Patterns detects candle-shape structures over a trailing window. It
// implements domain.PatternDetector.
type Patterns struct{}

// NewPatterns creates the default pattern detector.
func NewPatterns() *Patterns { return &Patterns{} }

// Detect returns the structural tags present in the window. An empty set is
// a normal outcome, not a failure.
func (p *Patterns) Detect(window []domain.Candle) domain.TagSet {
	var tags domain.TagSet
	n := len(window)
	if n < 5 {
		return tags
	}

	last := window[n-1]
	prev := window[n-2]

	// Engulfing: last body fully covers and reverses the previous body.
	if math.Abs(last.Body()) > math.Abs(prev.Body()) &&
		last.Bullish() != prev.Bullish() &&
		math.Abs(prev.Body()) > 0 {
		tags = tags.Add(domain.TagEngulfing)
	}

	// Doji: negligible body inside a meaningful range.
	if last.Range() > 0 && math.Abs(last.Body()) < last.Range()*0.1 {
		tags = tags.Add(domain.TagDoji)
	}

	// Order block: a strong opposing candle immediately before a run of
	// same-direction candles, the classic institutional footprint.
	if n >= 4 {
		base := window[n-4]
		runUp := window[n-3].Bullish() && window[n-2].Bullish() && window[n-1].Bullish()
		runDown := !window[n-3].Bullish() && !window[n-2].Bullish() && !window[n-1].Bullish()
		if (runUp && !base.Bullish() && math.Abs(base.Body()) > 0) ||
			(runDown && base.Bullish() && math.Abs(base.Body()) > 0) {
			tags = tags.Add(domain.TagOrderBlock)
		}
	}

	return tags
}

var _ domain.PatternDetector = (*Patterns)(nil)
