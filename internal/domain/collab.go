package domain

import "context"

// ComputeOptions tunes one invocation of the signal computer.
type ComputeOptions struct {
	// RequireFullConfirmation demands a stronger edge before a candidate is
	// produced; the connection layer tries this mode first and falls back to
	// the loose mode on failure.
	RequireFullConfirmation bool

	// ForceNext relaxes the edge requirement so a "next" request always gets
	// a directional read when any history exists.
	ForceNext bool
}

// SignalComputer produces a base candidate from a symbol's candle history.
// A nil return means no opportunity this cycle; it is not an error.
type SignalComputer interface {
	Compute(symbol string, window []Candle, opts ComputeOptions) *Candidate
}

// ManipulationScreen scores how manipulated the recent tape looks, 0..100.
// Scores above the configured veto threshold exclude the symbol for the
// current iteration.
type ManipulationScreen interface {
	Score(window []Candle) float64
}

// PatternDetector extracts structural tags from a candle window.
type PatternDetector interface {
	Detect(window []Candle) TagSet
}

// SentimentSource produces a slow-moving per-symbol sentiment in [-1, 1].
type SentimentSource interface {
	Sentiment(symbol string, window []Candle) float64
}

// SentimentBias is the deep-sentiment estimate folded into the composite
// ranking score.
type SentimentBias struct {
	Bias  int `json:"bias"`
	Score int `json:"score"`
}

// DeepSentimentEstimator derives a micro-sentiment bias from recent candle
// behavior.
type DeepSentimentEstimator interface {
	Estimate(symbol string, window []Candle) SentimentBias
}

// RiskInput bundles everything the risk scorer looks at.
type RiskInput struct {
	Symbol            string
	Candles           []Candle
	ManipulationScore float64
	Sentiment         float64
}

// RiskResult carries the bounded risk score, 0..100.
type RiskResult struct {
	RiskScore float64 `json:"risk_score"`
}

// RiskScorer computes a risk score for a prospective signal. It may perform
// I/O (news lookups) and so takes a context; a failure is treated by callers
// as "no signal this cycle".
type RiskScorer interface {
	Score(ctx context.Context, in RiskInput) (RiskResult, error)
}

// FeatureFlags are the inputs to the learned confidence booster.
type FeatureFlags struct {
	HasGapFill          bool
	HasVolumeSpike      bool
	HasManipulation     bool
	HasBreakOfStructure bool
}

// ConfidenceBooster returns a numeric confidence adjustment from feature
// flags observed on the candidate.
type ConfidenceBooster interface {
	Boost(f FeatureFlags) float64
}

// NewsChecker reports whether a high-impact news window is open for a
// symbol. The default implementation always answers false.
type NewsChecker interface {
	HighImpact(ctx context.Context, symbol string) (bool, error)
}
