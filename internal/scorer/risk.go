package scorer

import (
	"context"
	"log/slog"
	"math"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// Risk combines manipulation, realized volatility, sentiment extremity, and
// the news window into a bounded risk score. It implements
// domain.RiskScorer.
type Risk struct {
	news   domain.NewsChecker
	logger *slog.Logger
}

// NewRisk creates the default risk scorer. news may be nil, in which case
// the news component contributes nothing.
func NewRisk(news domain.NewsChecker, logger *slog.Logger) *Risk {
	return &Risk{
		news:   news,
		logger: logger.With(slog.String("component", "risk_scorer")),
	}
}

// Score returns a risk score in 0..100. A news-checker failure is logged
// and ignored; the rest of the score still stands.
func (r *Risk) Score(ctx context.Context, in domain.RiskInput) (domain.RiskResult, error) {
	score := in.ManipulationScore * 0.4

	// Realized volatility over the trailing 40 candles, as range share of
	// price, scaled so a volatile regime lands around 30.
	if len(in.Candles) >= 40 {
		last := in.Candles[len(in.Candles)-40:]
		hi, lo := last[0].High, last[0].Low
		for _, c := range last {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}
		ref := last[len(last)-1].Close
		if ref > 0 {
			score += clamp((hi-lo)/ref*1500, 0, 30)
		}
	}

	// Extreme sentiment in either direction is crowd risk.
	score += math.Abs(in.Sentiment) * 10

	if r.news != nil {
		high, err := r.news.HighImpact(ctx, in.Symbol)
		if err != nil {
			r.logger.Warn("news check failed",
				slog.String("symbol", in.Symbol),
				slog.String("error", err.Error()),
			)
		} else if high {
			score += 40
		}
	}

	return domain.RiskResult{RiskScore: clamp(score, 0, 100)}, nil
}

var _ domain.RiskScorer = (*Risk)(nil)
