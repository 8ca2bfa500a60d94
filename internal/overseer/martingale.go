package overseer

import "github.com/infouniverseforloop/binary/internal/domain"

const (
	martingaleRiskCutoff = 60
	martingaleLookback   = 10
)

// Martingale advises whether doubling down after losses is acceptable for
// the signal about to be emitted. The decision is advisory only; stake
// management stays on the client side.
type Martingale struct{}

// NewMartingale creates the stake advisor.
func NewMartingale() *Martingale { return &Martingale{} }

// Suggest walks the ladder: ambient risk forbids first, then a cold streak,
// then confidence tiers pick the factor. recent is read newest-last and
// only resolved entries count toward the loss rate.
func (m *Martingale) Suggest(confidence int, riskScore float64, recent []domain.Signal) domain.MartingaleAdvice {
	lossRate := recentLossRate(recent)

	advice := domain.MartingaleAdvice{
		LossRate:  lossRate,
		RiskScore: riskScore,
	}

	switch {
	case riskScore >= martingaleRiskCutoff:
		advice.Decision = domain.MartingaleNo
		advice.Reason = "ambient risk too high for recovery sizing"
	case lossRate > 0.6:
		advice.Decision = domain.MartingaleNo
		advice.Reason = "cold streak, stand down"
	case confidence >= 75:
		advice.Decision = domain.MartingaleSuggest
		advice.Reason = "high conviction setup"
		advice.Factor = 2
	case confidence >= 60 && lossRate < 0.3:
		advice.Decision = domain.MartingaleSuggest
		advice.Reason = "steady tape, moderate conviction"
		advice.Factor = 1.5
	default:
		advice.Decision = domain.MartingaleNo
		advice.Reason = "edge too thin"
	}
	return advice
}

func recentLossRate(signals []domain.Signal) float64 {
	start := len(signals) - martingaleLookback
	if start < 0 {
		start = 0
	}

	var resolved, losses int
	for _, s := range signals[start:] {
		switch s.Result {
		case domain.ResultWin:
			resolved++
		case domain.ResultLoss:
			resolved++
			losses++
		}
	}
	if resolved == 0 {
		return 0
	}
	return float64(losses) / float64(resolved)
}
