package scorer

import "github.com/infouniverseforloop/binary/internal/domain"

// Sentiment derives a slow per-symbol sentiment in [-1, 1] from price drift
// over the trailing 50 candles. It implements domain.SentimentSource.
type Sentiment struct{}

// NewSentiment creates the default sentiment source.
func NewSentiment() *Sentiment { return &Sentiment{} }

// Sentiment returns the normalized drift of the window, clamped to [-1, 1].
func (s *Sentiment) Sentiment(symbol string, window []domain.Candle) float64 {
	const lookback = 50
	if len(window) < lookback {
		return 0
	}
	last := window[len(window)-lookback:]
	first := last[0].Close
	if first == 0 {
		return 0
	}
	drift := (last[len(last)-1].Close - first) / first
	return clamp(drift*100, -1, 1)
}

// DeepSentiment counts bullish versus bearish closes over the trailing 20
// candles. It implements domain.DeepSentimentEstimator.
type DeepSentiment struct{}

// NewDeepSentiment creates the default deep-sentiment estimator.
func NewDeepSentiment() *DeepSentiment { return &DeepSentiment{} }

// Estimate returns a bias of (buyers − sellers)/2 over the last 20 candles
// and a score centered on 50. Fewer than 20 candles yields the neutral
// estimate.
func (d *DeepSentiment) Estimate(symbol string, window []domain.Candle) domain.SentimentBias {
	const lookback = 20
	if len(window) < lookback {
		return domain.SentimentBias{Score: 50}
	}
	last := window[len(window)-lookback:]

	var buy, sell int
	for i, c := range last {
		switch {
		case c.Close > c.Open:
			buy++
		case c.Close < c.Open:
			sell++
		case i > 0 && c.Close > last[i-1].Close:
			buy++
		case i > 0 && c.Close < last[i-1].Close:
			sell++
		}
	}
	bias := (buy - sell) / 2
	return domain.SentimentBias{Bias: bias, Score: 50 + bias}
}

var (
	_ domain.SentimentSource        = (*Sentiment)(nil)
	_ domain.DeepSentimentEstimator = (*DeepSentiment)(nil)
)
