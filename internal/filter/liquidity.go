package filter

import "github.com/infouniverseforloop/binary/internal/domain"

const (
	sweepLookback   = 10
	sweepRangeShare = 0.6
)

// CheckLiquiditySweep forbids when the most recent candle's high-low range
// exceeds 60% of the trailing-10 high-low range: a single sweep candle
// dominating recent volatility, typical of a stop hunt. Requires at least
// 20 candles.
func CheckLiquiditySweep(window []domain.Candle) Result {
	if len(window) < 20 {
		return Result{}
	}
	last10 := window[len(window)-sweepLookback:]

	high := last10[0].High
	low := last10[0].Low
	for _, c := range last10 {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	last := last10[len(last10)-1]
	if last.Range() > (high-low)*sweepRangeShare {
		return Result{Forbid: true, Reason: "liquidity-sweep"}
	}
	return Result{}
}
