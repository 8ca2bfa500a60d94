// Package filter holds the pure veto evaluators that run ahead of signal
// scoring: the regime detector, the momentum-divergence check, and the
// liquidity-sweep check. Each is a pure function of a trailing candle
// window; a too-short window means "not yet evaluable", never an error.
package filter

import "github.com/infouniverseforloop/binary/internal/domain"

const (
	regimeWindow        = 40
	volatileRangeRatio  = 0.02
	highLiquidityVolume = 1000
)

// DetectRegime classifies the market regime over the trailing 40 candles.
// Fewer than 40 candles yields RegimeNoTrade, which short-circuits the
// whole evaluation for that symbol this iteration.
func DetectRegime(window []domain.Candle) domain.RegimeMode {
	if len(window) < regimeWindow {
		return domain.RegimeNoTrade
	}
	last := window[len(window)-regimeWindow:]

	high := last[0].High
	low := last[0].Low
	var vol float64
	for _, c := range last {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		vol += c.Volume
	}
	vol /= float64(len(last))

	ref := last[len(last)-1].Close
	if ref == 0 {
		ref = 1
	}
	if (high-low)/ref > volatileRangeRatio {
		return domain.RegimeVolatile
	}
	if vol > highLiquidityVolume {
		return domain.RegimeHighLiquidity
	}
	return domain.RegimeNormal
}
