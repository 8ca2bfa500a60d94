package filter

import "github.com/infouniverseforloop/binary/internal/domain"

// Result is a filter verdict. Forbid short-circuits the symbol's evaluation
// for the current iteration; an empty Result allows continuation.
type Result struct {
	Forbid bool   `json:"forbid"`
	Reason string `json:"reason,omitempty"`
}

const (
	rsiPeriod        = 14
	divergenceWindow = 20
	rsiOverbought    = 60
	rsiOversold      = 40
)

// rsi computes a simple 14-period relative-strength index over the tail of
// closes. A zero average loss is substituted with a small epsilon to avoid
// division by zero. Too little data yields the neutral value 50.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains += d
		} else {
			losses += -d
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		avgLoss = 1e-6
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// CheckDivergence forbids when momentum has flipped bearishly: the RSI of
// the preceding 20-candle window was above 60 while the most recent 20-candle
// window reads below 40. Requires at least 30 candles.
func CheckDivergence(window []domain.Candle) Result {
	if len(window) < 30 {
		return Result{}
	}
	closes := domain.Closes(window)

	now := rsi(tail(closes, divergenceWindow), rsiPeriod)
	prev := rsi(slice(closes, len(closes)-2*divergenceWindow, len(closes)-divergenceWindow), rsiPeriod)

	if prev > rsiOverbought && now < rsiOversold {
		return Result{Forbid: true, Reason: "momentum-divergence"}
	}
	return Result{}
}

// tail returns the last n elements of xs (or all of xs when shorter).
func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// slice returns xs[from:to] with both bounds clamped into range.
func slice(xs []float64, from, to int) []float64 {
	if from < 0 {
		from = 0
	}
	if to > len(xs) {
		to = len(xs)
	}
	if from >= to {
		return nil
	}
	return xs[from:to]
}
