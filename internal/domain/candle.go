// Package domain defines the core types shared across the sniper server:
// candles, signals, the symbol registry, and the interfaces implemented by
// the scoring collaborators, the signal bus, and the persistence layer.
package domain

// Candle is a fixed-resolution OHLCV aggregate of ticks. Time is the bucket
// start in Unix seconds. Within a symbol's series Time is strictly
// increasing and unique.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Range returns the candle's high-low span.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the signed open-to-close move.
func (c Candle) Body() float64 {
	return c.Close - c.Open
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Closes extracts the close series from a candle window.
func Closes(window []Candle) []float64 {
	out := make([]float64, len(window))
	for i, c := range window {
		out[i] = c.Close
	}
	return out
}
