package scorer

import (
	"math"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// Manipulation screens a candle window for tape that looks painted: long
// wicks relative to bodies and isolated volume anomalies. It implements
// domain.ManipulationScreen.
type Manipulation struct{}

// NewManipulation creates the default manipulation screen.
func NewManipulation() *Manipulation { return &Manipulation{} }

// Score returns 0..100; higher means more manipulated-looking. Scores above
// the scanner's veto threshold exclude the symbol for the iteration.
func (m *Manipulation) Score(window []domain.Candle) float64 {
	if len(window) < 20 {
		return 0
	}
	last := window[len(window)-20:]

	// Wick dominance: share of candles whose wicks dwarf the body.
	var wicky int
	var volSum, volSqSum float64
	for _, c := range last {
		body := math.Abs(c.Body())
		if c.Range() > 0 && body < c.Range()*0.25 {
			wicky++
		}
		volSum += c.Volume
		volSqSum += c.Volume * c.Volume
	}

	n := float64(len(last))
	mean := volSum / n
	variance := volSqSum/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	// Volume anomaly: z-score of the most recent candle's volume.
	var zScore float64
	if std > 0 {
		zScore = math.Abs(last[len(last)-1].Volume-mean) / std
	}

	score := float64(wicky)/n*60 + clamp(zScore*10, 0, 40)
	return clamp(score, 0, 100)
}

var _ domain.ManipulationScreen = (*Manipulation)(nil)
