// Package scorer provides the built-in implementations of the collaborator
// contracts declared in domain: the base signal computer, the manipulation
// screen, pattern detection, sentiment estimation, risk scoring, and the
// learned confidence booster. Each is independently replaceable; the
// pipeline treats every one as a black box that may decline.
package scorer

import (
	"math"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const (
	computeLookback = 20
	minEdgeLoose    = 4
	minEdgeStrict   = 6
)

// Computer derives a base candidate from trend persistence and body
// momentum over the trailing candles. It implements domain.SignalComputer.
type Computer struct{}

// NewComputer creates the default signal computer.
func NewComputer() *Computer { return &Computer{} }

// Compute returns a directional candidate when the trailing 20 candles show
// a persistent edge, or nil when the tape is undecided. Confirmed mode
// (RequireFullConfirmation) demands a stronger edge; ForceNext lowers the
// bar to a single-candle majority so "next" requests always get a read.
func (c *Computer) Compute(symbol string, window []domain.Candle, opts domain.ComputeOptions) *domain.Candidate {
	if len(window) < 30 {
		return nil
	}
	last := window[len(window)-computeLookback:]

	// Close-to-close steps rather than candle bodies: thin feeds often give
	// single-tick candles whose open equals their close.
	var up, down int
	for i := 1; i < len(last); i++ {
		switch {
		case last[i].Close > last[i-1].Close:
			up++
		case last[i].Close < last[i-1].Close:
			down++
		}
	}
	edge := up - down
	if edge < 0 {
		edge = -edge
	}

	minEdge := minEdgeLoose
	if opts.RequireFullConfirmation {
		minEdge = minEdgeStrict
	}
	if opts.ForceNext {
		minEdge = 1
	}
	if edge < minEdge {
		return nil
	}

	first := last[0].Close
	lastClose := last[len(last)-1].Close
	momentum := 0.0
	if first != 0 {
		momentum = (lastClose - first) / first
	}

	dir := domain.DirectionCall
	if down > up || (down == up && momentum < 0) {
		dir = domain.DirectionPut
	}

	conf := 50 + edge*2 + int(clamp(momentum*500, -8, 8))
	if conf > 85 {
		conf = 85
	}
	if conf < 35 {
		conf = 35
	}

	lastCandle := last[len(last)-1]
	return &domain.Candidate{
		Symbol:     symbol,
		Direction:  dir,
		Confidence: conf,
		Entry:      lastCandle.Close,
		EntryTS:    lastCandle.Time,
		CandleSize: math.Abs(lastCandle.Body()),
		Notes:      detectNotes(window),
	}
}

// detectNotes tags the candidate with the structural features the booster
// and overseer read: gap fills, volume spikes, and breaks of structure.
func detectNotes(window []domain.Candle) domain.TagSet {
	var notes domain.TagSet
	n := len(window)

	// Volume spike: last candle volume well above the trailing-20 mean.
	var avgVol float64
	for _, b := range window[n-computeLookback:] {
		avgVol += b.Volume
	}
	avgVol /= computeLookback
	if avgVol > 0 && window[n-1].Volume > 2.5*avgVol {
		notes = notes.Add(domain.TagVolSpike)
	}

	// Fair value gap: candle i's low clears candle i-2's high (or mirrored)
	// anywhere in the last 10 candles.
	for i := n - 10; i < n; i++ {
		if i < 2 {
			continue
		}
		if window[i].Low > window[i-2].High || window[i].High < window[i-2].Low {
			notes = notes.Add(domain.TagFVG)
			break
		}
	}

	// Break of structure: last close beyond the prior 20-candle extreme.
	prior := window[n-computeLookback : n-1]
	hi, lo := prior[0].High, prior[0].Low
	for _, b := range prior {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	if window[n-1].Close > hi || window[n-1].Close < lo {
		notes = notes.Add(domain.TagBOS)
	}

	return notes
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

var _ domain.SignalComputer = (*Computer)(nil)
