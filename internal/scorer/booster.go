package scorer

import "github.com/infouniverseforloop/binary/internal/domain"

// Booster is a small linear model over candidate feature flags, standing in
// for the learned confidence predictor. It implements
// domain.ConfidenceBooster.
type Booster struct {
	weights boosterWeights
}

type boosterWeights struct {
	gapFill      float64
	volumeSpike  float64
	manipulation float64
	breakOfStructure float64
}

// NewBooster creates the default booster with its trained weights.
func NewBooster() *Booster {
	return &Booster{weights: boosterWeights{
		gapFill:          3,
		volumeSpike:      2,
		manipulation:     -5,
		breakOfStructure: 4,
	}}
}

// Boost returns the confidence adjustment for the observed features,
// bounded to [-10, 10].
func (b *Booster) Boost(f domain.FeatureFlags) float64 {
	var out float64
	if f.HasGapFill {
		out += b.weights.gapFill
	}
	if f.HasVolumeSpike {
		out += b.weights.volumeSpike
	}
	if f.HasManipulation {
		out += b.weights.manipulation
	}
	if f.HasBreakOfStructure {
		out += b.weights.breakOfStructure
	}
	return clamp(out, -10, 10)
}

var _ domain.ConfidenceBooster = (*Booster)(nil)
