package scorer

import (
	"math"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// ApplyWeights folds sentiment and detected patterns into a candidate's
// confidence, returning the weighted copy. The input candidate is not
// mutated.
func ApplyWeights(cand domain.Candidate, sentiment float64, patterns domain.TagSet) domain.Candidate {
	out := cand
	out.Notes = append(domain.TagSet(nil), cand.Notes...)
	out.Notes = out.Notes.Merge(patterns)

	adj := int(math.Round(sentiment*10)) + 2*len(patterns)
	out.Confidence = clampInt(cand.Confidence+adj, 1, 99)
	return out
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
