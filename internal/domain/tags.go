package domain

// Tag is an enumerated marker attached to a candidate by the signal computer
// and the pattern detector. The overseer's structural bonus and the
// confidence booster's feature flags are membership tests over this set.
type Tag string

const (
	TagOrderBlock Tag = "order_block"
	TagFVG        Tag = "fvg"
	TagVolSpike   Tag = "vol_spike"
	TagBOS        Tag = "bos"
	TagEngulfing  Tag = "engulfing"
	TagDoji       Tag = "doji"
)

// TagSet is an ordered, duplicate-free set of tags.
type TagSet []Tag

// Has reports whether the set contains t.
func (s TagSet) Has(t Tag) bool {
	for _, x := range s {
		if x == t {
			return true
		}
	}
	return false
}

// Add returns the set with t appended, unless it is already present.
func (s TagSet) Add(t Tag) TagSet {
	if s.Has(t) {
		return s
	}
	return append(s, t)
}

// Merge returns the set with every tag of other added.
func (s TagSet) Merge(other TagSet) TagSet {
	for _, t := range other {
		s = s.Add(t)
	}
	return s
}
