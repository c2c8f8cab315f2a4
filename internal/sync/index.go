package sync

// LengthRange tracks the shortest and longest sentence of a category.
// The zero value is empty.
type LengthRange struct {
	Min, Max int
	seen     bool
}

// Observe folds one sentence length into the range. The first observation
// initialises both ends; ties keep the current extremum.
func (r *LengthRange) Observe(length int) {
	if !r.seen {
		r.Min, r.Max, r.seen = length, length, true
		return
	}
	if length < r.Min {
		r.Min = length
	}
	if length > r.Max {
		r.Max = length
	}
}

// Empty reports whether nothing was observed.
func (r *LengthRange) Empty() bool {
	return !r.seen
}
