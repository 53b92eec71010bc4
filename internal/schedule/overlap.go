package schedule

// Range is a half-open wall clock interval [Start, End) on one day.
type Range struct {
	Start string
	End   string
}

// Overlaps reports whether r and o share any instant. Ranges that only touch
// at a boundary do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether clock falls within [Start, End).
func (r Range) Contains(clock string) bool {
	return r.Start <= clock && clock < r.End
}

// OverlapsAny reports whether candidate overlaps at least one of existing.
func OverlapsAny(candidate Range, existing []Range) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}
