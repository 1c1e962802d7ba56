package progression

import "math"

// Change is one trait's signed delta.
type Change struct {
	Trait string  `json:"trait"`
	Delta float64 `json:"delta"`
}

// Trends summarizes a set of deltas.
type Trends struct {
	FastestGrowing   *Change `json:"fastest_growing,omitempty"`
	FastestDeclining *Change `json:"fastest_declining,omitempty"`
	TotalChange      float64 `json:"total_change"`
}

// FastestGrowing returns the trait with the largest signed delta. Ties go to
// the lexically first name.
func FastestGrowing(d Deltas) (Change, bool) {
	return extreme(d, func(a, b float64) bool { return a > b })
}

// FastestDeclining returns the trait with the smallest signed delta.
func FastestDeclining(d Deltas) (Change, bool) {
	return extreme(d, func(a, b float64) bool { return a < b })
}

// TotalChange sums the absolute deltas.
func TotalChange(d Deltas) float64 {
	var sum float64
	for _, v := range d {
		sum += math.Abs(v)
	}
	return sum
}

// TrendsOf bundles the three summaries.
func TrendsOf(d Deltas) Trends {
	t := Trends{TotalChange: TotalChange(d)}
	if c, ok := FastestGrowing(d); ok {
		t.FastestGrowing = &c
	}
	if c, ok := FastestDeclining(d); ok {
		t.FastestDeclining = &c
	}
	return t
}

func extreme(d Deltas, better func(a, b float64) bool) (Change, bool) {
	var (
		best  Change
		found bool
	)
	for _, name := range sortedKeys(d) {
		v := d[name]
		if !found || better(v, best.Delta) {
			best = Change{Trait: name, Delta: v}
			found = true
		}
	}
	return best, found
}
