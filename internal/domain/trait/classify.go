// Package trait classifies character traits and derives levels, milestone
// progress and moral alignment from trait values.
//
// Every function in this package is pure and total over its input domain.
// Trait values are expected in [0, 100]; values outside that range are not
// rejected here and follow the same breakpoint arithmetic.
package trait

import "strings"

// Category is the moral bucket a trait belongs to.
type Category string

// Trait categories.
const (
	Virtue  Category = "virtue"
	Vice    Category = "vice"
	Neutral Category = "neutral"
)

// Snapshot maps trait names to values in [0, 100].
type Snapshot map[string]float64

// Clone returns an independent copy of s. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

var virtues = map[string]struct{}{
	"courage":    {},
	"honesty":    {},
	"compassion": {},
	"wisdom":     {},
	"justice":    {},
	"temperance": {},
	"loyalty":    {},
	"humility":   {},
	"generosity": {},
	"patience":   {},
}

var vices = map[string]struct{}{
	"greed":     {},
	"wrath":     {},
	"pride":     {},
	"envy":      {},
	"sloth":     {},
	"gluttony":  {},
	"deceit":    {},
	"cruelty":   {},
	"cowardice": {},
	"vanity":    {},
}

// Normalize trims and lower-cases a trait name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Classify returns the category of name. Unknown names are Neutral.
func Classify(name string) Category {
	n := Normalize(name)
	if _, ok := virtues[n]; ok {
		return Virtue
	}
	if _, ok := vices[n]; ok {
		return Vice
	}
	return Neutral
}

// Buckets is a snapshot partitioned by category.
type Buckets struct {
	Virtues Snapshot `json:"virtues"`
	Vices   Snapshot `json:"vices"`
	Neutral Snapshot `json:"neutral"`
}

// Partition splits s into its three categories, preserving values.
func Partition(s Snapshot) Buckets {
	b := Buckets{
		Virtues: Snapshot{},
		Vices:   Snapshot{},
		Neutral: Snapshot{},
	}
	for name, v := range s {
		switch Classify(name) {
		case Virtue:
			b.Virtues[name] = v
		case Vice:
			b.Vices[name] = v
		default:
			b.Neutral[name] = v
		}
	}
	return b
}
