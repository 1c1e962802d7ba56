package progression

import (
	"sort"

	"github.com/okian/ethos/internal/domain/trait"
)

// Deltas maps trait names to current minus previous. Only non-zero changes
// are present.
type Deltas map[string]float64

// Milestone is a threshold crossed upward between two snapshots.
type Milestone struct {
	Trait     string       `json:"trait"`
	Value     float64      `json:"value"`
	Threshold int          `json:"threshold"`
	Rewards   RewardBundle `json:"rewards"`
}

// Result is everything a single diff produces.
type Result struct {
	Deltas     Deltas      `json:"deltas"`
	Milestones []Milestone `json:"milestones"`
	Unlocks    []Unlock    `json:"unlocks"`
}

// Empty reports whether the diff detected no change at all.
func (r Result) Empty() bool {
	return len(r.Deltas) == 0 && len(r.Milestones) == 0 && len(r.Unlocks) == 0
}

// Diff compares current against previous. Every key of current is visited in
// name order so the first milestone of a batch is deterministic; a key
// missing from previous counts as 0. Keys only present in previous are
// ignored.
func Diff(previous, current trait.Snapshot) Result {
	res := Result{
		Deltas:     Deltas{},
		Milestones: []Milestone{},
		Unlocks:    []Unlock{},
	}

	for _, name := range sortedKeys(current) {
		cur := current[name]
		prev := previous[name]
		delta := cur - prev
		if delta == 0 {
			continue
		}
		res.Deltas[name] = delta

		for _, t := range trait.Thresholds {
			if prev < t && t <= cur {
				th := int(t)
				res.Milestones = append(res.Milestones, Milestone{
					Trait:     name,
					Value:     cur,
					Threshold: th,
					Rewards:   RewardsFor(name, th),
				})
			}
		}

		if th, ok := exactUnlockThreshold(cur); ok {
			if u, ok := NewUnlock(name, th); ok {
				res.Unlocks = append(res.Unlocks, u)
			}
		}
	}
	return res
}

func exactUnlockThreshold(v float64) (int, bool) {
	switch v {
	case 50, 75, 100:
		return int(v), true
	default:
		return 0, false
	}
}

func sortedKeys[M ~map[string]float64](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
