package progression

import "fmt"

// Tier names the unlock tier reached at a threshold.
type Tier string

// Unlock tiers.
const (
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
	TierMaster       Tier = "master"
)

// TierFor returns the tier bound to an unlock threshold.
func TierFor(threshold int) (Tier, bool) {
	switch threshold {
	case 50:
		return TierIntermediate, true
	case 75:
		return TierAdvanced, true
	case 100:
		return TierMaster, true
	default:
		return "", false
	}
}

// Multiplier scales effect magnitudes for the tier.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierIntermediate:
		return 1
	case TierAdvanced:
		return 1.5
	case TierMaster:
		return 2
	default:
		return 1
	}
}

// RewardBundle is what a milestone pays out.
type RewardBundle struct {
	XP      int      `json:"xp"`
	Credits int      `json:"credits"`
	Unlocks []string `json:"unlocks,omitempty"`
}

// RewardsFor computes the bundle for reaching threshold on the named trait.
// Unlock identifiers are attached from threshold 50 upward.
func RewardsFor(name string, threshold int) RewardBundle {
	r := RewardBundle{
		XP:      threshold * 2,
		Credits: threshold * 5,
	}
	if tier, ok := TierFor(threshold); ok {
		r.Unlocks = []string{UnlockID(name, tier)}
	}
	return r
}

// UnlockID is the stable identifier of the ability granted for name at tier.
func UnlockID(name string, tier Tier) string {
	return fmt.Sprintf("%s_%s", name, tier)
}
