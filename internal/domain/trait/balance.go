package trait

// Alignment labels.
const (
	Virtuous     = "Virtuous"
	ViceInclined = "Vice-inclined"
	Balanced     = "Balanced"
)

const (
	// baseline is used for a bucket with no traits so an absent side reads as
	// neutral rather than zero.
	baseline        = 50
	alignmentSpread = 20
)

// AlignmentSummary is the moral standing derived from a snapshot.
type AlignmentSummary struct {
	VirtueScore float64 `json:"virtue_score"`
	ViceScore   float64 `json:"vice_score"`
	Balance     float64 `json:"balance"`
	Alignment   string  `json:"alignment"`
}

// BalanceOf averages the virtue and vice buckets of s and labels the gap.
func BalanceOf(s Snapshot) AlignmentSummary {
	b := Partition(s)
	virtue := mean(b.Virtues)
	vice := mean(b.Vices)
	balance := virtue - vice

	label := Balanced
	switch {
	case balance > alignmentSpread:
		label = Virtuous
	case balance < -alignmentSpread:
		label = ViceInclined
	}
	return AlignmentSummary{
		VirtueScore: virtue,
		ViceScore:   vice,
		Balance:     balance,
		Alignment:   label,
	}
}

func mean(s Snapshot) float64 {
	if len(s) == 0 {
		return baseline
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
