package trait

import "math"

// Milestone thresholds, ascending.
var Thresholds = [...]float64{25, 50, 75, 100}

// MaxValue is the top of the trait scale.
const MaxValue = 100

// Level names.
const (
	Novice     = "Novice"
	Apprentice = "Apprentice"
	Proficient = "Proficient"
	Expert     = "Expert"
	Master     = "Master"
)

// LevelInfo is the discrete level of a trait value.
type LevelInfo struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
}

// LevelOf maps value onto five levels with breakpoints at 25/50/75/100.
// 100 itself is Master.
func LevelOf(value float64) LevelInfo {
	switch {
	case value >= 100:
		return LevelInfo{Level: 5, Name: Master}
	case value >= 75:
		return LevelInfo{Level: 4, Name: Expert}
	case value >= 50:
		return LevelInfo{Level: 3, Name: Proficient}
	case value >= 25:
		return LevelInfo{Level: 2, Name: Apprentice}
	default:
		return LevelInfo{Level: 1, Name: Novice}
	}
}

// Progress describes how far value is from the next milestone threshold.
type Progress struct {
	Current   float64 `json:"current"`
	Next      float64 `json:"next"`
	Previous  float64 `json:"previous"`
	Percent   float64 `json:"progress_percent"`
	Remaining float64 `json:"remaining"`
	Terminal  bool    `json:"terminal"`
}

// ProgressToNextMilestone finds the smallest threshold strictly above value
// and interpolates progress from the previous threshold (or 0). At or above
// 100 the result is terminal with 100% progress.
func ProgressToNextMilestone(value float64) Progress {
	previous := 0.0
	for _, t := range Thresholds {
		if t > value {
			pct := (value - previous) / (t - previous) * 100
			return Progress{
				Current:   value,
				Next:      t,
				Previous:  previous,
				Percent:   clampPercent(pct),
				Remaining: t - value,
			}
		}
		previous = t
	}
	return Progress{
		Current:   value,
		Next:      MaxValue,
		Previous:  MaxValue,
		Percent:   100,
		Remaining: 0,
		Terminal:  true,
	}
}

// Clamp bounds value to [0, 100] for display. NaN becomes 0.
func Clamp(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Max(0, math.Min(MaxValue, value))
}

func clampPercent(p float64) float64 {
	return Clamp(p)
}
