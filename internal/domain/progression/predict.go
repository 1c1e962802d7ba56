package progression

import (
	"fmt"
	"math"

	"github.com/okian/ethos/internal/domain/trait"
)

// PredictionStatus classifies a prediction.
type PredictionStatus string

// Prediction statuses.
const (
	StatusOnTrack          PredictionStatus = "on_track"
	StatusNoRecentProgress PredictionStatus = "no_recent_progress"
	StatusMaxLevel         PredictionStatus = "max_level"
)

// Prediction is a linear extrapolation towards the next milestone.
// EstimatedUpdates is only meaningful when Status is StatusOnTrack.
type Prediction struct {
	Trait            string           `json:"trait"`
	Current          float64          `json:"current"`
	NextMilestone    float64          `json:"next_milestone"`
	Remaining        float64          `json:"remaining"`
	AverageDelta     float64          `json:"average_delta"`
	EstimatedUpdates int              `json:"estimated_updates,omitempty"`
	Status           PredictionStatus `json:"status"`
	Message          string           `json:"message"`
}

// PredictNextMilestone divides the distance to the next milestone by the mean
// of recentDeltas. A non-positive or undefined mean (or no samples) yields
// StatusNoRecentProgress instead of a number.
func PredictNextMilestone(name string, value float64, recentDeltas []float64) Prediction {
	p := trait.ProgressToNextMilestone(value)
	pred := Prediction{
		Trait:         name,
		Current:       value,
		NextMilestone: p.Next,
		Remaining:     p.Remaining,
	}
	if p.Terminal {
		pred.Status = StatusMaxLevel
		pred.Message = "Max level reached"
		return pred
	}

	var sum float64
	for _, d := range recentDeltas {
		sum += d
	}
	if len(recentDeltas) > 0 {
		pred.AverageDelta = sum / float64(len(recentDeltas))
	}
	if !(pred.AverageDelta > 0) { // also catches NaN
		pred.Status = StatusNoRecentProgress
		pred.Message = "No recent progress"
		return pred
	}

	pred.EstimatedUpdates = int(math.Ceil(p.Remaining / pred.AverageDelta))
	pred.Status = StatusOnTrack
	pred.Message = fmt.Sprintf("About %d more updates to reach %g", pred.EstimatedUpdates, p.Next)
	return pred
}
