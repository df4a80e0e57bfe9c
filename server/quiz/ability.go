package quiz

import (
	"math"

	"github.com/hrygo/adaptiq/store"
)

// Difficulty weights for the optional weighted average response time. Hard
// questions legitimately take longer; weighting keeps that from inflating
// the average into the disengagement bucket.
var timeWeights = map[store.Difficulty]float64{
	store.Easy:   0.5,
	store.Medium: 1.0,
	store.Hard:   1.5,
}

// EstimateAbility computes the user's ability estimate theta from response
// history. Returns 0.0 for empty history and a finite value for the
// degenerate all-wrong and all-right cases.
//
// theta = ln(correct / (total - correct + 1)) - time_penalty, rounded to two
// decimals. The +1 in the denominator is Laplace smoothing: it keeps the
// ratio finite and positive when correct equals total or zero.
func EstimateAbility(records []*store.ResponseRecord, weighted bool) float64 {
	total := len(records)
	if total == 0 {
		return 0.0
	}

	correct := 0
	var timeSum, weightSum float64
	for _, r := range records {
		if r.IsCorrect {
			correct++
		}
		w := 1.0
		if weighted {
			if tw, ok := timeWeights[r.Difficulty]; ok {
				w = tw
			}
		}
		timeSum += float64(r.TimeTaken) * w
		weightSum += w
	}

	avgTime := 0.0
	if weightSum > 0 {
		avgTime = timeSum / weightSum
	}

	// Laplace smoothing keeps the ratio finite when correct == total; the
	// all-wrong case needs the numerator smoothed too or ln(0) = -Inf.
	ratio := float64(correct) / float64(total-correct+1)
	if correct == 0 {
		ratio = 1.0 / float64(total+1)
	}

	theta := math.Log(ratio) - timePenalty(avgTime)
	return math.Round(theta*100) / 100
}

// timePenalty maps average response time to a fixed penalty. The low buckets
// penalize likely guessing, the highest penalizes likely disengagement.
func timePenalty(avgSeconds float64) float64 {
	switch {
	case avgSeconds < 3:
		return 0.3
	case avgSeconds < 7:
		return 0.2
	case avgSeconds < 90:
		return 0.0
	case avgSeconds < 120:
		return 0.1
	default:
		return 0.2
	}
}
