package quiz

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/adaptiq/store"
)

func makeRecords(correct, total, timeTaken int) []*store.ResponseRecord {
	records := make([]*store.ResponseRecord, 0, total)
	for i := 0; i < total; i++ {
		records = append(records, &store.ResponseRecord{
			IsCorrect:  i < correct,
			TimeTaken:  timeTaken,
			Difficulty: store.Medium,
		})
	}
	return records
}

func TestEstimateAbilityEmptyHistory(t *testing.T) {
	require.Equal(t, 0.0, EstimateAbility(nil, false))
	require.Equal(t, 0.0, EstimateAbility([]*store.ResponseRecord{}, true))
}

func TestEstimateAbilityWorkedExample(t *testing.T) {
	// 8 of 10 correct, 5s average: ln(8/3) - 0.2 = 0.78.
	theta := EstimateAbility(makeRecords(8, 10, 5), false)
	require.Equal(t, 0.78, theta)
}

func TestEstimateAbilityDegenerateCases(t *testing.T) {
	// All wrong: the raw formula would hit ln(0); the smoothed numerator
	// gives ln(1/6) = -1.79 for 0 of 5 at a penalty-free pace.
	allWrong := EstimateAbility(makeRecords(0, 5, 10), false)
	require.False(t, math.IsInf(allWrong, 0) || math.IsNaN(allWrong))
	require.Equal(t, -1.79, allWrong)

	allRight := EstimateAbility(makeRecords(5, 5, 10), false)
	require.False(t, math.IsInf(allRight, 0) || math.IsNaN(allRight))
	// ln(5/1) = 1.61, no penalty at 10s.
	require.Equal(t, 1.61, allRight)
}

func TestTimePenaltyBuckets(t *testing.T) {
	tests := []struct {
		avg  float64
		want float64
	}{
		{0, 0.3},
		{2.9, 0.3},
		{3, 0.2},
		{6.9, 0.2},
		{7, 0.0},
		{89.9, 0.0},
		{90, 0.1},
		{119.9, 0.1},
		{120, 0.2},
		{600, 0.2},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, timePenalty(tt.avg), "avg=%v", tt.avg)
	}
}

func TestEstimateAbilityWeightedTime(t *testing.T) {
	// One easy at 4s (weight 0.5) and one hard at 8s (weight 1.5):
	// unweighted average is 6s (penalty 0.2), weighted is
	// (4*0.5 + 8*1.5) / 2.0 = 7s (no penalty).
	records := []*store.ResponseRecord{
		{IsCorrect: true, TimeTaken: 4, Difficulty: store.Easy},
		{IsCorrect: true, TimeTaken: 8, Difficulty: store.Hard},
	}

	unweighted := EstimateAbility(records, false)
	weighted := EstimateAbility(records, true)
	require.InDelta(t, 0.2, weighted-unweighted, 1e-9)
}
