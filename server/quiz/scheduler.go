package quiz

import (
	"math"

	"github.com/hrygo/adaptiq/store"
)

// ScheduleDistribution maps an ability estimate and a requested total to
// per-difficulty counts. Threshold bands on theta select base ratios for easy
// and hard; medium takes the remainder. The hard count absorbs rounding error
// so the three counts always sum exactly to n, including n = 0.
func ScheduleDistribution(theta float64, n int) map[store.Difficulty]int {
	if n < 0 {
		n = 0
	}

	var easyRatio, hardRatio float64
	switch {
	case theta > 1.5:
		easyRatio, hardRatio = 0.05, 0.55
	case theta > 0.5:
		easyRatio, hardRatio = 0.15, 0.40
	case theta < -0.5:
		easyRatio, hardRatio = 0.50, 0.20
	default:
		easyRatio, hardRatio = 0.30, 0.30
	}
	mediumRatio := 1.0 - easyRatio - hardRatio

	easy := int(math.Round(easyRatio * float64(n)))
	medium := int(math.Round(mediumRatio * float64(n)))
	hard := n - easy - medium

	return map[store.Difficulty]int{
		store.Easy:   easy,
		store.Medium: medium,
		store.Hard:   hard,
	}
}
