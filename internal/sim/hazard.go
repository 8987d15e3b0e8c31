package sim

import (
	"fmt"
	"math"
)

// hazardToProbability converts an instantaneous per-year hazard to the
// probability of the event occurring within a step of stepYears:
//
//	p = 1 - exp(-hazard * stepYears)
//
// A negative or non-finite hazard is malformed input and is rejected, not
// clamped.
func hazardToProbability(hazard, stepYears float64) (float64, error) {
	if hazard < 0 || math.IsNaN(hazard) || math.IsInf(hazard, 0) {
		return 0, fmt.Errorf("hazard %v out of range", hazard)
	}
	p := 1 - math.Exp(-hazard*stepYears)
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("hazard %v converted to probability %v outside [0, 1]", hazard, p)
	}
	return p, nil
}
