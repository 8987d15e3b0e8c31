package randomness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalQuantile maps a uniform variate to a normal variate by inverse CDF.
// A zero standard deviation degenerates to the mean.
func NormalQuantile(p, mean, sd float64) float64 {
	if sd == 0 {
		return mean
	}
	return distuv.Normal{Mu: mean, Sigma: sd}.Quantile(p)
}

// BetaQuantile maps a uniform variate to a beta variate parameterized by
// mean and standard deviation:
//
//	alpha = mu * (mu*(1-mu)/sigma^2 - 1)
//	beta  = (1-mu) * (mu*(1-mu)/sigma^2 - 1)
//
// A zero standard deviation degenerates to the mean. The parameterization
// requires sigma^2 < mu*(1-mu); anything else is a malformed input.
func BetaQuantile(p, mean, sd float64) (float64, error) {
	if sd == 0 {
		if mean < 0 || mean > 1 {
			return 0, fmt.Errorf("beta mean %v outside [0, 1]", mean)
		}
		return mean, nil
	}
	if mean <= 0 || mean >= 1 {
		return 0, fmt.Errorf("beta mean %v outside (0, 1) with sd %v", mean, sd)
	}
	nu := mean*(1-mean)/(sd*sd) - 1
	if nu <= 0 {
		return 0, fmt.Errorf("beta sd %v too large for mean %v", sd, mean)
	}
	d := distuv.Beta{Alpha: mean * nu, Beta: (1 - mean) * nu}
	return d.Quantile(p), nil
}

// PoissonCount maps a uniform variate to a Poisson count by walking the
// inverse CDF. The count is capped well past the distribution's mass so a
// pathological variate cannot loop unbounded.
func PoissonCount(p, lambda float64) (int64, error) {
	if lambda < 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return 0, fmt.Errorf("poisson rate %v out of range", lambda)
	}
	if lambda == 0 {
		return 0, nil
	}

	pmf := math.Exp(-lambda)
	cdf := pmf
	limit := int64(10*lambda) + 100
	for k := int64(0); k < limit; k++ {
		if p < cdf {
			return k, nil
		}
		pmf *= lambda / float64(k+1)
		cdf += pmf
	}
	return limit, nil
}
