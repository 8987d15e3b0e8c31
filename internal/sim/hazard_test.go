package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHazardToProbability_ZeroHazard(t *testing.T) {
	p, err := hazardToProbability(0, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestHazardToProbability_KnownValue(t *testing.T) {
	// One unit of hazard over one year: p = 1 - exp(-1).
	p, err := hazardToProbability(1.0, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 1-math.Exp(-1), p, 1e-12)
}

func TestHazardToProbability_ScalesWithStep(t *testing.T) {
	full, err := hazardToProbability(2.0, 1.0)
	require.NoError(t, err)
	half, err := hazardToProbability(2.0, 0.5)
	require.NoError(t, err)
	assert.Less(t, half, full)
	assert.InDelta(t, 1-math.Exp(-1), half, 1e-12)
}

func TestHazardToProbability_LargeHazardApproachesOne(t *testing.T) {
	p, err := hazardToProbability(1e9, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 1e-12)
}

func TestHazardToProbability_RejectsMalformedHazards(t *testing.T) {
	for _, h := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := hazardToProbability(h, 1.0)
		assert.Error(t, err, "hazard %v must be rejected", h)
	}
}
