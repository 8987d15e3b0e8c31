package randomness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalQuantile_MedianIsMean(t *testing.T) {
	assert.InDelta(t, 10.0, NormalQuantile(0.5, 10, 2), 1e-9)
}

func TestNormalQuantile_ZeroSDDegenerates(t *testing.T) {
	assert.Equal(t, 10.0, NormalQuantile(0.1, 10, 0))
	assert.Equal(t, 10.0, NormalQuantile(0.9, 10, 0))
}

func TestNormalQuantile_Monotone(t *testing.T) {
	prev := NormalQuantile(0.01, 0, 1)
	for p := 0.02; p < 1; p += 0.01 {
		q := NormalQuantile(p, 0, 1)
		assert.Greater(t, q, prev)
		prev = q
	}
}

func TestBetaQuantile_ZeroSDDegenerates(t *testing.T) {
	v, err := BetaQuantile(0.3, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	// Degenerate endpoints are allowed when there is no spread.
	v, err = BetaQuantile(0.9, 1.0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestBetaQuantile_InUnitInterval(t *testing.T) {
	for p := 0.01; p < 1; p += 0.01 {
		v, err := BetaQuantile(p, 0.34, 0.21)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestBetaQuantile_RejectsImpossibleSpread(t *testing.T) {
	// sigma^2 >= mu*(1-mu) has no beta parameterization.
	_, err := BetaQuantile(0.5, 0.5, 0.6)
	assert.Error(t, err)

	_, err = BetaQuantile(0.5, 1.0, 0.1)
	assert.Error(t, err)
}

func TestPoissonCount_ZeroRate(t *testing.T) {
	n, err := PoissonCount(0.99, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPoissonCount_SmallVariateGivesZero(t *testing.T) {
	// P(X=0) = exp(-1) ~ 0.368, so a variate below that maps to zero.
	n, err := PoissonCount(0.1, 1.0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPoissonCount_LargeVariateGivesPositive(t *testing.T) {
	n, err := PoissonCount(0.999, 5.0)
	require.NoError(t, err)
	assert.Greater(t, n, int64(5))
}

func TestPoissonCount_MeanMatchesRate(t *testing.T) {
	s := NewStream(11)
	const rate = 3.0
	const draws = 5000
	var total int64
	for i := 0; i < draws; i++ {
		n, err := PoissonCount(s.Draw("births", int64(i), 0), rate)
		require.NoError(t, err)
		total += n
	}
	assert.InDelta(t, rate, float64(total)/draws, 0.1)
}

func TestPoissonCount_RejectsBadRate(t *testing.T) {
	_, err := PoissonCount(0.5, -1)
	assert.Error(t, err)
}
