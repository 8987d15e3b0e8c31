package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rangelab/vaxsim/internal/config"
)

func TestClock_StartsAtStart(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, end, 1)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, int64(0), c.Step())
	assert.False(t, c.Done())
}

func TestClock_AdvancesByFixedStep(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, end, 2)

	c.Advance()
	assert.Equal(t, start.AddDate(0, 0, 2), c.Now())
	assert.Equal(t, int64(1), c.Step())

	steps := 1
	for !c.Done() {
		c.Advance()
		steps++
	}
	assert.Equal(t, 5, steps, "10 days at 2-day steps")
}

func TestClock_StepYears(t *testing.T) {
	c := NewClock(time.Now(), time.Now().AddDate(1, 0, 0), 1)
	assert.InDelta(t, 1/config.DaysPerYear, c.StepYears(), 1e-12)

	c = NewClock(time.Now(), time.Now().AddDate(1, 0, 0), 365.25)
	assert.InDelta(t, 1.0, c.StepYears(), 1e-12)
}

func TestClock_DoneAtOrPastEnd(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, start.AddDate(0, 0, 3), 2)

	assert.False(t, c.Done())
	c.Advance() // day 2
	assert.False(t, c.Done())
	c.Advance() // day 4, past end
	assert.True(t, c.Done())
}

func TestClock_Year(t *testing.T) {
	start := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, start.AddDate(0, 0, 10), 1)
	assert.Equal(t, 2025, c.Year())
	c.Advance()
	assert.Equal(t, 2026, c.Year())
}
