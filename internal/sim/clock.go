package sim

import (
	"time"

	"github.com/rangelab/vaxsim/internal/config"
)

// Clock is the simulation's monotonic step clock.
//
// It advances only forward, in fixed steps of StepDays, and stamps every
// stochastic decision with its step number so draws are attributable to the
// step they were made in. One Clock belongs to exactly one run.
type Clock struct {
	start    time.Time
	end      time.Time
	stepDays float64
	current  time.Time
	step     int64
}

// NewClock creates a clock covering [start, end) with the given step size.
func NewClock(start, end time.Time, stepDays float64) *Clock {
	return &Clock{start: start, end: end, stepDays: stepDays, current: start}
}

// Now returns the current simulated date.
func (c *Clock) Now() time.Time {
	return c.current
}

// Step returns the current step number, starting at 0.
func (c *Clock) Step() int64 {
	return c.step
}

// StepDays returns the fixed step size in days.
func (c *Clock) StepDays() float64 {
	return c.stepDays
}

// StepYears returns the step size as a fraction of a year.
func (c *Clock) StepYears() float64 {
	return c.stepDays / config.DaysPerYear
}

// Year returns the current calendar year.
func (c *Clock) Year() int {
	return c.current.Year()
}

// Advance moves the clock forward by one step.
func (c *Clock) Advance() {
	c.current = c.current.Add(time.Duration(c.stepDays * 24 * float64(time.Hour)))
	c.step++
}

// Done reports whether the clock has reached or passed the end date.
func (c *Clock) Done() bool {
	return !c.current.Before(c.end)
}
