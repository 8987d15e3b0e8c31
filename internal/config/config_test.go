package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := Default()
	c.PopulationSize = 1000
	c.RandomSeed = 42
	c.StartDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.EndDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return c
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero population", func(c *Config) { c.PopulationSize = 0 }},
		{"zero map size", func(c *Config) { c.MapSize = 0 }},
		{"map smaller than population", func(c *Config) { c.MapSize = 10 }},
		{"zero step", func(c *Config) { c.StepSizeDays = 0 }},
		{"negative step", func(c *Config) { c.StepSizeDays = -1 }},
		{"missing dates", func(c *Config) { c.StartDate = time.Time{} }},
		{"non-monotonic dates", func(c *Config) { c.EndDate = c.StartDate }},
		{"inverted ages", func(c *Config) { c.AgeEnd = -1 }},
		{"exit age before seeded ages", func(c *Config) { c.ExitAge = 1; c.AgeEnd = 5 }},
		{"zero age band", func(c *Config) { c.AgeBandYears = 0 }},
		{"coverage above one", func(c *Config) { c.Vaccine.Coverage = 1.5 }},
		{"negative waning", func(c *Config) { c.Vaccine.WaningRate = -0.1 }},
		{"negative onset delay", func(c *Config) { c.Vaccine.OnsetDelayDays = -1 }},
		{"zero immunity duration", func(c *Config) { c.Vaccine.ImmunityDurationDays = 0 }},
		{"efficacy mean above one", func(c *Config) { c.Vaccine.Efficacy.Mean = 1.1 }},
		{"negative sd", func(c *Config) { c.Vaccine.Efficacy.SD = -0.1 }},
		{"catchup mean above one", func(c *Config) { c.Vaccine.CatchupFraction.Mean = 2 }},
		{"unknown schedule", func(c *Config) { c.Vaccine.Schedule = "8_11" }},
		{"single dose protected above one", func(c *Config) { c.Vaccine.SingleDoseProtected = 1.2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDoseWindows_BuiltinSchedules(t *testing.T) {
	c := validConfig()

	c.Vaccine.Schedule = ScheduleNone
	w, err := c.DoseWindows()
	require.NoError(t, err)
	assert.Empty(t, w)

	c.Vaccine.Schedule = ScheduleSixNine
	w, err = c.DoseWindows()
	require.NoError(t, err)
	require.Len(t, w, 2)
	assert.InDelta(t, 180/DaysPerYear, w[0][0], 1e-12)
	assert.InDelta(t, 270/DaysPerYear, w[0][1], 1e-12)
	assert.InDelta(t, 270/DaysPerYear, w[1][0], 1e-12)
	assert.InDelta(t, 300/DaysPerYear, w[1][1], 1e-12)

	c.Vaccine.Schedule = ScheduleNineTwelveFifteen
	w, err = c.DoseWindows()
	require.NoError(t, err)
	assert.Len(t, w, 3)
}

func TestDoseWindows_CustomUnits(t *testing.T) {
	c := validConfig()
	c.Vaccine.Schedule = ScheduleCustom
	c.Vaccine.CustomWindows = []AgeWindow{{MinDays: 6, MaxDays: 9}}

	// The window numbers are unit-agnostic; the unit is configuration.
	c.Vaccine.DoseAgeUnit = UnitWeeks
	w, err := c.DoseWindows()
	require.NoError(t, err)
	assert.InDelta(t, 6*7/DaysPerYear, w[0][0], 1e-12)

	c.Vaccine.DoseAgeUnit = UnitMonths
	w, err = c.DoseWindows()
	require.NoError(t, err)
	assert.InDelta(t, 6*(DaysPerYear/12)/DaysPerYear, w[0][0], 1e-12)

	c.Vaccine.DoseAgeUnit = "fortnights"
	_, err = c.DoseWindows()
	assert.Error(t, err)
}

func TestDoseWindows_RejectsEmptyWindow(t *testing.T) {
	c := validConfig()
	c.Vaccine.Schedule = ScheduleCustom
	c.Vaccine.CustomWindows = []AgeWindow{{MinDays: 9, MaxDays: 9}}
	_, err := c.DoseWindows()
	assert.Error(t, err)
}

func TestValidate_RejectsOutOfOrderWindows(t *testing.T) {
	c := validConfig()
	c.Vaccine.Schedule = ScheduleCustom
	c.Vaccine.CustomWindows = []AgeWindow{
		{MinDays: 270, MaxDays: 300},
		{MinDays: 180, MaxDays: 270},
	}
	assert.Error(t, c.Validate())
}
