// Package testutil provides fixture builders shared by simulation tests.
package testutil

import (
	"time"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/rates"
)

// RateSet names the constant hazards for a fixture table.
type RateSet struct {
	Incidence       float64
	Remission       float64
	Mortality       float64
	ExcessMortality float64
	BirthRate       float64
	ReferencePop    float64
}

// ConstantRates builds a rate table with one all-ages, both-sexes stratum
// per measure covering years 2000-2100.
func ConstantRates(set RateSet) (*rates.Table, error) {
	b := rates.NewBuilder()
	add := func(m rates.Measure, v float64) {
		b.AddCell(rates.Cell{
			Measure:   m,
			AgeStart:  0,
			AgeEnd:    120,
			Sex:       "both",
			YearStart: 2000,
			YearEnd:   2100,
			Value:     v,
		})
	}
	add(rates.MeasureIncidence, set.Incidence)
	add(rates.MeasureRemission, set.Remission)
	add(rates.MeasureBackgroundMortality, set.Mortality)
	if set.ExcessMortality > 0 {
		add(rates.MeasureExcessMortality, set.ExcessMortality)
	}
	if set.BirthRate > 0 {
		add(rates.MeasureCrudeBirthRate, set.BirthRate)
	}
	if set.ReferencePop > 0 {
		b.AddReferencePopulation(2000, set.ReferencePop)
	}
	return b.Build()
}

// BaseConfig returns a small, valid run configuration: 1000 entities aged
// [0, 5), one year of daily steps, no vaccine, all observers off.
func BaseConfig() config.Config {
	c := config.Default()
	c.PopulationSize = 1000
	c.RandomSeed = 42
	c.MapSize = 100000
	c.StartDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.EndDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.StepSizeDays = 1
	return c
}
