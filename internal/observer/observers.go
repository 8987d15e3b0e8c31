package observer

import (
	"fmt"
	"time"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/population"
)

var doseNames = [population.MaxDoses]string{"first", "second", "third"}

// vaccineObserver counts doses administered each step, keyed by dose
// ordinal and the configured strata.
type vaccineObserver struct {
	flags  config.ObserverFlags
	band   float64
	counts Results
}

func newVaccineObserver(f config.ObserverFlags, band float64) *vaccineObserver {
	return &vaccineObserver{flags: f, band: band, counts: make(Results)}
}

func (o *vaccineObserver) Name() string { return "vaccine_coverage" }

func (o *vaccineObserver) Collect(pop *population.Table, now time.Time, _ float64) {
	_ = pop.ForEachAlive(func(e *population.Entity) error {
		if !e.LastDoseTime.Equal(now) || e.DoseCount == 0 {
			return nil
		}
		ordinal := e.DoseCount - 1
		if ordinal >= population.MaxDoses {
			return nil
		}
		measure := fmt.Sprintf("vaccine_%s_dose_count", doseNames[ordinal])
		o.counts[stratumKey(measure, o.flags, o.band, e.Age, e.Sex, now.Year())]++
		return nil
	})
}

func (o *vaccineObserver) Finalize() Results { return o.counts }

// diseaseObserver tallies incident cases, remissions, and infected
// person-time.
type diseaseObserver struct {
	flags  config.ObserverFlags
	band   float64
	counts Results
}

func newDiseaseObserver(f config.ObserverFlags, band float64) *diseaseObserver {
	return &diseaseObserver{flags: f, band: band, counts: make(Results)}
}

func (o *diseaseObserver) Name() string { return "disease" }

func (o *diseaseObserver) Collect(pop *population.Table, now time.Time, stepYears float64) {
	year := now.Year()
	_ = pop.ForEachAlive(func(e *population.Entity) error {
		if e.LastInfectionTime.Equal(now) {
			o.counts[stratumKey("incident_case_count", o.flags, o.band, e.Age, e.Sex, year)]++
		}
		if e.LastRemissionTime.Equal(now) {
			o.counts[stratumKey("remission_count", o.flags, o.band, e.Age, e.Sex, year)]++
		}
		if e.DiseaseState == population.Infected {
			o.counts[stratumKey("infected_person_time", o.flags, o.band, e.Age, e.Sex, year)] += stepYears
		}
		return nil
	})
}

func (o *diseaseObserver) Finalize() Results { return o.counts }

// mortalityObserver counts deaths. Aging out is an exit, not a death, and
// is deliberately excluded.
type mortalityObserver struct {
	flags  config.ObserverFlags
	band   float64
	counts Results
}

func newMortalityObserver(f config.ObserverFlags, band float64) *mortalityObserver {
	return &mortalityObserver{flags: f, band: band, counts: make(Results)}
}

func (o *mortalityObserver) Name() string { return "mortality" }

func (o *mortalityObserver) Collect(pop *population.Table, now time.Time, _ float64) {
	year := now.Year()
	_ = pop.ForEach(func(e *population.Entity) error {
		if e.ExitReason == population.ExitDied && e.ExitTime.Equal(now) {
			o.counts[stratumKey("death_count", o.flags, o.band, e.Age, e.Sex, year)]++
		}
		return nil
	})
}

func (o *mortalityObserver) Finalize() Results { return o.counts }

// disabilityObserver accumulates person-time lived in the infected state,
// the input to years-lived-with-disability estimates.
type disabilityObserver struct {
	flags  config.ObserverFlags
	band   float64
	counts Results
}

func newDisabilityObserver(f config.ObserverFlags, band float64) *disabilityObserver {
	return &disabilityObserver{flags: f, band: band, counts: make(Results)}
}

func (o *disabilityObserver) Name() string { return "disability" }

func (o *disabilityObserver) Collect(pop *population.Table, now time.Time, stepYears float64) {
	year := now.Year()
	_ = pop.ForEachAlive(func(e *population.Entity) error {
		if e.DiseaseState == population.Infected {
			o.counts[stratumKey("disability_person_time", o.flags, o.band, e.Age, e.Sex, year)] += stepYears
		}
		return nil
	})
}

func (o *disabilityObserver) Finalize() Results { return o.counts }
