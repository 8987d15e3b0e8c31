package sim

import (
	"math"

	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/randomness"
	"github.com/rangelab/vaxsim/internal/rates"
)

const componentDisease = "disease"

// Disease is the SIS state machine. Susceptible entities acquire infection
// at the stratum's incidence hazard reduced by their current vaccine
// protection; infected entities recover at the remission hazard, which the
// vaccine does not affect. Exactly one transition may apply per entity per
// step.
type Disease struct {
	rates  *rates.Table
	stream *randomness.Stream
}

// NewDisease wires the disease process for one run.
func NewDisease(rt *rates.Table, stream *randomness.Stream) *Disease {
	return &Disease{rates: rt, stream: stream}
}

// Step samples disease transitions for every alive entity. It must run
// after the vaccination step so infection risk reflects this step's
// protection, not last step's.
func (d *Disease) Step(pop *population.Table, clock *Clock) error {
	stepYears := clock.StepYears()
	now := clock.Now()
	year := clock.Year()
	step := clock.Step()

	return pop.ForEachAlive(func(e *population.Entity) error {
		switch e.DiseaseState {
		case population.Susceptible:
			hazard, err := d.rates.Lookup(rates.MeasureIncidence, e.Age, e.Sex, year)
			if err != nil {
				return NewSamplingError(componentDisease, step, stratumLabel(e.Age, e.Sex, year), err)
			}
			// Vaccine reduces but never eliminates or inverts risk.
			scale := 1 - math.Min(1, math.Max(0, e.CumulativeEfficacy))
			p, err := hazardToProbability(hazard*scale, stepYears)
			if err != nil {
				return NewSamplingError(componentDisease, step, stratumLabel(e.Age, e.Sex, year), err)
			}
			if d.stream.Draw("disease/infection", step, e.RandKey) < p {
				e.DiseaseState = population.Infected
				e.LastInfectionTime = now
			}

		case population.Infected:
			hazard, err := d.rates.Lookup(rates.MeasureRemission, e.Age, e.Sex, year)
			if err != nil {
				return NewSamplingError(componentDisease, step, stratumLabel(e.Age, e.Sex, year), err)
			}
			p, err := hazardToProbability(hazard, stepYears)
			if err != nil {
				return NewSamplingError(componentDisease, step, stratumLabel(e.Age, e.Sex, year), err)
			}
			if d.stream.Draw("disease/remission", step, e.RandKey) < p {
				e.DiseaseState = population.Susceptible
				e.LastRemissionTime = now
			}
		}
		return nil
	})
}
