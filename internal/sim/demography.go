package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/randomness"
	"github.com/rangelab/vaxsim/internal/rates"
)

const componentDemography = "demography"

// Demographics advances age, applies mortality, ages entities out of the
// cohort, and adds births from a crude birth rate.
type Demographics struct {
	cfg    *config.Config
	rates  *rates.Table
	stream *randomness.Stream
	index  *randomness.IndexMap

	// birthScale converts the reference population's birth rate to the
	// simulated cohort: initial sim size / true population at run start.
	birthScale float64

	// onCreate runs for every newborn so the vaccination model can sample
	// its per-entity quantities before the entity is first processed.
	onCreate func(*population.Entity) error
}

// NewDemographics wires the demographic process for one run.
func NewDemographics(cfg *config.Config, rt *rates.Table, stream *randomness.Stream, index *randomness.IndexMap) (*Demographics, error) {
	d := &Demographics{cfg: cfg, rates: rt, stream: stream, index: index}
	if cfg.Fertility {
		if err := rt.Validate(rates.MeasureCrudeBirthRate); err != nil {
			return nil, err
		}
		refPop, err := rt.ReferencePopulation(cfg.StartDate.Year())
		if err != nil {
			return nil, fmt.Errorf("fertility requires a reference population: %w", err)
		}
		if refPop <= 0 {
			return nil, fmt.Errorf("reference population %v must be positive", refPop)
		}
		d.birthScale = float64(cfg.PopulationSize) / refPop
	}
	if cfg.DiseaseMortality {
		if err := rt.Validate(rates.MeasureExcessMortality); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SetOnCreate registers the newborn initialization hook.
func (d *Demographics) SetOnCreate(fn func(*population.Entity) error) {
	d.onCreate = fn
}

// Step ages every alive entity by one step, applies aging-out and mortality,
// then adds this step's births.
func (d *Demographics) Step(pop *population.Table, clock *Clock) error {
	stepYears := clock.StepYears()
	now := clock.Now()
	year := clock.Year()
	step := clock.Step()

	err := pop.ForEachAlive(func(e *population.Entity) error {
		e.Age += stepYears

		// Aging out removes the entity from observation without touching
		// the mortality tallies.
		if e.Age >= d.cfg.ExitAge {
			pop.Exit(e, now, population.ExitAgedOut)
			return nil
		}

		hazard, err := d.rates.Lookup(rates.MeasureBackgroundMortality, e.Age, e.Sex, year)
		if err != nil {
			return NewSamplingError(componentDemography, step, stratumLabel(e.Age, e.Sex, year), err)
		}
		if d.cfg.DiseaseMortality && e.DiseaseState == population.Infected {
			excess, err := d.rates.Lookup(rates.MeasureExcessMortality, e.Age, e.Sex, year)
			if err != nil {
				return NewSamplingError(componentDemography, step, stratumLabel(e.Age, e.Sex, year), err)
			}
			hazard += excess
		}

		p, err := hazardToProbability(hazard, stepYears)
		if err != nil {
			return NewSamplingError(componentDemography, step, stratumLabel(e.Age, e.Sex, year), err)
		}
		if d.stream.Draw("demography/mortality", step, e.RandKey) < p {
			pop.Exit(e, now, population.ExitDied)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return d.addBirths(pop, clock)
}

func (d *Demographics) addBirths(pop *population.Table, clock *Clock) error {
	if !d.cfg.Fertility {
		return nil
	}
	rate, err := d.rates.Lookup(rates.MeasureCrudeBirthRate, 0, population.Female, clock.Year())
	if err != nil {
		return NewSamplingError(componentDemography, clock.Step(), fmt.Sprintf("year=%d", clock.Year()), err)
	}

	mean := rate * d.birthScale * clock.StepYears()
	count, err := randomness.PoissonCount(d.stream.Draw("demography/births", clock.Step(), 0), mean)
	if err != nil {
		return NewSamplingError(componentDemography, clock.Step(), fmt.Sprintf("year=%d", clock.Year()), err)
	}
	if count == 0 {
		// Zero eligible births is a normal, silent outcome.
		return nil
	}

	born, err := pop.AddBirths(int(count), clock.Now(), d.index, d.stream)
	if err != nil {
		var keyErr *randomness.ErrKeySpaceExhausted
		if errors.As(err, &keyErr) {
			return NewRandomnessError(componentDemography, clock.Step(), err)
		}
		return err
	}
	if d.onCreate != nil {
		for _, e := range born {
			if err := d.onCreate(e); err != nil {
				return err
			}
		}
	}
	slog.Debug("births added", "step", clock.Step(), "count", count)
	return nil
}

func stratumLabel(age float64, sex population.Sex, year int) string {
	return fmt.Sprintf("age=%.2f sex=%s year=%d", age, sex, year)
}
