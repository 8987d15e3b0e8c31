package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/randomness"
)

// Vaccination administers doses on the configured schedule and is the single
// source of truth for each entity's cumulative protective efficacy, which it
// recomputes every step before the disease model consumes it.
type Vaccination struct {
	cfg     config.VaccineConfig
	windows [][2]float64 // per-dose age windows in fractional years
	stream  *randomness.Stream

	// catchupFraction is sampled once per run: the probability that an
	// entity who missed a scheduled dose receives a late one.
	catchupFraction float64
}

// NewVaccination resolves the schedule and samples the run-level catchup
// fraction from its configured beta distribution.
func NewVaccination(cfg *config.Config, stream *randomness.Stream) (*Vaccination, error) {
	windows, err := cfg.DoseWindows()
	if err != nil {
		return nil, err
	}
	if len(windows) > population.MaxDoses {
		return nil, fmt.Errorf("schedule has %d doses, at most %d supported", len(windows), population.MaxDoses)
	}

	v := &Vaccination{cfg: cfg.Vaccine, windows: windows, stream: stream}
	if len(windows) > 0 {
		v.catchupFraction, err = randomness.BetaQuantile(
			stream.DrawScalar("vaccination/catchup_fraction"),
			cfg.Vaccine.CatchupFraction.Mean, cfg.Vaccine.CatchupFraction.SD)
		if err != nil {
			return nil, fmt.Errorf("catchup fraction: %w", err)
		}
		// Surface a bad efficacy parameterization now rather than on the
		// first per-entity sample mid-run.
		if _, err := randomness.BetaQuantile(0.5, cfg.Vaccine.Efficacy.Mean, cfg.Vaccine.Efficacy.SD); err != nil {
			return nil, fmt.Errorf("efficacy distribution: %w", err)
		}
	}
	return v, nil
}

// CatchupFraction returns the sampled run-level catchup probability.
func (v *Vaccination) CatchupFraction() float64 {
	return v.catchupFraction
}

// InitializeEntity samples the entity's per-dose target ages and its full
// vaccine efficacy. Called once per entity at creation, for the seeded
// cohort and for newborns alike.
func (v *Vaccination) InitializeEntity(e *population.Entity) error {
	if len(v.windows) == 0 {
		return nil
	}
	for i, w := range v.windows {
		lo, hi := w[0], w[1]
		mean := (lo + hi) / 2
		sd := (mean - lo) / 3
		draw := v.stream.Draw(fmt.Sprintf("vaccination/dose_age/%d", i+1), 0, e.RandKey)
		age := randomness.NormalQuantile(draw, mean, sd)
		// Keep the sampled age strictly inside the window.
		margin := 0.01 * (hi - lo)
		if age < lo+margin {
			age = lo + margin
		}
		if age > hi-margin {
			age = hi - margin
		}
		e.DoseTargetAges[i] = age
	}

	eff, err := randomness.BetaQuantile(
		v.stream.Draw("vaccination/efficacy", 0, e.RandKey),
		v.cfg.Efficacy.Mean, v.cfg.Efficacy.SD)
	if err != nil {
		return fmt.Errorf("sample efficacy: %w", err)
	}
	e.FullEfficacy = math.Min(1, math.Max(0, eff))
	return nil
}

// Step administers due doses and recomputes protection for every alive
// entity. It must run after the demographic step (which increments ages)
// and before the disease step (which consumes the protection).
func (v *Vaccination) Step(pop *population.Table, clock *Clock) error {
	now := clock.Now()
	stepYears := clock.StepYears()
	step := clock.Step()

	return pop.ForEachAlive(func(e *population.Entity) error {
		v.maybeDose(e, now, stepYears, step)
		e.CumulativeEfficacy = v.protection(e, now)
		return nil
	})
}

// maybeDose administers at most one dose per entity per step. An entity
// crossing its sampled target age for dose j this step receives it with the
// coverage probability when on schedule (j doses short of j+1), or with the
// run-level catchup fraction when earlier doses were missed.
func (v *Vaccination) maybeDose(e *population.Entity, now time.Time, stepYears float64, step int64) {
	prevAge := e.Age - stepYears
	for j := e.DoseCount; j < len(v.windows); j++ {
		target := e.DoseTargetAges[j]
		if !(prevAge < target && target <= e.Age) {
			continue
		}
		probability := v.cfg.Coverage
		decision := fmt.Sprintf("vaccination/dose/%d", j+1)
		if j > e.DoseCount {
			// Entity reached a later dose window having missed earlier
			// doses: this is a catchup opportunity.
			probability = v.catchupFraction
			decision = fmt.Sprintf("vaccination/catchup/%d", j+1)
		}
		if v.stream.Draw(decision, step, e.RandKey) < probability {
			e.DoseCount++
			if e.DoseCount == 1 {
				e.FirstDoseTime = now
			}
			e.LastDoseTime = now
		}
		return
	}
}

// protection computes the entity's current protective efficacy.
//
// A dose confers nothing until onset_delay days after administration, then
// steps to the entity's sampled efficacy, scaled by single_dose_protected
// while only the first dose has been received. From the onset of a later
// dose the full efficacy applies. After onset the protection wanes
// exponentially and is treated as gone past the immunity duration.
func (v *Vaccination) protection(e *population.Entity, now time.Time) float64 {
	if e.DoseCount == 0 {
		return 0
	}
	p := v.doseProtection(e.FirstDoseTime, e.FullEfficacy*v.cfg.SingleDoseProtected, now)
	if e.DoseCount >= 2 {
		if later := v.doseProtection(e.LastDoseTime, e.FullEfficacy, now); later > p {
			p = later
		}
	}
	return math.Min(1, math.Max(0, p))
}

func (v *Vaccination) doseProtection(doseTime time.Time, base float64, now time.Time) float64 {
	onset := doseTime.Add(daysToDuration(v.cfg.OnsetDelayDays))
	if now.Before(onset) {
		return 0
	}
	sinceOnsetDays := now.Sub(onset).Hours() / 24
	if sinceOnsetDays >= v.cfg.ImmunityDurationDays {
		return 0
	}
	return base * math.Exp(-v.cfg.WaningRate*sinceOnsetDays)
}

func daysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
