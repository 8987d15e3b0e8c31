// Package observer accumulates stratified run metrics.
//
// Observers are a registered set of one capability: Collect is called
// exactly once per step after all state transitions are final, reads the
// population without mutating it, and Finalize exposes the accumulated
// stratified summary once at run end. Which observers run, and which strata
// they split on, is decided by configuration flags, not discovery.
package observer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/population"
)

// Results maps rendered stratum keys to accumulated metric values.
type Results map[string]float64

// Observer accumulates one family of metrics over a run.
type Observer interface {
	Name() string
	Collect(pop *population.Table, now time.Time, stepYears float64)
	Finalize() Results
}

// Set is the registered collection of enabled observers.
type Set struct {
	observers []Observer
	finalized bool
}

// NewSet builds the observer set selected by the configuration flags.
func NewSet(cfg *config.Config) *Set {
	s := &Set{}
	if cfg.Observers.Vaccine.Enabled {
		s.observers = append(s.observers, newVaccineObserver(cfg.Observers.Vaccine, cfg.AgeBandYears))
	}
	if cfg.Observers.Disease.Enabled {
		s.observers = append(s.observers, newDiseaseObserver(cfg.Observers.Disease, cfg.AgeBandYears))
	}
	if cfg.Observers.Mortality.Enabled {
		s.observers = append(s.observers, newMortalityObserver(cfg.Observers.Mortality, cfg.AgeBandYears))
	}
	if cfg.Observers.Disability.Enabled {
		s.observers = append(s.observers, newDisabilityObserver(cfg.Observers.Disability, cfg.AgeBandYears))
	}
	return s
}

// Names returns the enabled observer names in registration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.observers))
	for i, o := range s.observers {
		names[i] = o.Name()
	}
	return names
}

// Collect tallies this step's metrics. The population is read-only here.
func (s *Set) Collect(pop *population.Table, now time.Time, stepYears float64) {
	for _, o := range s.observers {
		o.Collect(pop, now, stepYears)
	}
}

// Finalize merges every observer's summary. It may be called only once.
func (s *Set) Finalize() (Results, error) {
	if s.finalized {
		return nil, fmt.Errorf("observer set already finalized")
	}
	s.finalized = true
	merged := make(Results)
	for _, o := range s.observers {
		for k, v := range o.Finalize() {
			merged[k] = v
		}
	}
	return merged, nil
}

// stratumKey renders a metric key with the stratification axes the observer
// is configured for, e.g. "death_count_year_2025_sex_female_age_0_to_1".
func stratumKey(measure string, f config.ObserverFlags, bandYears float64, age float64, sex population.Sex, year int) string {
	var b strings.Builder
	b.WriteString(measure)
	if f.ByYear {
		b.WriteString("_year_")
		b.WriteString(strconv.Itoa(year))
	}
	if f.BySex {
		b.WriteString("_sex_")
		b.WriteString(sex.String())
	}
	if f.ByAge {
		lo := math.Floor(age/bandYears) * bandYears
		fmt.Fprintf(&b, "_age_%s_to_%s", trimFloat(lo), trimFloat(lo+bandYears))
	}
	return b.String()
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
