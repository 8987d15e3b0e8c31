// Package config defines the run configuration consumed by the simulation
// core. Loading from CUE files lives in the cli package; validation here is
// format-independent and runs before the step loop starts.
package config

import (
	"fmt"
	"time"
)

// DaysPerYear converts day-denominated spans to fractional years.
const DaysPerYear = 365.25

// AgeWindow is the span of ages, in days, during which a dose may be given.
type AgeWindow struct {
	MinDays float64 `json:"min_days"`
	MaxDays float64 `json:"max_days"`
}

// Built-in schedule identifiers. The numeric labels come from program
// naming conventions; the actual dose windows are explicit day spans, and
// custom schedules may supply any windows in any configured unit.
const (
	ScheduleNone              = "none"
	ScheduleSixNine           = "6_9"
	ScheduleNineTwelve        = "9_12"
	ScheduleNineTwelveFifteen = "9_12_15"
	ScheduleCustom            = "custom"
)

// Dose age units accepted for custom schedules.
const (
	UnitDays   = "days"
	UnitWeeks  = "weeks"
	UnitMonths = "months"
)

var builtinSchedules = map[string][]AgeWindow{
	ScheduleNone: {},
	ScheduleSixNine: {
		{MinDays: 180, MaxDays: 270},
		{MinDays: 270, MaxDays: 300},
	},
	ScheduleNineTwelve: {
		{MinDays: 270, MaxDays: 300},
		{MinDays: 360, MaxDays: 390},
	},
	ScheduleNineTwelveFifteen: {
		{MinDays: 270, MaxDays: 300},
		{MinDays: 360, MaxDays: 390},
		{MinDays: 450, MaxDays: 480},
	},
}

// Distribution is a mean/sd pair parameterizing a sampled quantity.
type Distribution struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// VaccineConfig parameterizes the vaccination model.
type VaccineConfig struct {
	Schedule      string      `json:"schedule"`
	DoseAgeUnit   string      `json:"dose_age_unit"` // unit for custom windows; built-ins are day spans
	CustomWindows []AgeWindow `json:"custom_windows"`

	Coverage             float64      `json:"coverage"` // per-dose probability for on-schedule doses
	CatchupFraction      Distribution `json:"catchup_fraction"`
	Efficacy             Distribution `json:"efficacy"`
	SingleDoseProtected  float64      `json:"single_dose_protected"`
	WaningRate           float64      `json:"waning_rate"` // per day
	OnsetDelayDays       float64      `json:"onset_delay_days"`
	ImmunityDurationDays float64      `json:"immunity_duration_days"`
}

// ObserverFlags selects the stratification axes for one observer.
type ObserverFlags struct {
	Enabled bool `json:"enabled"`
	ByAge   bool `json:"by_age"`
	BySex   bool `json:"by_sex"`
	ByYear  bool `json:"by_year"`
}

// Observers configures the observer set.
type Observers struct {
	Vaccine    ObserverFlags `json:"vaccine"`
	Disease    ObserverFlags `json:"disease"`
	Mortality  ObserverFlags `json:"mortality"`
	Disability ObserverFlags `json:"disability"`
}

// Config is the complete run configuration.
type Config struct {
	Location   string `json:"location"`
	InputDraw  int    `json:"input_draw"`
	RandomSeed int64  `json:"random_seed"`
	MapSize    uint64 `json:"map_size"` // randomness key space capacity

	PopulationSize int     `json:"population_size"`
	AgeStart       float64 `json:"age_start"` // years
	AgeEnd         float64 `json:"age_end"`   // years, exclusive upper bound for seeded ages
	ExitAge        float64 `json:"exit_age"`  // years; entities age out at this age

	StartDate    time.Time `json:"-"`
	EndDate      time.Time `json:"-"`
	StepSizeDays float64   `json:"step_size_days"`

	Fertility        bool `json:"fertility"`         // enable crude-birth-rate births
	DiseaseMortality bool `json:"disease_mortality"` // apply excess mortality to the infected

	Vaccine   VaccineConfig `json:"vaccine"`
	Observers Observers     `json:"observers"`

	AgeBandYears float64 `json:"age_band_years"` // observer stratification band width
}

// Default returns a configuration with the documented defaults filled in.
// Callers still must set population size, dates, and seed.
func Default() Config {
	return Config{
		MapSize:      1_000_000,
		AgeStart:     0,
		AgeEnd:       5,
		ExitAge:      5,
		StepSizeDays: 1,
		AgeBandYears: 1,
		Vaccine: VaccineConfig{
			Schedule:             ScheduleNone,
			DoseAgeUnit:          UnitDays,
			Coverage:             0,
			CatchupFraction:      Distribution{Mean: 0.34, SD: 0.21},
			Efficacy:             Distribution{Mean: 0.5, SD: 0.1},
			SingleDoseProtected:  0.7,
			WaningRate:           0.038,
			OnsetDelayDays:       14,
			ImmunityDurationDays: 720,
		},
	}
}

// DoseWindows resolves the configured schedule into per-dose age windows in
// fractional years. The unit question is settled by configuration: built-in
// schedules carry explicit day spans; custom schedules are interpreted in
// DoseAgeUnit.
func (c *Config) DoseWindows() ([][2]float64, error) {
	var windows []AgeWindow
	scale := 1.0
	if c.Vaccine.Schedule == ScheduleCustom {
		windows = c.Vaccine.CustomWindows
		switch c.Vaccine.DoseAgeUnit {
		case UnitDays, "":
			scale = 1
		case UnitWeeks:
			scale = 7
		case UnitMonths:
			scale = DaysPerYear / 12
		default:
			return nil, fmt.Errorf("unknown dose age unit %q", c.Vaccine.DoseAgeUnit)
		}
	} else {
		builtin, ok := builtinSchedules[c.Vaccine.Schedule]
		if !ok {
			return nil, fmt.Errorf("unknown vaccine schedule %q", c.Vaccine.Schedule)
		}
		windows = builtin
	}

	out := make([][2]float64, 0, len(windows))
	for i, w := range windows {
		minYears := w.MinDays * scale / DaysPerYear
		maxYears := w.MaxDays * scale / DaysPerYear
		if maxYears <= minYears {
			return nil, fmt.Errorf("dose %d window [%v, %v] is empty", i+1, w.MinDays, w.MaxDays)
		}
		out = append(out, [2]float64{minYears, maxYears})
	}
	return out, nil
}

// Validate reports the first configuration problem found. It must pass
// before a run may enter its step loop.
func (c *Config) Validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("population_size must be positive, got %d", c.PopulationSize)
	}
	if c.MapSize == 0 {
		return fmt.Errorf("map_size must be positive")
	}
	if uint64(c.PopulationSize) > c.MapSize {
		return fmt.Errorf("map_size %d cannot hold the initial population of %d", c.MapSize, c.PopulationSize)
	}
	if c.StepSizeDays <= 0 {
		return fmt.Errorf("step_size_days must be positive, got %v", c.StepSizeDays)
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("start date %s is not before end date %s",
			c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	}
	if c.AgeStart < 0 || c.AgeEnd < c.AgeStart {
		return fmt.Errorf("age range [%v, %v) is invalid", c.AgeStart, c.AgeEnd)
	}
	if c.ExitAge < c.AgeEnd {
		return fmt.Errorf("exit_age %v is below the seeded age range end %v", c.ExitAge, c.AgeEnd)
	}
	if c.AgeBandYears <= 0 {
		return fmt.Errorf("age_band_years must be positive, got %v", c.AgeBandYears)
	}

	v := &c.Vaccine
	if v.Coverage < 0 || v.Coverage > 1 {
		return fmt.Errorf("vaccine coverage %v outside [0, 1]", v.Coverage)
	}
	if v.SingleDoseProtected < 0 || v.SingleDoseProtected > 1 {
		return fmt.Errorf("single_dose_protected %v outside [0, 1]", v.SingleDoseProtected)
	}
	if v.WaningRate < 0 {
		return fmt.Errorf("waning_rate must be non-negative, got %v", v.WaningRate)
	}
	if v.OnsetDelayDays < 0 {
		return fmt.Errorf("onset_delay_days must be non-negative, got %v", v.OnsetDelayDays)
	}
	if v.ImmunityDurationDays <= 0 {
		return fmt.Errorf("immunity_duration_days must be positive, got %v", v.ImmunityDurationDays)
	}
	if v.Efficacy.Mean < 0 || v.Efficacy.Mean > 1 {
		return fmt.Errorf("efficacy mean %v outside [0, 1]", v.Efficacy.Mean)
	}
	if v.Efficacy.SD < 0 || v.CatchupFraction.SD < 0 {
		return fmt.Errorf("distribution sd must be non-negative")
	}
	if v.CatchupFraction.Mean < 0 || v.CatchupFraction.Mean > 1 {
		return fmt.Errorf("catchup_fraction mean %v outside [0, 1]", v.CatchupFraction.Mean)
	}

	windows, err := c.DoseWindows()
	if err != nil {
		return err
	}
	for i := 1; i < len(windows); i++ {
		if windows[i][0] < windows[i-1][0] {
			return fmt.Errorf("dose windows must be in ascending age order")
		}
	}
	return nil
}
