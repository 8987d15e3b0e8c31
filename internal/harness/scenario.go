// Package harness runs declarative YAML simulation scenarios.
//
// A scenario names a run configuration, a set of constant rates, and
// expectations on the final population state. Scenarios double as
// executable documentation of the model's behavior and as golden-file
// regression anchors.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rangelab/vaxsim/internal/config"
)

// Scenario defines one declarative simulation test case.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config selects the run configuration. Omitted fields keep the
	// documented defaults.
	Config ScenarioConfig `yaml:"config"`

	// Rates are the constant hazards for the run, one value per measure.
	Rates ScenarioRates `yaml:"rates"`

	// Expect validates the completed run. If nil, the scenario only has to
	// complete.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// RunToken is an optional fixed run token for deterministic output.
	// If empty, defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`
}

// ScenarioConfig mirrors the run configuration with YAML-friendly dates.
type ScenarioConfig struct {
	Location       string  `yaml:"location"`
	RandomSeed     int64   `yaml:"random_seed"`
	PopulationSize int     `yaml:"population_size"`
	AgeStart       float64 `yaml:"age_start"`
	AgeEnd         float64 `yaml:"age_end"`
	ExitAge        float64 `yaml:"exit_age"`
	StartDate      string  `yaml:"start_date"` // YYYY-MM-DD
	EndDate        string  `yaml:"end_date"`
	StepSizeDays   float64 `yaml:"step_size_days"`

	Fertility        bool `yaml:"fertility"`
	DiseaseMortality bool `yaml:"disease_mortality"`

	Vaccine *ScenarioVaccine `yaml:"vaccine,omitempty"`
}

// ScenarioVaccine overrides the vaccination model parameters.
type ScenarioVaccine struct {
	Schedule            string   `yaml:"schedule"`
	Coverage            float64  `yaml:"coverage"`
	EfficacyMean        float64  `yaml:"efficacy_mean"`
	EfficacySD          float64  `yaml:"efficacy_sd"`
	CatchupMean         *float64 `yaml:"catchup_mean,omitempty"`
	CatchupSD           *float64 `yaml:"catchup_sd,omitempty"`
	SingleDoseProtected *float64 `yaml:"single_dose_protected,omitempty"`
	WaningRate          *float64 `yaml:"waning_rate,omitempty"`
	OnsetDelayDays      *float64 `yaml:"onset_delay_days,omitempty"`
}

// ScenarioRates holds the constant hazard per measure. Zero values mean the
// event never happens; the optional measures are only loaded when set.
type ScenarioRates struct {
	Incidence           float64 `yaml:"incidence"`
	Remission           float64 `yaml:"remission"`
	BackgroundMortality float64 `yaml:"background_mortality"`
	ExcessMortality     float64 `yaml:"excess_mortality,omitempty"`
	CrudeBirthRate      float64 `yaml:"crude_birth_rate,omitempty"`
	ReferencePopulation float64 `yaml:"reference_population,omitempty"`
}

// ExpectClause validates the final summary of a completed run.
type ExpectClause struct {
	// Status is the expected terminal state ("completed" or "failed").
	// Empty means completed.
	Status string `yaml:"status,omitempty"`

	// Final asserts exact values on final summary fields
	// (alive, susceptible, infected, deaths, aged_out, doses, births).
	Final map[string]int `yaml:"final,omitempty"`

	// FinalMin and FinalMax assert inclusive bounds on final summary
	// fields, for stochastic quantities with known ranges.
	FinalMin map[string]int `yaml:"final_min,omitempty"`
	FinalMax map[string]int `yaml:"final_max,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var summaryFields = map[string]bool{
	"alive": true, "susceptible": true, "infected": true,
	"deaths": true, "aged_out": true, "doses": true, "births": true,
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Config.PopulationSize <= 0 {
		return fmt.Errorf("config.population_size must be positive")
	}
	if _, err := parseDate(s.Config.StartDate, "config.start_date"); err != nil {
		return err
	}
	if _, err := parseDate(s.Config.EndDate, "config.end_date"); err != nil {
		return err
	}
	if s.Expect != nil {
		for _, m := range []map[string]int{s.Expect.Final, s.Expect.FinalMin, s.Expect.FinalMax} {
			for field := range m {
				if !summaryFields[field] {
					return fmt.Errorf("expect references unknown summary field %q", field)
				}
			}
		}
		switch s.Expect.Status {
		case "", "completed", "failed":
		default:
			return fmt.Errorf("expect.status must be completed or failed, got %q", s.Expect.Status)
		}
	}
	return nil
}

func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, s)
	}
	return t.UTC(), nil
}

// buildConfig materializes the run configuration for a scenario.
func (s *Scenario) buildConfig() (config.Config, error) {
	cfg := config.Default()
	sc := s.Config

	cfg.Location = sc.Location
	cfg.RandomSeed = sc.RandomSeed
	cfg.PopulationSize = sc.PopulationSize
	cfg.Fertility = sc.Fertility
	cfg.DiseaseMortality = sc.DiseaseMortality
	if sc.AgeEnd > 0 {
		cfg.AgeStart, cfg.AgeEnd = sc.AgeStart, sc.AgeEnd
	}
	if sc.ExitAge > 0 {
		cfg.ExitAge = sc.ExitAge
	}
	if sc.StepSizeDays > 0 {
		cfg.StepSizeDays = sc.StepSizeDays
	}

	var err error
	cfg.StartDate, err = parseDate(sc.StartDate, "config.start_date")
	if err != nil {
		return cfg, err
	}
	cfg.EndDate, err = parseDate(sc.EndDate, "config.end_date")
	if err != nil {
		return cfg, err
	}

	if v := sc.Vaccine; v != nil {
		cfg.Vaccine.Schedule = v.Schedule
		cfg.Vaccine.Coverage = v.Coverage
		cfg.Vaccine.Efficacy = config.Distribution{Mean: v.EfficacyMean, SD: v.EfficacySD}
		if v.CatchupMean != nil {
			cfg.Vaccine.CatchupFraction.Mean = *v.CatchupMean
		}
		if v.CatchupSD != nil {
			cfg.Vaccine.CatchupFraction.SD = *v.CatchupSD
		}
		if v.SingleDoseProtected != nil {
			cfg.Vaccine.SingleDoseProtected = *v.SingleDoseProtected
		}
		if v.WaningRate != nil {
			cfg.Vaccine.WaningRate = *v.WaningRate
		}
		if v.OnsetDelayDays != nil {
			cfg.Vaccine.OnsetDelayDays = *v.OnsetDelayDays
		}
	}
	return cfg, nil
}
