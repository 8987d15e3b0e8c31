package harness

import (
	"context"
	"fmt"

	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/rates"
	"github.com/rangelab/vaxsim/internal/sim"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: the run reached the
	// expected terminal state and every expectation matched.
	Pass bool `json:"pass"`

	// Status is the run's terminal state.
	Status string `json:"status"`

	// RunToken identifies the executed run.
	RunToken string `json:"run_token"`

	// Summaries holds one aggregate per completed step.
	Summaries []population.Summary `json:"summaries"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// AddError records an expectation failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario and evaluates its expectations. A run failure is
// an error only when the scenario did not expect one.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.buildConfig()
	if err != nil {
		return nil, err
	}
	table, err := buildRates(scenario.Rates)
	if err != nil {
		return nil, err
	}

	token := scenario.RunToken
	if token == "" {
		token = "test-run-default"
	}

	stepper := sim.NewStepper(&cfg, table, observer.NewSet(&cfg), sim.NewFixedGenerator(token))
	runErr := stepper.Run(context.Background())

	result := &Result{
		Pass:      true,
		Status:    stepper.State().String(),
		RunToken:  stepper.RunToken(),
		Summaries: stepper.Summaries(),
	}

	expect := scenario.Expect
	wantStatus := "completed"
	if expect != nil && expect.Status != "" {
		wantStatus = expect.Status
	}
	if result.Status != wantStatus {
		detail := ""
		if runErr != nil {
			detail = ": " + runErr.Error()
		}
		result.AddError("run %s, expected %s%s", result.Status, wantStatus, detail)
		return result, nil
	}

	if expect != nil && result.Status == "completed" {
		evaluateFinal(result, expect)
	}
	return result, nil
}

func evaluateFinal(result *Result, expect *ExpectClause) {
	if len(result.Summaries) == 0 {
		if len(expect.Final)+len(expect.FinalMin)+len(expect.FinalMax) > 0 {
			result.AddError("run produced no summaries to assert on")
		}
		return
	}
	final := result.Summaries[len(result.Summaries)-1]

	for field, want := range expect.Final {
		if got := summaryField(final, field); got != want {
			result.AddError("final %s = %d, expected %d", field, got, want)
		}
	}
	for field, lo := range expect.FinalMin {
		if got := summaryField(final, field); got < lo {
			result.AddError("final %s = %d, expected >= %d", field, got, lo)
		}
	}
	for field, hi := range expect.FinalMax {
		if got := summaryField(final, field); got > hi {
			result.AddError("final %s = %d, expected <= %d", field, got, hi)
		}
	}
}

func summaryField(s population.Summary, field string) int {
	switch field {
	case "alive":
		return s.Alive
	case "susceptible":
		return s.Susceptible
	case "infected":
		return s.Infected
	case "deaths":
		return s.Deaths
	case "aged_out":
		return s.AgedOut
	case "doses":
		return s.Doses
	case "births":
		return s.Births
	default:
		return 0
	}
}

// buildRates freezes a scenario's constant hazards into a rate table
// covering all ages, both sexes, and a wide year span.
func buildRates(set ScenarioRates) (*rates.Table, error) {
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
	add(rates.MeasureBackgroundMortality, set.BackgroundMortality)
	if set.ExcessMortality > 0 {
		add(rates.MeasureExcessMortality, set.ExcessMortality)
	}
	if set.CrudeBirthRate > 0 {
		add(rates.MeasureCrudeBirthRate, set.CrudeBirthRate)
	}
	if set.ReferencePopulation > 0 {
		b.AddReferencePopulation(2000, set.ReferencePopulation)
	}
	return b.Build()
}
