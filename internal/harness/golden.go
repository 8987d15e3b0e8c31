package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rangelab/vaxsim/internal/population"
)

// Snapshot captures a scenario's full summary series for golden
// comparison. Summaries hold only integer counts, so the serialization is
// bit-stable across platforms.
type Snapshot struct {
	ScenarioName string               `json:"scenario_name"`
	RunToken     string               `json:"run_token"`
	Status       string               `json:"status"`
	Summaries    []population.Summary `json:"summaries"`
}

// RunWithGolden executes a scenario and compares its summary series
// against a golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}

	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		RunToken:     result.RunToken,
		Status:       result.Status,
		Summaries:    result.Summaries,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
