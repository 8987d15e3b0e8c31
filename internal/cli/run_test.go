package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/vaxsim/internal/artifact"
	"github.com/rangelab/vaxsim/internal/rates"
	"github.com/rangelab/vaxsim/internal/results"
)

// writeArtifact creates a small valid rate artifact and returns its path.
func writeArtifact(t *testing.T, cells []rates.Cell) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.db")
	art, err := artifact.Open(path)
	require.NoError(t, err)
	defer art.Close()

	ctx := context.Background()
	for _, c := range cells {
		require.NoError(t, art.WriteCell(ctx, c))
	}
	return path
}

func coreCells(incidence, remission, mortality float64) []rates.Cell {
	span := func(m rates.Measure, v float64) rates.Cell {
		return rates.Cell{Measure: m, AgeStart: 0, AgeEnd: 120, Sex: "both", YearStart: 2000, YearEnd: 2100, Value: v}
	}
	return []rates.Cell{
		span(rates.MeasureIncidence, incidence),
		span(rates.MeasureRemission, remission),
		span(rates.MeasureBackgroundMortality, mortality),
	}
}

// execute runs the CLI with the given args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_TextOutput(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig)
	artPath := writeArtifact(t, coreCells(0, 0, 0))

	out, err := execute(t, "run", "--config", cfgPath, "--artifact", artPath)
	require.NoError(t, err)

	assert.Contains(t, out, "(completed)")
	assert.Contains(t, out, "location:   testland")
	assert.Contains(t, out, "alive:       500")
}

func TestRunCommand_JSONOutput(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig)
	artPath := writeArtifact(t, coreCells(0, 0, 0))

	out, err := execute(t, "--format", "json", "run", "--config", cfgPath, "--artifact", artPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRunCommand_PersistsResults(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig+`
observers: disease: enabled: true
`)
	artPath := writeArtifact(t, coreCells(2.0, 1.0, 0))
	resultsPath := filepath.Join(t.TempDir(), "results.db")

	_, err := execute(t, "run", "--config", cfgPath, "--artifact", artPath, "--results", resultsPath)
	require.NoError(t, err)

	store, err := results.Open(resultsPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	var token string
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT token FROM runs`).Scan(&token))
	require.NotEmpty(t, token)

	rec, err := store.ReadRun(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)

	summaries, err := store.ReadSummaries(ctx, token)
	require.NoError(t, err)
	assert.NotEmpty(t, summaries)

	metrics, err := store.ReadMetrics(ctx, token)
	require.NoError(t, err)
	assert.Contains(t, metrics, "incident_case_count")

	// The stored run renders back through show.
	out, err := execute(t, "show", token, "--results", resultsPath)
	require.NoError(t, err)
	assert.Contains(t, out, token)
	assert.Contains(t, out, "incident_case_count")
}

func TestRunCommand_InvalidConfigExitsWithFailure(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig+`
step_size_days: -1
`)
	artPath := writeArtifact(t, coreCells(0, 0, 0))

	out, err := execute(t, "run", "--config", cfgPath, "--artifact", artPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "CONFIGURATION")
}

func TestRunCommand_MissingArtifact(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig)
	artPath := writeArtifact(t, nil) // schema only, no cells

	_, err := execute(t, "run", "--config", cfgPath, "--artifact", artPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_Valid(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig)
	artPath := writeArtifact(t, coreCells(1, 1, 0.01))

	out, err := execute(t, "validate", "--config", cfgPath, "--artifact", artPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration valid")
}

func TestValidateCommand_MissingMeasure(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig+`
fertility: true
`)
	// Core measures only: no crude birth rate, no reference population.
	artPath := writeArtifact(t, coreCells(1, 1, 0.01))

	out, err := execute(t, "validate", "--config", cfgPath, "--artifact", artPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "crude_birth_rate")
	assert.Contains(t, out, "reference population")
}

func TestValidateCommand_BadConfig(t *testing.T) {
	cfgPath := writeConfig(t, `
location:        "x"
random_seed:     1
population_size: 0
start_date:      "2025-01-01"
end_date:        "2025-02-01"
`)
	_, err := execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	cfgPath := writeConfig(t, minimalConfig)
	_, err := execute(t, "--format", "yaml", "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
