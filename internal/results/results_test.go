package results

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/testutil"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() (RunRecord, []population.Summary, observer.Results) {
	cfg := testutil.BaseConfig()
	cfg.Location = "testland"
	rec := NewRunRecord("run-1", &cfg, "completed", nil)
	summaries := []population.Summary{
		{Step: 0, Date: "2025-01-01", Alive: 1000, Susceptible: 1000},
		{Step: 1, Date: "2025-01-02", Alive: 999, Susceptible: 980, Infected: 19, Deaths: 1},
	}
	metrics := observer.Results{
		"death_count":          1,
		"infected_person_time": 0.052,
	}
	return rec, summaries, metrics
}

func TestWriteRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	rec, summaries, metrics := sampleRun()

	require.NoError(t, s.WriteRun(ctx, rec, summaries, metrics))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	gotSummaries, err := s.ReadSummaries(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, summaries, gotSummaries)

	gotMetrics, err := s.ReadMetrics(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, metrics, gotMetrics)
}

func TestWriteRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	rec, summaries, metrics := sampleRun()

	require.NoError(t, s.WriteRun(ctx, rec, summaries, metrics))
	// A second write of the same token must be a no-op, not a constraint
	// violation.
	require.NoError(t, s.WriteRun(ctx, rec, summaries, metrics))

	gotSummaries, err := s.ReadSummaries(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, gotSummaries, 2)
}

func TestWriteRun_FailedRunKeepsError(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	cfg := testutil.BaseConfig()
	rec := NewRunRecord("run-failed", &cfg, "failed", assert.AnError)

	require.NoError(t, s.WriteRun(ctx, rec, nil, nil))

	got, err := s.ReadRun(ctx, "run-failed")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, assert.AnError.Error(), got.Failure)
}

func TestReadRun_Missing(t *testing.T) {
	s := openTemp(t)
	_, err := s.ReadRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReport_RenderText(t *testing.T) {
	rec, summaries, metrics := sampleRun()
	report := NewReport(rec, summaries, metrics)

	var b strings.Builder
	require.NoError(t, report.RenderText(&b))
	out := b.String()

	assert.Contains(t, out, "Run run-1 (completed)")
	assert.Contains(t, out, "location:   testland")
	assert.Contains(t, out, "population: 1,000", "counts use grouped digits")
	assert.Contains(t, out, "Final state (2025-01-02, step 1)")
	assert.Contains(t, out, "death_count")
	assert.Contains(t, out, "0.0520", "fractional metrics keep fixed precision")
}

func TestReport_RenderJSON(t *testing.T) {
	rec, summaries, metrics := sampleRun()
	report := NewReport(rec, summaries, metrics)

	var b strings.Builder
	require.NoError(t, report.RenderJSON(&b))

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(b.String()), &decoded))
	assert.Equal(t, "run-1", decoded.Run.Token)
	require.NotNil(t, decoded.Final)
	assert.Equal(t, 999, decoded.Final.Alive)
	assert.Len(t, decoded.Summaries, 2)
	assert.Equal(t, 1.0, decoded.Metrics["death_count"])
}
