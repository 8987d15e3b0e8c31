package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/population"
)

// ReadRun loads a stored run header by token.
func (s *Store) ReadRun(ctx context.Context, token string) (RunRecord, error) {
	var rec RunRecord
	var failure sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT token, location, input_draw, seed, population, start_date, end_date, step_days, status, failure
		FROM runs WHERE token = ?
	`, token).Scan(
		&rec.Token, &rec.Location, &rec.InputDraw, &rec.Seed, &rec.Population,
		&rec.StartDate, &rec.EndDate, &rec.StepDays, &rec.Status, &failure,
	)
	if err == sql.ErrNoRows {
		return rec, fmt.Errorf("run %q not found", token)
	}
	if err != nil {
		return rec, fmt.Errorf("read run: %w", err)
	}
	rec.Failure = failure.String
	return rec, nil
}

// ReadSummaries loads a run's per-step summaries in step order.
func (s *Store) ReadSummaries(ctx context.Context, token string) ([]population.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, date, alive, susceptible, infected, deaths, aged_out, doses, births
		FROM run_summaries WHERE run_token = ? ORDER BY step
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	defer rows.Close()

	var out []population.Summary
	for rows.Next() {
		var sum population.Summary
		if err := rows.Scan(
			&sum.Step, &sum.Date, &sum.Alive, &sum.Susceptible, &sum.Infected,
			&sum.Deaths, &sum.AgedOut, &sum.Doses, &sum.Births,
		); err != nil {
			return nil, fmt.Errorf("read summaries: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	return out, nil
}

// ReadMetrics loads a run's final stratified metrics.
func (s *Store) ReadMetrics(ctx context.Context, token string) (observer.Results, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM run_metrics WHERE run_token = ? ORDER BY key
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	defer rows.Close()

	out := make(observer.Results)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("read metrics: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	return out, nil
}
