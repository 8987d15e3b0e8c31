package results

import (
	"context"
	"fmt"
	"sort"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/population"
)

// RunRecord is the persisted header for one run.
type RunRecord struct {
	Token      string  `json:"token"`
	Location   string  `json:"location"`
	InputDraw  int     `json:"input_draw"`
	Seed       int64   `json:"seed"`
	Population int     `json:"population"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	StepDays   float64 `json:"step_days"`
	Status     string  `json:"status"`
	Failure    string  `json:"failure,omitempty"`
}

// NewRunRecord builds the header for a run of the given configuration.
func NewRunRecord(token string, cfg *config.Config, status string, failure error) RunRecord {
	r := RunRecord{
		Token:      token,
		Location:   cfg.Location,
		InputDraw:  cfg.InputDraw,
		Seed:       cfg.RandomSeed,
		Population: cfg.PopulationSize,
		StartDate:  cfg.StartDate.Format("2006-01-02"),
		EndDate:    cfg.EndDate.Format("2006-01-02"),
		StepDays:   cfg.StepSizeDays,
		Status:     status,
	}
	if failure != nil {
		r.Failure = failure.Error()
	}
	return r
}

// WriteRun persists a run header with its summaries and metrics in one
// transaction. Uses ON CONFLICT DO NOTHING on the run token for idempotency -
// rewriting an already-stored run is silently ignored.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord, summaries []population.Summary, metrics observer.Results) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(token, location, input_draw, seed, population, start_date, end_date, step_days, status, failure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		rec.Token,
		rec.Location,
		rec.InputDraw,
		rec.Seed,
		rec.Population,
		rec.StartDate,
		rec.EndDate,
		rec.StepDays,
		rec.Status,
		nullIfEmpty(rec.Failure),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already stored; the summaries and metrics for that token are
		// immutable, so there is nothing left to do.
		return tx.Commit()
	}

	for _, sum := range summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_summaries
			(run_token, step, date, alive, susceptible, infected, deaths, aged_out, doses, births)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.Token, sum.Step, sum.Date,
			sum.Alive, sum.Susceptible, sum.Infected,
			sum.Deaths, sum.AgedOut, sum.Doses, sum.Births,
		)
		if err != nil {
			return fmt.Errorf("write run summary step %d: %w", sum.Step, err)
		}
	}

	// Sorted insertion keeps the store byte-stable across runs of the same
	// configuration.
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_metrics (run_token, key, value) VALUES (?, ?, ?)
		`, rec.Token, k, metrics[k]); err != nil {
			return fmt.Errorf("write run metric %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
