package artifact

import (
	"context"
	"fmt"

	"github.com/rangelab/vaxsim/internal/rates"
)

// WriteCell inserts one rate stratum.
// Uses ON CONFLICT DO NOTHING for idempotency - re-running a preparation
// script against an existing artifact is safe.
func (a *Artifact) WriteCell(ctx context.Context, c rates.Cell) error {
	sex := c.Sex
	if sex == "" {
		sex = "both"
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO rates
		(measure, age_start, age_end, sex, year_start, year_end, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(measure, age_start, sex, year_start) DO NOTHING
	`,
		string(c.Measure),
		c.AgeStart,
		c.AgeEnd,
		sex,
		c.YearStart,
		c.YearEnd,
		c.Value,
	)
	if err != nil {
		return fmt.Errorf("write rate cell: %w", err)
	}
	return nil
}

// WriteReferencePopulation inserts or replaces the true population size for
// a calendar year.
func (a *Artifact) WriteReferencePopulation(ctx context.Context, year int, size float64) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO reference_population (year, size)
		VALUES (?, ?)
		ON CONFLICT(year) DO UPDATE SET size = excluded.size
	`, year, size)
	if err != nil {
		return fmt.Errorf("write reference population: %w", err)
	}
	return nil
}
