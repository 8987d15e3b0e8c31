package artifact

import (
	"context"
	"fmt"

	"github.com/rangelab/vaxsim/internal/rates"
)

// LoadRates reads every rate cell and reference population row and freezes
// them into an immutable in-memory table. Malformed rows (empty bands,
// non-finite values, duplicate strata) are rejected by the table builder
// with the offending stratum named.
func (a *Artifact) LoadRates(ctx context.Context) (*rates.Table, error) {
	b := rates.NewBuilder()

	rows, err := a.db.QueryContext(ctx, `
		SELECT measure, age_start, age_end, sex, year_start, year_end, value
		FROM rates
		ORDER BY measure, age_start, sex, year_start
	`)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var c rates.Cell
		var measure string
		if err := rows.Scan(&measure, &c.AgeStart, &c.AgeEnd, &c.Sex, &c.YearStart, &c.YearEnd, &c.Value); err != nil {
			return nil, fmt.Errorf("load rates: scan row %d: %w", n, err)
		}
		c.Measure = rates.Measure(measure)
		b.AddCell(c)
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("load rates: artifact has no rate cells")
	}

	refRows, err := a.db.QueryContext(ctx, `SELECT year, size FROM reference_population ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("load reference population: %w", err)
	}
	defer refRows.Close()

	for refRows.Next() {
		var year int
		var size float64
		if err := refRows.Scan(&year, &size); err != nil {
			return nil, fmt.Errorf("load reference population: %w", err)
		}
		b.AddReferencePopulation(year, size)
	}
	if err := refRows.Err(); err != nil {
		return nil, fmt.Errorf("load reference population: %w", err)
	}

	t, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("artifact is malformed: %w", err)
	}
	return t, nil
}
