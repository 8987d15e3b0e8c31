// Package rates holds the read-only stratified hazard tables a run consumes.
//
// Tables are prepared externally (see the artifact package) and are immutable
// for the duration of a run. Lookups use order-0 (step) interpolation:
// coordinates are clamped to the table's bounds and resolved to the cell
// containing them.
package rates

import (
	"fmt"
	"math"
	"sort"

	"github.com/rangelab/vaxsim/internal/population"
)

// Measure names one hazard or rate carried by the table.
type Measure string

const (
	MeasureIncidence           Measure = "incidence"
	MeasureRemission           Measure = "remission"
	MeasureBackgroundMortality Measure = "background_mortality"
	MeasureExcessMortality     Measure = "excess_mortality"
	MeasureCrudeBirthRate      Measure = "crude_birth_rate"
)

// CoreMeasures are required for every run. The remaining measures are
// optional: excess mortality only when disease-attributable mortality is
// configured, the birth rate only when fertility is configured.
var CoreMeasures = []Measure{MeasureIncidence, MeasureRemission, MeasureBackgroundMortality}

// Cell is one stratum's value: a half-open age band [AgeStart, AgeEnd) in
// years, a sex (or both), and a half-open calendar year span.
type Cell struct {
	Measure   Measure
	AgeStart  float64
	AgeEnd    float64
	Sex       string // "male", "female", or "both"
	YearStart int
	YearEnd   int
	Value     float64
}

type stratumKey struct {
	ageBand int
	sex     population.Sex
	year    int
}

// grid resolves (age, sex, year) to a value through sorted cut points.
type grid struct {
	ageCuts  []float64 // ascending band starts
	yearCuts []int     // ascending span starts
	values   map[stratumKey]float64
}

// Table is the full set of measures for one run.
type Table struct {
	grids  map[Measure]*grid
	refPop map[int]float64
}

// Builder accumulates cells and reference population rows before freezing
// them into a Table.
type Builder struct {
	cells  []Cell
	refPop map[int]float64
}

func NewBuilder() *Builder {
	return &Builder{refPop: make(map[int]float64)}
}

// AddCell adds one stratum value.
func (b *Builder) AddCell(c Cell) {
	b.cells = append(b.cells, c)
}

// AddReferencePopulation adds the true population size for a calendar year,
// used to scale the crude birth rate down to the simulated cohort.
func (b *Builder) AddReferencePopulation(year int, size float64) {
	b.refPop[year] = size
}

// Build validates and freezes the accumulated cells.
func (b *Builder) Build() (*Table, error) {
	t := &Table{
		grids:  make(map[Measure]*grid),
		refPop: b.refPop,
	}
	byMeasure := make(map[Measure][]Cell)
	for _, c := range b.cells {
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return nil, fmt.Errorf("measure %s: non-finite value in stratum age=[%v,%v) sex=%s years=[%d,%d)",
				c.Measure, c.AgeStart, c.AgeEnd, c.Sex, c.YearStart, c.YearEnd)
		}
		if c.AgeEnd <= c.AgeStart {
			return nil, fmt.Errorf("measure %s: empty age band [%v, %v)", c.Measure, c.AgeStart, c.AgeEnd)
		}
		if c.YearEnd <= c.YearStart {
			return nil, fmt.Errorf("measure %s: empty year span [%d, %d)", c.Measure, c.YearStart, c.YearEnd)
		}
		byMeasure[c.Measure] = append(byMeasure[c.Measure], c)
	}
	for m, cells := range byMeasure {
		g, err := buildGrid(cells)
		if err != nil {
			return nil, fmt.Errorf("measure %s: %w", m, err)
		}
		t.grids[m] = g
	}
	return t, nil
}

func buildGrid(cells []Cell) (*grid, error) {
	ageSet := make(map[float64]struct{})
	yearSet := make(map[int]struct{})
	for _, c := range cells {
		ageSet[c.AgeStart] = struct{}{}
		yearSet[c.YearStart] = struct{}{}
	}
	g := &grid{values: make(map[stratumKey]float64)}
	for a := range ageSet {
		g.ageCuts = append(g.ageCuts, a)
	}
	for y := range yearSet {
		g.yearCuts = append(g.yearCuts, y)
	}
	sort.Float64s(g.ageCuts)
	sort.Ints(g.yearCuts)

	for _, c := range cells {
		ageBand := sort.SearchFloat64s(g.ageCuts, c.AgeStart)
		yearIdx := sort.SearchInts(g.yearCuts, c.YearStart)
		sexes := []population.Sex{population.Male, population.Female}
		switch c.Sex {
		case "male":
			sexes = sexes[:1]
		case "female":
			sexes = sexes[1:]
		case "both", "":
		default:
			return nil, fmt.Errorf("unknown sex %q", c.Sex)
		}
		for _, s := range sexes {
			key := stratumKey{ageBand: ageBand, sex: s, year: g.yearCuts[yearIdx]}
			if _, dup := g.values[key]; dup {
				return nil, fmt.Errorf("duplicate stratum age=%v sex=%s year=%d", c.AgeStart, s, c.YearStart)
			}
			g.values[key] = c.Value
		}
	}
	return g, nil
}

// Has reports whether the table carries any cells for the measure.
func (t *Table) Has(m Measure) bool {
	_, ok := t.grids[m]
	return ok
}

// Validate checks that every required measure is present and non-empty.
func (t *Table) Validate(required ...Measure) error {
	for _, m := range required {
		if !t.Has(m) {
			return fmt.Errorf("rate table is missing measure %q", m)
		}
	}
	return nil
}

// Lookup resolves a measure for an entity's stratum with order-0
// interpolation. Coordinates outside the table clamp to the nearest band.
// A hole inside the table (a band/year combination with no cell) is a
// malformed input and returns an error naming the stratum.
func (t *Table) Lookup(m Measure, age float64, sex population.Sex, year int) (float64, error) {
	g, ok := t.grids[m]
	if !ok {
		return 0, fmt.Errorf("measure %q not loaded", m)
	}
	ageBand := bandFloat(g.ageCuts, age)
	yearCut := bandInt(g.yearCuts, year)
	v, ok := g.values[stratumKey{ageBand: ageBand, sex: sex, year: yearCut}]
	if !ok {
		return 0, fmt.Errorf("measure %q has no cell for stratum age=%.2f sex=%s year=%d", m, age, sex, year)
	}
	return v, nil
}

// ReferencePopulation returns the true population size for a year, clamped
// to the nearest covered year.
func (t *Table) ReferencePopulation(year int) (float64, error) {
	if len(t.refPop) == 0 {
		return 0, fmt.Errorf("no reference population loaded")
	}
	if v, ok := t.refPop[year]; ok {
		return v, nil
	}
	best, found := 0, false
	for y := range t.refPop {
		if !found || abs(y-year) < abs(best-year) {
			best, found = y, true
		}
	}
	return t.refPop[best], nil
}

// HasReferencePopulation reports whether any reference population rows were
// loaded.
func (t *Table) HasReferencePopulation() bool {
	return len(t.refPop) > 0
}

func bandFloat(cuts []float64, v float64) int {
	// Index of the band whose start is the greatest cut <= v, clamped.
	i := sort.SearchFloat64s(cuts, v)
	if i < len(cuts) && cuts[i] == v {
		return i
	}
	if i == 0 {
		return 0
	}
	return i - 1
}

func bandInt(cuts []int, v int) int {
	i := sort.SearchInts(cuts, v)
	if i < len(cuts) && cuts[i] == v {
		return cuts[i]
	}
	if i == 0 {
		return cuts[0]
	}
	return cuts[i-1]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
