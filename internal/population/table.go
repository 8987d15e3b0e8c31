// Package population holds the mutable entity store for a simulation run.
//
// Rows are never reclaimed mid-run: an entity that dies or ages out keeps
// its row and id so observers can attribute its history. All mutation goes
// through the strictly ordered simulation components; observers read only.
package population

import (
	"fmt"
	"time"

	"github.com/rangelab/vaxsim/internal/randomness"
)

// Sex is the entity's demographic sex category.
type Sex uint8

const (
	Male Sex = iota
	Female
)

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return fmt.Sprintf("sex(%d)", uint8(s))
	}
}

// DiseaseState is the SIS compartment an entity occupies.
type DiseaseState uint8

const (
	Susceptible DiseaseState = iota
	Infected
)

func (d DiseaseState) String() string {
	switch d {
	case Susceptible:
		return "susceptible"
	case Infected:
		return "infected"
	default:
		return fmt.Sprintf("disease_state(%d)", uint8(d))
	}
}

// ExitReason records why an entity left observation. Aging out is distinct
// from death: it removes the entity from the cohort without counting toward
// mortality.
type ExitReason uint8

const (
	ExitNone ExitReason = iota
	ExitDied
	ExitAgedOut
)

func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "none"
	case ExitDied:
		return "died"
	case ExitAgedOut:
		return "aged_out"
	default:
		return fmt.Sprintf("exit_reason(%d)", uint8(r))
	}
}

// MaxDoses is the largest dose count any schedule administers.
const MaxDoses = 3

// Entity is one row of the population table.
//
// The vaccine bookkeeping fields (dose target ages, sampled efficacy) are
// written once at creation by the vaccination model, which is also the sole
// writer of CumulativeEfficacy.
type Entity struct {
	ID           int64
	RandKey      uint64  // slot in the bounded randomness key space
	Age          float64 // fractional years
	Sex          Sex
	Alive        bool
	EntranceTime time.Time
	ExitTime     time.Time
	ExitReason   ExitReason

	DiseaseState      DiseaseState
	LastInfectionTime time.Time
	LastRemissionTime time.Time

	DoseCount          int
	FirstDoseTime      time.Time
	LastDoseTime       time.Time
	CumulativeEfficacy float64

	// Sampled at creation by the vaccination model.
	DoseTargetAges [MaxDoses]float64 // fractional years, 0 when unscheduled
	FullEfficacy   float64
}

// Table is the population store. It is exclusively owned by one simulation
// run; components mutate entities in place through ForEachAlive.
type Table struct {
	entities    []Entity
	initialSize int
	nextID      int64
}

// New seeds a table with initialSize entities. Ages are distributed
// uniformly over [ageStart, ageEnd) and sex with equal probability, both
// from the run's deterministic stream. Every entity claims a slot in the
// randomness key space; seeding fails if the space cannot hold the cohort.
func New(initialSize int, ageStart, ageEnd float64, start time.Time, stream *randomness.Stream, index *randomness.IndexMap) (*Table, error) {
	if initialSize <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", initialSize)
	}
	if ageEnd < ageStart {
		return nil, fmt.Errorf("age range [%v, %v) is inverted", ageStart, ageEnd)
	}

	t := &Table{
		entities:    make([]Entity, 0, initialSize),
		initialSize: initialSize,
	}
	for i := 0; i < initialSize; i++ {
		key, err := index.Assign(start, int64(i))
		if err != nil {
			return nil, fmt.Errorf("seed population: %w", err)
		}
		age := ageStart
		if ageEnd > ageStart {
			age = ageStart + stream.Draw("population/initial_age", 0, key)*(ageEnd-ageStart)
		}
		sex := Male
		if stream.Draw("population/sex", 0, key) < 0.5 {
			sex = Female
		}
		t.entities = append(t.entities, Entity{
			ID:           t.nextID,
			RandKey:      key,
			Age:          age,
			Sex:          sex,
			Alive:        true,
			EntranceTime: start,
			DiseaseState: Susceptible,
		})
		t.nextID++
	}
	return t, nil
}

// AddBirths appends n newborn entities entering at now. The returned slice
// aliases table rows and is only valid until the next AddBirths call.
func (t *Table) AddBirths(n int, now time.Time, index *randomness.IndexMap, stream *randomness.Stream) ([]*Entity, error) {
	if n <= 0 {
		return nil, nil
	}
	first := len(t.entities)
	for i := 0; i < n; i++ {
		key, err := index.Assign(now, t.nextID)
		if err != nil {
			return nil, fmt.Errorf("add births: %w", err)
		}
		sex := Male
		if stream.Draw("population/sex", 0, key) < 0.5 {
			sex = Female
		}
		t.entities = append(t.entities, Entity{
			ID:           t.nextID,
			RandKey:      key,
			Age:          0,
			Sex:          sex,
			Alive:        true,
			EntranceTime: now,
			DiseaseState: Susceptible,
		})
		t.nextID++
	}
	born := make([]*Entity, 0, n)
	for i := first; i < len(t.entities); i++ {
		born = append(born, &t.entities[i])
	}
	return born, nil
}

// Exit marks an entity removed from observation at now for the given reason.
// The row is retained; ids stay stable for the whole run.
func (t *Table) Exit(e *Entity, now time.Time, reason ExitReason) {
	e.Alive = false
	e.ExitTime = now
	e.ExitReason = reason
}

// Len returns the total number of rows, including exited entities.
func (t *Table) Len() int {
	return len(t.entities)
}

// InitialSize returns the size of the seeded cohort.
func (t *Table) InitialSize() int {
	return t.initialSize
}

// ForEachAlive applies fn to every alive entity in id order, stopping on the
// first error. It does not allocate.
func (t *Table) ForEachAlive(fn func(*Entity) error) error {
	for i := range t.entities {
		if !t.entities[i].Alive {
			continue
		}
		if err := fn(&t.entities[i]); err != nil {
			return err
		}
	}
	return nil
}

// ForEach applies fn to every entity, alive or exited, in id order.
func (t *Table) ForEach(fn func(*Entity) error) error {
	for i := range t.entities {
		if err := fn(&t.entities[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the entity with the given id, or nil.
func (t *Table) Get(id int64) *Entity {
	if id < 0 || id >= int64(len(t.entities)) {
		return nil
	}
	return &t.entities[id]
}

// AliveCount returns the number of alive entities.
func (t *Table) AliveCount() int {
	n := 0
	for i := range t.entities {
		if t.entities[i].Alive {
			n++
		}
	}
	return n
}
