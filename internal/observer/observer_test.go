package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/randomness"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// smallTable seeds n entities at the given age and hands them to shape for
// per-test adjustments.
func smallTable(t *testing.T, n int, age float64, shape func(int64, *population.Entity)) *population.Table {
	t.Helper()
	stream := randomness.NewStream(7)
	index, err := randomness.NewIndexMap(10000)
	require.NoError(t, err)
	pop, err := population.New(n, age, age, testNow, stream, index)
	require.NoError(t, err)
	if shape != nil {
		require.NoError(t, pop.ForEach(func(e *population.Entity) error {
			shape(e.ID, e)
			return nil
		}))
	}
	return pop
}

func TestStratumKey_AxesCompose(t *testing.T) {
	all := config.ObserverFlags{Enabled: true, ByAge: true, BySex: true, ByYear: true}
	key := stratumKey("death_count", all, 1, 0.5, population.Female, 2025)
	assert.Equal(t, "death_count_year_2025_sex_female_age_0_to_1", key)

	none := config.ObserverFlags{Enabled: true}
	assert.Equal(t, "death_count", stratumKey("death_count", none, 1, 0.5, population.Female, 2025))

	ageOnly := config.ObserverFlags{Enabled: true, ByAge: true}
	assert.Equal(t, "death_count_age_4_to_6", stratumKey("death_count", ageOnly, 2, 4.9, population.Male, 2025))
}

func TestStratumKey_FractionalBands(t *testing.T) {
	f := config.ObserverFlags{Enabled: true, ByAge: true}
	assert.Equal(t, "x_age_0.5_to_1", stratumKey("x", f, 0.5, 0.74, population.Male, 2025))
	assert.Equal(t, "x_age_0_to_0.5", stratumKey("x", f, 0.5, 0.49, population.Male, 2025))
}

func TestNewSet_RegistersOnlyEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Observers.Disease.Enabled = true
	cfg.Observers.Disability.Enabled = true

	set := NewSet(&cfg)
	assert.Equal(t, []string{"disease", "disability"}, set.Names())
}

func TestSet_FinalizeOnce(t *testing.T) {
	cfg := config.Default()
	cfg.Observers.Mortality.Enabled = true
	set := NewSet(&cfg)

	_, err := set.Finalize()
	require.NoError(t, err)
	_, err = set.Finalize()
	assert.Error(t, err)
}

func TestVaccineObserver_CountsDosesByOrdinal(t *testing.T) {
	pop := smallTable(t, 4, 1, func(id int64, e *population.Entity) {
		switch id {
		case 0: // first dose this step
			e.DoseCount = 1
			e.LastDoseTime = testNow
		case 1: // second dose this step
			e.DoseCount = 2
			e.LastDoseTime = testNow
		case 2: // dosed earlier, nothing new
			e.DoseCount = 1
			e.LastDoseTime = testNow.AddDate(0, 0, -30)
		}
	})

	o := newVaccineObserver(config.ObserverFlags{Enabled: true}, 1)
	o.Collect(pop, testNow, 1/config.DaysPerYear)

	results := o.Finalize()
	assert.Equal(t, 1.0, results["vaccine_first_dose_count"])
	assert.Equal(t, 1.0, results["vaccine_second_dose_count"])
	assert.NotContains(t, results, "vaccine_third_dose_count")
}

func TestDiseaseObserver_TransitionsAndPersonTime(t *testing.T) {
	pop := smallTable(t, 3, 2, func(id int64, e *population.Entity) {
		switch id {
		case 0:
			e.DiseaseState = population.Infected
			e.LastInfectionTime = testNow
		case 1:
			e.LastRemissionTime = testNow
		}
	})

	o := newDiseaseObserver(config.ObserverFlags{Enabled: true}, 1)
	stepYears := 1 / config.DaysPerYear
	o.Collect(pop, testNow, stepYears)
	o.Collect(pop, testNow.AddDate(0, 0, 1), stepYears)

	results := o.Finalize()
	assert.Equal(t, 1.0, results["incident_case_count"], "a transition is counted on its step only")
	assert.Equal(t, 1.0, results["remission_count"])
	assert.InDelta(t, 2*stepYears, results["infected_person_time"], 1e-12,
		"person-time keeps accruing while infected")
}

func TestMortalityObserver_ExcludesAgedOut(t *testing.T) {
	pop := smallTable(t, 3, 4, nil)
	pop.Exit(pop.Get(0), testNow, population.ExitDied)
	pop.Exit(pop.Get(1), testNow, population.ExitAgedOut)

	o := newMortalityObserver(config.ObserverFlags{Enabled: true}, 1)
	o.Collect(pop, testNow, 1/config.DaysPerYear)
	o.Collect(pop, testNow.AddDate(0, 0, 1), 1/config.DaysPerYear)

	results := o.Finalize()
	assert.Equal(t, 1.0, results["death_count"], "deaths are attributed to their exit step once")
}

func TestMortalityObserver_Stratified(t *testing.T) {
	pop := smallTable(t, 2, 3, func(id int64, e *population.Entity) {
		if id == 0 {
			e.Sex = population.Male
		} else {
			e.Sex = population.Female
		}
	})
	pop.Exit(pop.Get(0), testNow, population.ExitDied)
	pop.Exit(pop.Get(1), testNow, population.ExitDied)

	flags := config.ObserverFlags{Enabled: true, BySex: true, ByYear: true, ByAge: true}
	o := newMortalityObserver(flags, 1)
	o.Collect(pop, testNow, 1/config.DaysPerYear)

	results := o.Finalize()
	assert.Equal(t, 1.0, results["death_count_year_2025_sex_male_age_3_to_4"])
	assert.Equal(t, 1.0, results["death_count_year_2025_sex_female_age_3_to_4"])
}

func TestDisabilityObserver_AccruesOnlyWhileInfected(t *testing.T) {
	pop := smallTable(t, 2, 1, func(id int64, e *population.Entity) {
		if id == 0 {
			e.DiseaseState = population.Infected
		}
	})

	o := newDisabilityObserver(config.ObserverFlags{Enabled: true}, 1)
	stepYears := 1 / config.DaysPerYear
	for i := 0; i < 10; i++ {
		o.Collect(pop, testNow.AddDate(0, 0, i), stepYears)
	}

	results := o.Finalize()
	assert.InDelta(t, 10*stepYears, results["disability_person_time"], 1e-12)
}

func TestSet_MergesObserverResults(t *testing.T) {
	cfg := config.Default()
	cfg.Observers.Disease.Enabled = true
	cfg.Observers.Disability.Enabled = true
	set := NewSet(&cfg)

	pop := smallTable(t, 1, 1, func(_ int64, e *population.Entity) {
		e.DiseaseState = population.Infected
		e.LastInfectionTime = testNow
	})
	set.Collect(pop, testNow, 1/config.DaysPerYear)

	results, err := set.Finalize()
	require.NoError(t, err)
	assert.Contains(t, results, "incident_case_count")
	assert.Contains(t, results, "disability_person_time")
}
