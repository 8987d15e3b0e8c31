package population

// Summary is the per-step aggregate view of the table. It is the unit of
// comparison for determinism checks and golden tests, so it holds only
// exactly reproducible integer counts.
type Summary struct {
	Step        int64  `json:"step"`
	Date        string `json:"date"` // YYYY-MM-DD
	Alive       int    `json:"alive"`
	Susceptible int    `json:"susceptible"`
	Infected    int    `json:"infected"`
	Deaths      int    `json:"deaths"`    // cumulative
	AgedOut     int    `json:"aged_out"`  // cumulative
	Doses       int    `json:"doses"`     // cumulative doses administered
	Births      int    `json:"births"`    // cumulative entities added after seeding
}

// Summarize computes the aggregate counts for the current table state.
func (t *Table) Summarize(step int64, date string) Summary {
	s := Summary{Step: step, Date: date}
	for i := range t.entities {
		e := &t.entities[i]
		if int(e.ID) >= t.initialSize {
			s.Births++
		}
		s.Doses += e.DoseCount
		switch e.ExitReason {
		case ExitDied:
			s.Deaths++
		case ExitAgedOut:
			s.AgedOut++
		}
		if !e.Alive {
			continue
		}
		s.Alive++
		switch e.DiseaseState {
		case Susceptible:
			s.Susceptible++
		case Infected:
			s.Infected++
		}
	}
	return s
}
