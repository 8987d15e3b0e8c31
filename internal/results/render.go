package results

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/population"
)

// Report is the renderable view of one finished run.
type Report struct {
	Run       RunRecord            `json:"run"`
	Summaries []population.Summary `json:"summaries,omitempty"`
	Final     *population.Summary  `json:"final,omitempty"`
	Metrics   observer.Results     `json:"metrics,omitempty"`
}

// NewReport assembles a report. The full summary series is kept for JSON
// output; the text renderer shows only the final state.
func NewReport(rec RunRecord, summaries []population.Summary, metrics observer.Results) Report {
	r := Report{Run: rec, Summaries: summaries, Metrics: metrics}
	if len(summaries) > 0 {
		final := summaries[len(summaries)-1]
		r.Final = &final
	}
	return r
}

// RenderJSON writes the report as indented JSON.
func (r Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderText writes a human-readable report. Counts are grouped with
// locale-aware separators so million-entity runs stay readable.
func (r Report) RenderText(w io.Writer) error {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Run %s (%s)\n", r.Run.Token, r.Run.Status)
	p.Fprintf(w, "  location:   %s\n", r.Run.Location)
	p.Fprintf(w, "  input draw: %d\n", r.Run.InputDraw)
	p.Fprintf(w, "  seed:       %d\n", r.Run.Seed)
	p.Fprintf(w, "  population: %d\n", r.Run.Population)
	p.Fprintf(w, "  period:     %s to %s (step %v days)\n", r.Run.StartDate, r.Run.EndDate, r.Run.StepDays)
	if r.Run.Failure != "" {
		p.Fprintf(w, "  failure:    %s\n", r.Run.Failure)
	}

	if r.Final != nil {
		f := r.Final
		p.Fprintf(w, "\nFinal state (%s, step %d):\n", f.Date, f.Step)
		p.Fprintf(w, "  alive:       %d\n", f.Alive)
		p.Fprintf(w, "  susceptible: %d\n", f.Susceptible)
		p.Fprintf(w, "  infected:    %d\n", f.Infected)
		p.Fprintf(w, "  deaths:      %d\n", f.Deaths)
		p.Fprintf(w, "  aged out:    %d\n", f.AgedOut)
		p.Fprintf(w, "  doses:       %d\n", f.Doses)
		p.Fprintf(w, "  births:      %d\n", f.Births)
	}

	if len(r.Metrics) > 0 {
		p.Fprintf(w, "\nMetrics:\n")
		keys := make([]string, 0, len(r.Metrics))
		for k := range r.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.Fprintf(w, "  %-50s %v\n", k, metricValue(r.Metrics[k]))
		}
	}
	return nil
}

// metricValue renders counts as integers and person-time with fixed
// precision.
func metricValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}
