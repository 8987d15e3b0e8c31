package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/population"
	"github.com/rangelab/vaxsim/internal/randomness"
	"github.com/rangelab/vaxsim/internal/rates"
)

// State is the run lifecycle state. Completed and Failed are terminal.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stepper orchestrates one simulation run.
//
// The per-step component order is a strict contract: demographics first
// (age, death, birth), then vaccination (doses, protection decay), then
// disease (transitions against this step's protection), then observation.
// Execution is single-threaded and step-synchronous; cancellation is
// honored at step boundaries only, leaving the table and observers in a
// consistent state as of the last completed step.
type Stepper struct {
	cfg       *config.Config
	rates     *rates.Table
	observers *observer.Set
	tokenGen  RunTokenGenerator

	state    State
	runToken string
	failure  error

	pop       *population.Table
	clock     *Clock
	summaries []population.Summary
}

// NewStepper creates a run in the Initialized state. A nil token generator
// defaults to UUIDv7 tokens.
func NewStepper(cfg *config.Config, rt *rates.Table, obs *observer.Set, gen RunTokenGenerator) *Stepper {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Stepper{
		cfg:       cfg,
		rates:     rt,
		observers: obs,
		tokenGen:  gen,
		state:     StateInitialized,
	}
}

// State returns the current lifecycle state.
func (s *Stepper) State() State { return s.state }

// RunToken returns the run identifier, empty until Run is called.
func (s *Stepper) RunToken() string { return s.runToken }

// Failure returns the fatal error for a Failed run, nil otherwise.
func (s *Stepper) Failure() error { return s.failure }

// Population returns the run's table. Valid after Run has started; for a
// Failed run it reflects the state as of the last completed step.
func (s *Stepper) Population() *population.Table { return s.pop }

// Summaries returns one aggregate per completed step.
func (s *Stepper) Summaries() []population.Summary { return s.summaries }

// Observers returns the run's observer set.
func (s *Stepper) Observers() *observer.Set { return s.observers }

// Run validates the configuration, executes the step loop, and transitions
// to Completed or Failed. It may be called once.
func (s *Stepper) Run(ctx context.Context) error {
	if s.state != StateInitialized {
		return fmt.Errorf("run already started (state=%s)", s.state)
	}
	s.runToken = s.tokenGen.Generate()

	if err := s.cfg.Validate(); err != nil {
		return s.fail(NewConfigurationError(err))
	}
	if err := s.rates.Validate(rates.CoreMeasures...); err != nil {
		return s.fail(NewConfigurationError(err))
	}

	stream := randomness.NewStream(s.cfg.RandomSeed)
	index, err := randomness.NewIndexMap(s.cfg.MapSize)
	if err != nil {
		return s.fail(NewConfigurationError(err))
	}

	s.pop, err = population.New(s.cfg.PopulationSize, s.cfg.AgeStart, s.cfg.AgeEnd, s.cfg.StartDate, stream, index)
	if err != nil {
		var keyErr *randomness.ErrKeySpaceExhausted
		if errors.As(err, &keyErr) {
			return s.fail(NewRandomnessError("population", 0, err))
		}
		return s.fail(NewConfigurationError(err))
	}

	vaccination, err := NewVaccination(s.cfg, stream)
	if err != nil {
		return s.fail(NewConfigurationError(err))
	}
	demographics, err := NewDemographics(s.cfg, s.rates, stream, index)
	if err != nil {
		return s.fail(NewConfigurationError(err))
	}
	disease := NewDisease(s.rates, stream)
	demographics.SetOnCreate(vaccination.InitializeEntity)

	if err := s.pop.ForEachAlive(vaccination.InitializeEntity); err != nil {
		return s.fail(NewConfigurationError(err))
	}

	s.clock = NewClock(s.cfg.StartDate, s.cfg.EndDate, s.cfg.StepSizeDays)
	s.state = StateRunning
	slog.Info("run starting",
		"token", s.runToken,
		"location", s.cfg.Location,
		"input_draw", s.cfg.InputDraw,
		"population", s.cfg.PopulationSize,
		"seed", s.cfg.RandomSeed,
		"start", s.cfg.StartDate.Format("2006-01-02"),
		"end", s.cfg.EndDate.Format("2006-01-02"),
		"step_days", s.cfg.StepSizeDays,
	)

	for !s.clock.Done() {
		// Aborts are honored between steps only; observer output for
		// elapsed steps stays intact for diagnostics.
		if err := ctx.Err(); err != nil {
			return s.fail(fmt.Errorf("run aborted at step %d: %w", s.clock.Step(), err))
		}

		if err := demographics.Step(s.pop, s.clock); err != nil {
			return s.fail(err)
		}
		if err := vaccination.Step(s.pop, s.clock); err != nil {
			return s.fail(err)
		}
		if err := disease.Step(s.pop, s.clock); err != nil {
			return s.fail(err)
		}
		s.observers.Collect(s.pop, s.clock.Now(), s.clock.StepYears())

		s.summaries = append(s.summaries, s.pop.Summarize(s.clock.Step(), s.clock.Now().Format("2006-01-02")))

		slog.Debug("step completed",
			"step", s.clock.Step(),
			"date", s.clock.Now().Format("2006-01-02"),
			"alive", s.summaries[len(s.summaries)-1].Alive,
		)
		s.clock.Advance()
	}

	s.state = StateCompleted
	slog.Info("run completed", "token", s.runToken, "steps", s.clock.Step())
	return nil
}

func (s *Stepper) fail(err error) error {
	s.state = StateFailed
	s.failure = err
	slog.Error("run failed", "token", s.runToken, "error", err)
	return err
}
