package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rangelab/vaxsim/internal/artifact"
	"github.com/rangelab/vaxsim/internal/observer"
	"github.com/rangelab/vaxsim/internal/results"
	"github.com/rangelab/vaxsim/internal/sim"
)

// RunFlags holds the run command's flags.
type RunFlags struct {
	ConfigPath   string
	ArtifactPath string
	ResultsPath  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a simulation run",
		Long: `Execute one simulation run: load the CUE configuration and the SQLite
rate artifact, step the population from the start date to the end date, and
report the final state and observer metrics.

With --results, the run record, per-step summaries, and metrics are also
persisted to a results database keyed by run token.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, flags, cmd)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "CUE run configuration file (required)")
	cmd.Flags().StringVarP(&flags.ArtifactPath, "artifact", "a", "", "SQLite rate artifact (required)")
	cmd.Flags().StringVarP(&flags.ResultsPath, "results", "r", "", "results database to append to (optional)")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("artifact")

	return cmd
}

func runRun(opts *RootOptions, flags *RunFlags, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := LoadConfig(flags.ConfigPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded config: location=%s population=%d seed=%d",
		cfg.Location, cfg.PopulationSize, cfg.RandomSeed)

	art, err := artifact.Open(flags.ArtifactPath)
	if err != nil {
		_ = formatter.Error(ErrCodeArtifact, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening artifact", err)
	}
	defer art.Close()

	rt, err := art.LoadRates(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeArtifact, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading rates", err)
	}
	formatter.VerboseLog("Loaded rate artifact: %s", flags.ArtifactPath)

	stepper := sim.NewStepper(cfg, rt, observer.NewSet(cfg), nil)
	runErr := stepper.Run(cmd.Context())

	var metrics observer.Results
	if runErr == nil {
		metrics, err = stepper.Observers().Finalize()
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "finalizing observers", err)
		}
	}

	rec := results.NewRunRecord(stepper.RunToken(), cfg, stepper.State().String(), runErr)
	if flags.ResultsPath != "" {
		if err := persistRun(cmd, flags.ResultsPath, rec, stepper, metrics); err != nil {
			_ = formatter.Error(ErrCodeResults, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing results", err)
		}
		formatter.VerboseLog("Results written to %s (token %s)", flags.ResultsPath, rec.Token)
	}

	if runErr != nil {
		_ = formatter.Error(simErrorCode(runErr), runErr.Error(), nil)
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	report := results.NewReport(rec, stepper.Summaries(), metrics)
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	return report.RenderText(formatter.Writer)
}

func persistRun(cmd *cobra.Command, path string, rec results.RunRecord, stepper *sim.Stepper, metrics observer.Results) error {
	store, err := results.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.WriteRun(cmd.Context(), rec, stepper.Summaries(), metrics)
}

// simErrorCode maps a simulation failure to its output error code.
func simErrorCode(err error) string {
	var runErr *sim.RunError
	if errors.As(err, &runErr) {
		return string(runErr.Code)
	}
	return ErrCodeGeneric
}

// outputLoadError reports a config loading failure with its load code.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "loading config", err)
}
