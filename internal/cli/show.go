package cli

import (
	"github.com/spf13/cobra"

	"github.com/rangelab/vaxsim/internal/results"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var resultsPath string

	cmd := &cobra.Command{
		Use:           "show <run-token>",
		Short:         "Show a stored run",
		Long:          "Load a run by token from a results database and render its report.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, resultsPath, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&resultsPath, "results", "r", "", "results database (required)")
	cmd.MarkFlagRequired("results")

	return cmd
}

func runShow(opts *RootOptions, resultsPath, token string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := results.Open(resultsPath)
	if err != nil {
		_ = formatter.Error(ErrCodeResults, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening results store", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	rec, err := store.ReadRun(ctx, token)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading run", err)
	}
	summaries, err := store.ReadSummaries(ctx, token)
	if err != nil {
		_ = formatter.Error(ErrCodeResults, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading summaries", err)
	}
	metrics, err := store.ReadMetrics(ctx, token)
	if err != nil {
		_ = formatter.Error(ErrCodeResults, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading metrics", err)
	}

	report := results.NewReport(rec, summaries, metrics)
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	return report.RenderText(formatter.Writer)
}
