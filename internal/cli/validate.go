package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rangelab/vaxsim/internal/artifact"
	"github.com/rangelab/vaxsim/internal/config"
	"github.com/rangelab/vaxsim/internal/rates"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration and artifact without running",
		Long: `Validate a CUE run configuration, and optionally a rate artifact,
without executing the simulation. Checks the configuration constraints and,
when an artifact is given, that every measure the configuration needs is
present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, flags, cmd)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "CUE run configuration file (required)")
	cmd.Flags().StringVarP(&flags.ArtifactPath, "artifact", "a", "", "SQLite rate artifact (optional)")
	cmd.MarkFlagRequired("config")

	return cmd
}

func runValidate(opts *RootOptions, flags *RunFlags, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := LoadConfig(flags.ConfigPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	var problems []string
	if err := cfg.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if flags.ArtifactPath != "" {
		problems = append(problems, validateArtifact(cmd, flags.ArtifactPath, cfg, formatter)...)
	}

	if len(problems) > 0 {
		return outputValidationErrors(formatter, problems)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ Configuration valid")
	return nil
}

// validateArtifact checks the artifact carries every measure the
// configuration needs.
func validateArtifact(cmd *cobra.Command, path string, cfg *config.Config, formatter *OutputFormatter) []string {
	art, err := artifact.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("artifact: %v", err)}
	}
	defer art.Close()

	rt, err := art.LoadRates(cmd.Context())
	if err != nil {
		return []string{fmt.Sprintf("artifact: %v", err)}
	}
	formatter.VerboseLog("Loaded rate artifact: %s", path)

	required := append([]rates.Measure{}, rates.CoreMeasures...)
	if cfg.Fertility {
		required = append(required, rates.MeasureCrudeBirthRate)
	}
	if cfg.DiseaseMortality {
		required = append(required, rates.MeasureExcessMortality)
	}

	var problems []string
	if err := rt.Validate(required...); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Fertility && !rt.HasReferencePopulation() {
		problems = append(problems, "artifact has no reference population but fertility is enabled")
	}
	return problems
}

// outputValidationErrors reports validation problems and exits with a
// validation-failure code.
func outputValidationErrors(formatter *OutputFormatter, problems []string) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: problems},
			Error:  &CLIError{Code: ErrCodeBadConfig, Message: problems[0]},
		}
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, p := range problems {
		fmt.Fprintf(formatter.Writer, "  %s\n", p)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
}
