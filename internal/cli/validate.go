package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/resultdb/resultdb/internal/report"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <report.yaml>",
		Short: "Validate a report without recording it",
		Long: `Validate a test report document against the report schema.

Checks structure, required fields, and outcome names without touching
any database. Faster feedback than a full record run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateReport(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidateReport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read report", err)
	}

	errs := report.Validate(data)
	if len(errs) == 0 {
		// A schema-valid document can still carry values the parser
		// rejects (e.g. a malformed timestamp); surface those too.
		if _, parseErr := report.Parse(data); parseErr != nil {
			errs = []error{parseErr}
		}
	}

	if len(errs) > 0 {
		result := ValidationResult{Valid: false}
		for _, e := range errs {
			result.Errors = append(result.Errors, e.Error())
		}
		if opts.Format == "json" {
			if err := formatter.Success(result); err != nil {
				return err
			}
		} else {
			for _, msg := range result.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("report invalid: %d error(s)", len(errs)))
	}

	formatter.VerboseLog("report %s is valid", path)
	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	return formatter.Success("report valid")
}
