package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resultdb/resultdb/internal/model"
	"github.com/resultdb/resultdb/internal/store"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	Database string
}

// StoreSummary reports per-outcome result counts and dimension sizes.
type StoreSummary struct {
	Outcomes map[string]int `json:"outcomes"`
	Tables   map[string]int `json:"tables"`
}

func (s StoreSummary) String() string {
	var b strings.Builder
	b.WriteString("results by outcome:")
	for _, o := range model.Outcomes() {
		fmt.Fprintf(&b, "\n  %-5s %d", o, s.Outcomes[o.String()])
	}
	b.WriteString("\nrows by table:")
	for _, kind := range model.NewRegistry().Kinds() {
		fmt.Fprintf(&b, "\n  %-17s %d", string(kind), s.Tables[string(kind)])
	}
	return b.String()
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show recorded result counts",
		Long: `Show per-outcome result counts and per-table row counts for a store.

Example:
  resultdb summary --db ./results.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSummary(opts *SummaryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	counts, err := st.OutcomeCounts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outcome counts", err)
	}

	summary := StoreSummary{
		Outcomes: make(map[string]int),
		Tables:   make(map[string]int),
	}
	for _, c := range counts {
		summary.Outcomes[c.Outcome.String()] = c.Count
	}
	for _, kind := range model.NewRegistry().Kinds() {
		n, err := st.CountRows(ctx, string(kind))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count rows", err)
		}
		summary.Tables[string(kind)] = n
	}

	return formatter.Success(summary)
}
