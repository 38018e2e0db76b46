package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/resultdb/resultdb/internal/engine"
	"github.com/resultdb/resultdb/internal/model"
	"github.com/resultdb/resultdb/internal/report"
	"github.com/resultdb/resultdb/internal/store"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Database string
	Noisy    bool
}

// RecordSummary is the caller-visible result of one ingest.
type RecordSummary struct {
	Batch    string         `json:"batch"`
	Results  int            `json:"results"`
	Outcomes map[string]int `json:"outcomes"`
}

func (s RecordSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "recorded %d result(s) (batch %s)", s.Results, s.Batch)
	for _, o := range model.Outcomes() {
		if n := s.Outcomes[o.String()]; n > 0 {
			fmt.Fprintf(&b, "\n  %-5s %d", o, n)
		}
	}
	return b.String()
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <report.yaml>",
		Short: "Record a test report into the store",
		Long: `Record the results of a test report into the SQLite store.

The report is validated against the report schema, then every result is
resolved through the get-or-create engine inside one transaction:
dimension rows (OS, hardware, spec, run, exception) are created only if
no row with the same natural key exists yet.

Example:
  resultdb record --db ./results.db report.yaml
  resultdb record --db ./results.db --noisy report.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Noisy, "noisy", false,
		"guard each insert against concurrent duplicate writers")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRecord(opts *RecordOptions, reportPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	batch := uuid.NewString()
	logger.Info("loading report", "path", reportPath, "batch", batch)
	doc, err := report.Load(reportPath)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load report", err)
	}
	items, err := doc.Items()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to convert report", err)
	}
	logger.Debug("report parsed", "results", len(items))

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	sess, err := st.Begin(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to begin session", err)
	}
	defer sess.Rollback() // no-op once committed

	eng := engine.New(model.NewRegistry())
	instances, err := recordItems(ctx, eng, sess, items, opts.Noisy)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record results", err)
	}
	if err := sess.Commit(); err != nil {
		return WrapExitError(ExitCommandError, "failed to commit session", err)
	}
	logger.Info("report recorded", "batch", batch, "results", len(instances))

	summary := RecordSummary{
		Batch:    batch,
		Results:  len(instances),
		Outcomes: make(map[string]int),
	}
	for _, instance := range instances {
		if res, ok := instance.(*model.TestResult); ok {
			summary.Outcomes[res.Outcome.String()]++
		}
	}
	return formatter.Success(summary)
}

// recordItems resolves every item of a report. The noisy path runs one
// get-or-create per item so a lost insert race with another reporting
// process is recovered in place; the quiet path resolves the whole
// batch in one shared savepoint.
func recordItems(ctx context.Context, eng *engine.Engine, sess *store.Session, items []engine.Item, noisy bool) ([]model.Entity, error) {
	if !noisy {
		return eng.BulkGetOrCreate(ctx, sess, items)
	}
	instances := make([]model.Entity, 0, len(items))
	for i, item := range items {
		instance, err := eng.GetOrCreate(ctx, sess, item.Kind, item.Fields, engine.Noisy)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		instances = append(instances, instance)
	}
	return instances, nil
}
