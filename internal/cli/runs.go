package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallylang/tally/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database  string
	ModelHash string
	Mode      string
	Status    string
	Severity  string
	Limit     int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs from the audit store",
		Long: `List stored runs from the audit store, newest first.

Filters compose: --status constraint_failure --severity fatal lists runs
that stopped on a fatal violation.

Examples:
  tally runs --db ./tally.db
  tally runs --db ./tally.db --model-hash a3f9... --limit 10
  tally runs --db ./tally.db --status constraint_failure --severity fatal`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsCmd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit store (required)")
	cmd.Flags().StringVar(&opts.ModelHash, "model-hash", "", "filter by model hash")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "filter by mode (deterministic|monte_carlo)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (success|constraint_failure)")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "only runs with a violation of this severity (fatal|warning)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to return (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRunsCmd(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, fmt.Sprintf("opening store: %v", err))
	}
	defer st.Close()

	query := store.RunQuery{
		ModelHash: opts.ModelHash,
		Mode:      opts.Mode,
		Status:    opts.Status,
		Severity:  opts.Severity,
		Limit:     opts.Limit,
	}
	if err := query.Validate(); err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	runs, err := st.QueryRuns(ctx, query)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, fmt.Sprintf("querying runs: %v", err))
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  %s  seed=%d runs=%d steps=%d  %s\n",
			r.ID, r.Mode, r.Status, r.Seed, r.NumRuns, r.StepsCompleted, r.CreatedAt)
	}
	return nil
}
