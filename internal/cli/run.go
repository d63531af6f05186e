package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tallylang/tally/internal/engine"
	"github.com/tallylang/tally/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Mode     string
	Seed     uint64
	Steps    int
	NumRuns  int
	Workers  int
	Database string // optional audit store
	Output   string // optional artifact file
}

// RunReport is the run command's output payload.
type RunReport struct {
	RunID      string              `json:"run_id,omitempty"`
	Artifact   *engine.RunArtifact `json:"artifact"`
	ModelName  string              `json:"model_name"`
	Violations int                 `json:"violations"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Compile and execute a model",
		Long: `Compile a model document and execute it.

Deterministic mode binds every stochastic parameter to its central
tendency and produces one trajectory. Monte Carlo mode runs --runs
replicates with correlated sampling and reports per-step percentiles.
With --db, the compiled artifact and the run are persisted to the
audit store.

Examples:
  tally run model.cue --steps 36
  tally run model.cue --mode monte_carlo --runs 1000 --seed 42 --steps 36
  tally run model.cue --steps 36 --db ./tally.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "deterministic", "execution mode (deterministic|monte_carlo)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "master seed for stochastic sampling")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "time horizon in steps (required)")
	cmd.Flags().IntVar(&opts.NumRuns, "runs", 1000, "Monte Carlo replicate count")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "replicate parallelism (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist artifact and run to this SQLite database")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the run artifact to this file")
	_ = cmd.MarkFlagRequired("steps")

	return cmd
}

func runRunCmd(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	comp, err := compileModel(path)
	if err != nil {
		return outputPipelineError(formatter, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Debug("run starting", "model", comp.Model.Name, "mode", opts.Mode, "steps", opts.Steps)
	ra, err := engine.Run(ctx, comp.Artifact, engine.Config{
		Mode:    engine.Mode(opts.Mode),
		Seed:    opts.Seed,
		Steps:   opts.Steps,
		NumRuns: opts.NumRuns,
		Workers: opts.Workers,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "run failed", err)
	}

	report := RunReport{
		Artifact:   ra,
		ModelName:  comp.Model.Name,
		Violations: len(ra.ConstraintViolations),
	}

	if opts.Database != "" {
		id, err := persistRun(ctx, opts.Database, comp, ra)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "persisting run", err)
		}
		report.RunID = id
	}

	if opts.Output != "" {
		raw, err := ra.Encode()
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("encoding run artifact: %v", err))
		}
		if err := os.WriteFile(opts.Output, raw, 0o644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", opts.Output, err))
		}
	}

	return outputRunReport(formatter, report, opts)
}

func persistRun(ctx context.Context, dbPath string, comp *compilation, ra *engine.RunArtifact) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := st.WriteArtifact(ctx, comp.Artifact); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	id, err := st.WriteRun(ctx, ra)
	if err != nil {
		return "", fmt.Errorf("writing run: %w", err)
	}
	return id, nil
}

func outputRunReport(formatter *OutputFormatter, report RunReport, opts *RunOptions) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	ra := report.Artifact
	mark := "✓"
	if ra.Status != engine.StatusSuccess {
		mark = "✗"
	}
	fmt.Fprintf(formatter.Writer, "%s %s: %s after %d step(s)\n", mark, report.ModelName, ra.Status, ra.StepsCompleted)
	fmt.Fprintf(formatter.Writer, "  mode: %s  seed: %d  runs: %d\n", ra.Mode, ra.Seed, ra.NumRuns)
	if report.Violations > 0 {
		fmt.Fprintf(formatter.Writer, "  violations: %d\n", report.Violations)
		for i, v := range ra.ConstraintViolations {
			if i == 5 {
				fmt.Fprintf(formatter.Writer, "    ... and %d more\n", report.Violations-5)
				break
			}
			fmt.Fprintf(formatter.Writer, "    [%s] %s at step %d\n", v.Severity, v.Name, v.Time)
		}
	}
	if report.RunID != "" {
		fmt.Fprintf(formatter.Writer, "  run_id: %s\n", report.RunID)
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "  wrote run artifact to %s\n", opts.Output)
	}
	return nil
}
