package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallylang/tally/internal/engine"
	"github.com/tallylang/tally/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayReport is the replay command's output payload.
type ReplayReport struct {
	RunID     string `json:"run_id"`
	ModelHash string `json:"model_hash"`
	Verified  bool   `json:"verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-execute a stored run and verify byte-identical results",
		Long: `Re-execute a stored run and verify it reproduces byte-identically.

The stored run artifact pins model_hash, assumption_hash, seed, mode and
replicate count; replay re-runs under that configuration and compares
canonical bytes. Divergence means the runtime or the model changed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplayCmd(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
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

	prior, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("run %s not found", runID))
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, fmt.Sprintf("reading run: %v", err))
	}

	art, err := st.ReadArtifact(ctx, prior.ModelHash)
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("artifact %s not found", prior.ModelHash))
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, fmt.Sprintf("reading artifact: %v", err))
	}

	formatter.VerboseLog("replaying run %s (mode %s, seed %d, %d replicate(s))",
		runID, prior.Mode, prior.Seed, prior.NumRuns)

	if _, err := engine.Replay(ctx, art, prior, nil); err != nil {
		_ = formatter.Error(ErrCodeDiverged, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay diverged", err)
	}

	report := ReplayReport{RunID: runID, ModelHash: prior.ModelHash, Verified: true}
	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "✓ run %s replayed byte-identically\n", runID)
	return nil
}
