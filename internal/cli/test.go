package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tallylang/tally/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // fixture name filter (glob pattern)
}

// FixtureResult holds the result of a single fixture execution.
type FixtureResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall conformance result.
type TestResult struct {
	Fixtures []FixtureResult `json:"fixtures"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Total    int             `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <fixtures-dir>",
		Short: "Run conformance fixtures",
		Long: `Run conformance fixtures against this implementation.

Each YAML fixture carries a model document and expectations: where the
pipeline must fail and with which diagnostic code, or what the compiled
artifact and run must look like.

Exit codes:
  0 - all fixtures passed
  1 - one or more fixtures failed
  2 - command error (invalid paths, malformed fixtures)

Examples:
  tally test ./conformance
  tally test ./conformance --filter "growth-*"
  tally test ./conformance --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter fixtures by glob pattern")

	return cmd
}

func runTestCmd(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("fixtures directory not found: %s", dir))
	}

	fixtures, err := harness.LoadDir(dir)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("loading fixtures: %v", err))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := TestResult{}
	for _, f := range fixtures {
		if opts.Filter != "" {
			matched, _ := filepath.Match(opts.Filter, f.Name)
			if !matched {
				continue
			}
		}
		result.Total++

		fr := FixtureResult{Name: f.Name, Pass: true}
		o := harness.Execute(ctx, f)
		if err := harness.Verify(f, o); err != nil {
			fr.Pass = false
			fr.Errors = append(fr.Errors, err.Error())
		}
		if fr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Fixtures = append(result.Fixtures, fr)
	}

	return outputTestResult(formatter, result)
}

func outputTestResult(formatter *OutputFormatter, result TestResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		if result.Total == 0 {
			fmt.Fprintln(formatter.Writer, "No fixtures found.")
			return nil
		}
		for _, fr := range result.Fixtures {
			if fr.Pass {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", fr.Name)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", fr.Name)
			for _, e := range fr.Errors {
				fmt.Fprintf(formatter.Writer, "    %s\n", e)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d fixture(s) failed", result.Failed))
	}
	return nil
}
