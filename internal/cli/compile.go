package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/ir"
	"github.com/tallylang/tally/internal/provenance"
	"github.com/tallylang/tally/internal/typecheck"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// compilation is the result of driving a model through every compile
// stage. Diags accumulates checker and provenance diagnostics.
type compilation struct {
	Model    *ast.Model
	Report   *provenance.Report
	Artifact *ir.Artifact
	Diags    diag.List
}

// PipelineError marks which compile stage failed and carries its
// diagnostics.
type PipelineError struct {
	Code  string // E101 typecheck, E102 provenance, E103 IR
	Diags diag.List
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Diags.Error())
}

func (e *PipelineError) Unwrap() error { return e.Err }

// compileModel loads a model document and runs check → validate →
// generate. Provenance diagnostics are collected but never fail the
// compile; validate applies thresholds separately.
func compileModel(path string) (*compilation, error) {
	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	comp := &compilation{Model: m}

	tm, diags := typecheck.Check(m, nil)
	comp.Diags = diags
	if diags.HasBlocking() {
		return comp, &PipelineError{Code: ErrCodeTypecheck, Diags: diags}
	}

	comp.Report = provenance.Validate(tm)
	comp.Diags = append(comp.Diags, comp.Report.Diags...)

	art, err := ir.Generate(comp.Report)
	if err != nil {
		return comp, &PipelineError{Code: ErrCodeIR, Err: err}
	}
	comp.Artifact = art
	return comp, nil
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model>",
		Short: "Compile a CUE model document to a canonical IR artifact",
		Long: `Compile a CUE model document to the canonical IR artifact.

The compiler type-checks the model (dimensions, currencies, causality),
validates provenance, sorts nodes into dependency order and emits
canonical JSON whose bytes are the model's identity.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the artifact to this file")

	return cmd
}

func runCompileCmd(opts *CompileOptions, path string, cmd *cobra.Command) error {
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

	formatter.VerboseLog("compiled %s: %d nodes, completeness %.2f",
		comp.Model.Name, len(comp.Artifact.Nodes), comp.Artifact.Completeness)

	if opts.Output != "" {
		raw, err := comp.Artifact.Encode()
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("encoding artifact: %v", err))
		}
		if err := os.WriteFile(opts.Output, raw, 0o644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", opts.Output, err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(comp.Artifact)
	}

	fmt.Fprintf(formatter.Writer, "✓ compiled model %q\n\n", comp.Model.Name)
	fmt.Fprintf(formatter.Writer, "  nodes:           %d\n", len(comp.Artifact.Nodes))
	fmt.Fprintf(formatter.Writer, "  constraints:     %d\n", len(comp.Artifact.Constraints))
	fmt.Fprintf(formatter.Writer, "  policies:        %d\n", len(comp.Artifact.Policies))
	fmt.Fprintf(formatter.Writer, "  completeness:    %.0f%%\n", comp.Artifact.Completeness*100)
	fmt.Fprintf(formatter.Writer, "  model_hash:      %s\n", comp.Artifact.ModelHash)
	fmt.Fprintf(formatter.Writer, "  assumption_hash: %s\n", comp.Artifact.AssumptionHash)
	for _, d := range comp.Diags {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", d.Error())
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote artifact to %s\n", opts.Output)
	}
	return nil
}

// outputPipelineError renders a load or compile failure and converts it
// into the right exit code: the model is at fault for stage failures,
// the invocation for load failures.
func outputPipelineError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, loadErr.Message, nil)
	}
	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		if len(pipeErr.Diags) > 0 {
			_ = formatter.Error(pipeErr.Code, "compilation failed", pipeErr.Diags)
			if formatter.Format != "json" {
				for _, d := range pipeErr.Diags {
					fmt.Fprintf(formatter.Writer, "  %s\n", d.Error())
				}
			}
		} else {
			_ = formatter.Error(pipeErr.Code, pipeErr.Error(), nil)
		}
		return WrapExitError(ExitFailure, pipeErr.Error(), nil)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, err.Error(), nil)
}

func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
