package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallylang/tally/internal/diag"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	MinCompleteness float64
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool              `json:"valid"`
	Completeness float64           `json:"completeness"`
	Diagnostics  []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Validate a model without emitting an artifact",
		Long: `Validate a CUE model document without emitting an artifact.

Runs the type checker, the provenance validator and IR generation,
reporting every diagnostic found. With --min-completeness, a provenance
completeness score below the threshold fails validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.MinCompleteness, "min-completeness", 0, "fail when provenance completeness is below this fraction")

	return cmd
}

func runValidateCmd(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	comp, err := compileModel(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputPipelineError(formatter, err)
		}
		var pipeErr *PipelineError
		if errors.As(err, &pipeErr) {
			return outputValidationResult(formatter, ValidationResult{
				Valid:       false,
				Diagnostics: validationDiags(comp, pipeErr),
			})
		}
		return outputPipelineError(formatter, err)
	}

	result := ValidationResult{
		Valid:        true,
		Completeness: comp.Report.Completeness,
		Diagnostics:  comp.Diags,
	}
	if err := comp.Report.CheckThreshold(opts.MinCompleteness); err != nil {
		result.Valid = false
	}
	return outputValidationResult(formatter, result)
}

func validationDiags(comp *compilation, pipeErr *PipelineError) []diag.Diagnostic {
	diags := pipeErr.Diags
	if comp != nil && len(comp.Diags) > 0 {
		diags = comp.Diags
	}
	if len(diags) == 0 && pipeErr.Err != nil {
		var d diag.Diagnostic
		if errors.As(pipeErr.Err, &d) {
			diags = diag.List{d}
		} else {
			diags = diag.List{diag.New(diag.Code(pipeErr.Code), "", "%v", pipeErr.Err)}
		}
	}
	return diags
}

func outputValidationResult(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ valid (completeness %.0f%%)\n", result.Completeness*100)
		for _, d := range result.Diagnostics {
			fmt.Fprintf(formatter.Writer, "  warning: %s\n", d.Error())
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ invalid")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(formatter.Writer, "  %s\n", d.Error())
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
