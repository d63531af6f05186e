// Package diag defines the compile-time diagnostic vocabulary shared by
// the type checker, the provenance validator and the IR generator.
//
// Codes are part of the conformance surface: fixtures assert on them, so
// they are stable strings, never renumbered.
package diag

import (
	"fmt"
	"strings"
)

// Code categorizes a compile-time diagnostic.
type Code string

const (
	// Type checker codes.
	CodeTypeMismatch      Code = "type-mismatch"
	CodeDimensionMismatch Code = "dimension-mismatch"
	CodeCurrencyMismatch  Code = "currency-mismatch"
	CodeCausality         Code = "causality-violation"
	CodeUndefined         Code = "undefined-identifier"
	CodeAmbiguous         Code = "ambiguous-type"

	// Provenance validator codes (non-blocking unless strictness is requested).
	CodeMissingProvenance Code = "missing-provenance"
	CodeInvalidMethod     Code = "invalid-method"
	CodeInvalidConfidence Code = "invalid-confidence"

	// IR generator codes.
	CodeDependencyCycle    Code = "dependency-cycle"
	CodeInvalidCorrelation Code = "invalid-correlation"
)

// Diagnostic is one structurally-located compile-time finding.
type Diagnostic struct {
	Code Code   `json:"code" yaml:"code"`
	Path string `json:"path" yaml:"path"` // e.g. "vars.mrr.recurrence"
	Msg  string `json:"msg" yaml:"msg"`
}

func (d Diagnostic) Error() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", d.Path, d.Code, d.Msg)
}

// New builds a diagnostic with a formatted message.
func New(code Code, path, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// List is a batch of diagnostics. Checks that are decomposable per node
// collect everything they find; List carries the whole batch as one error.
type List []Diagnostic

func (l List) Error() string {
	if len(l) == 0 {
		return "no diagnostics"
	}
	msgs := make([]string, len(l))
	for i, d := range l {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasBlocking reports whether any diagnostic blocks IR generation.
// Provenance codes are advisory; everything else blocks.
func (l List) HasBlocking() bool {
	for _, d := range l {
		switch d.Code {
		case CodeMissingProvenance, CodeInvalidMethod, CodeInvalidConfidence:
		default:
			return true
		}
	}
	return false
}

// Contains reports whether any diagnostic carries the code.
func (l List) Contains(code Code) bool {
	for _, d := range l {
		if d.Code == code {
			return true
		}
	}
	return false
}

// ErrOrNil returns l as an error, or nil when empty.
func (l List) ErrOrNil() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
