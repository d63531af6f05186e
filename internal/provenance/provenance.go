// Package provenance validates the mandatory metadata attached to model
// parameters and computes the completeness score.
//
// The validator never fails fatally: missing or malformed records become
// diagnostics that do not block IR generation unless the caller asks for a
// strictness threshold. Its value is in being unconditionally invoked on
// every compile, not in algorithmic depth.
package provenance

import (
	"fmt"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/typecheck"
)

// Methods is the closed enumeration of provenance methods.
var Methods = map[string]bool{
	"observed":          true,
	"fitted":            true,
	"derived":           true,
	"expert_estimate":   true,
	"external_research": true,
	"assumption":        true,
}

// Report is the validator's output: the (unmutated) typed model plus the
// completeness accounting. It is an explicit artifact threaded to the IR
// generator and to reporting; there is no process-wide registry.
type Report struct {
	Typed *typecheck.TypedModel

	// Completeness = complete params / total params, in [0,1].
	// A model with no parameters is vacuously complete (1.0).
	Completeness float64

	// Complete and Total are the raw counts behind Completeness.
	Complete int
	Total    int

	// Diags are advisory unless the caller applies a strict threshold.
	Diags diag.List
}

// Validate checks every parameter's provenance record: source, method and
// confidence must be present, method must be in the fixed enum, confidence
// must lie in [0,1]. Returns the report even when diagnostics exist.
func Validate(tm *typecheck.TypedModel) *Report {
	r := &Report{Typed: tm}
	for _, p := range tm.Model.Params {
		r.Total++
		path := "params." + p.Name + ".provenance"
		complete := true

		if p.Provenance == nil {
			r.Diags = append(r.Diags, diag.New(diag.CodeMissingProvenance, path,
				"parameter %q has no provenance record", p.Name))
			continue
		}
		pr := p.Provenance
		if pr.Source == "" {
			complete = false
			r.Diags = append(r.Diags, diag.New(diag.CodeMissingProvenance, path,
				"required field %q is missing", "source"))
		}
		if pr.Method == "" {
			complete = false
			r.Diags = append(r.Diags, diag.New(diag.CodeMissingProvenance, path,
				"required field %q is missing", "method"))
		} else if !Methods[pr.Method] {
			complete = false
			r.Diags = append(r.Diags, diag.New(diag.CodeInvalidMethod, path,
				"method %q is not one of the provenance methods", pr.Method))
		}
		if pr.Confidence == nil {
			complete = false
			r.Diags = append(r.Diags, diag.New(diag.CodeMissingProvenance, path,
				"required field %q is missing", "confidence"))
		} else if *pr.Confidence < 0 || *pr.Confidence > 1 {
			complete = false
			r.Diags = append(r.Diags, diag.New(diag.CodeInvalidConfidence, path,
				"confidence %v is outside [0,1]", *pr.Confidence))
		}
		for i, corr := range pr.Correlated {
			if corr.Coefficient < -1 || corr.Coefficient > 1 {
				complete = false
				r.Diags = append(r.Diags, diag.New(diag.CodeInvalidCorrelation,
					fmt.Sprintf("%s.correlated_with[%d]", path, i),
					"correlation coefficient %v is outside [-1,1]", corr.Coefficient))
			}
		}
		if complete {
			r.Complete++
		}
	}

	if r.Total == 0 {
		r.Completeness = 1
	} else {
		r.Completeness = float64(r.Complete) / float64(r.Total)
	}
	return r
}

// CheckThreshold promotes provenance diagnostics to a blocking error when
// completeness falls below min.
func (r *Report) CheckThreshold(min float64) error {
	if r.Completeness >= min {
		return nil
	}
	return fmt.Errorf("provenance completeness %.2f below required threshold %.2f: %w",
		r.Completeness, min, r.Diags.ErrOrNil())
}

// Records extracts the per-parameter provenance records keyed by
// parameter name, in declaration order, for serialization into the
// assumption hash and the audit store.
func (r *Report) Records() []ParamRecord {
	out := make([]ParamRecord, 0, len(r.Typed.Model.Params))
	for _, p := range r.Typed.Model.Params {
		rec := ParamRecord{Param: p.Name}
		if p.Provenance != nil {
			rec.Provenance = *p.Provenance
		}
		out = append(out, rec)
	}
	return out
}

// ParamRecord pairs a parameter name with its provenance for serialization.
type ParamRecord struct {
	Param      string         `json:"param"`
	Provenance ast.Provenance `json:"provenance"`
}
