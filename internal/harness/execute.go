package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/engine"
	"github.com/tallylang/tally/internal/ir"
	"github.com/tallylang/tally/internal/provenance"
	"github.com/tallylang/tally/internal/typecheck"
)

// Outcome is everything a fixture execution produced. FailedStage is
// empty when the whole pipeline (including the optional run) succeeded.
type Outcome struct {
	FailedStage string
	Diags       diag.List // type checker + provenance diagnostics
	Err         error     // IR or runtime failure
	Artifact    *ir.Artifact
	Run         *engine.RunArtifact
}

// Execute drives the fixture through the pure stage entry points. The
// pipeline stops at the first failing stage; provenance diagnostics are
// advisory and do not stop it.
func Execute(ctx context.Context, f *Fixture) *Outcome {
	o := &Outcome{}

	tm, diags := typecheck.Check(f.Model, nil)
	o.Diags = diags
	if diags.HasBlocking() {
		o.FailedStage = StageTypecheck
		return o
	}

	rep := provenance.Validate(tm)
	o.Diags = append(o.Diags, rep.Diags...)

	art, err := ir.Generate(rep)
	if err != nil {
		o.FailedStage = StageIR
		o.Err = err
		return o
	}
	o.Artifact = art

	if f.Run == nil {
		return o
	}
	run, err := engine.Run(ctx, art, engine.Config{
		Mode:    engine.Mode(f.Run.Mode),
		Seed:    f.Run.Seed,
		Steps:   f.Run.Steps,
		NumRuns: f.Run.NumRuns,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		o.FailedStage = StageRun
		o.Err = err
		return o
	}
	o.Run = run
	return o
}

// Verify matches an outcome against the fixture's expectations.
func Verify(f *Fixture, o *Outcome) error {
	if f.Expect.Result == "pass" {
		return verifyPass(f, o)
	}
	return verifyError(f, o)
}

func verifyPass(f *Fixture, o *Outcome) error {
	if o.FailedStage != "" {
		return fmt.Errorf("expected pass, failed at %s: %w", o.FailedStage, failure(o))
	}
	if len(f.Expect.NodeOrder) > 0 {
		got := make([]string, len(o.Artifact.Nodes))
		for i, n := range o.Artifact.Nodes {
			got[i] = n.ID
		}
		if !equalStrings(f.Expect.NodeOrder, got) {
			return fmt.Errorf("node order %v, expected %v", got, f.Expect.NodeOrder)
		}
	}
	if f.Expect.Status != "" {
		if o.Run == nil {
			return fmt.Errorf("fixture expects run status %q but declares no run", f.Expect.Status)
		}
		if string(o.Run.Status) != f.Expect.Status {
			return fmt.Errorf("run status %s, expected %s", o.Run.Status, f.Expect.Status)
		}
	}
	if want := f.Expect.StepsCompleted; want != nil {
		if o.Run == nil {
			return fmt.Errorf("fixture expects steps_completed but declares no run")
		}
		if o.Run.StepsCompleted != *want {
			return fmt.Errorf("steps completed %d, expected %d", o.Run.StepsCompleted, *want)
		}
	}
	return nil
}

func verifyError(f *Fixture, o *Outcome) error {
	switch f.Expect.Stage {
	case StageProvenance:
		// Provenance diagnostics never stop the pipeline; the fixture
		// asserts they were reported.
		if !hasCode(o.Diags, f.Expect.Code) {
			return fmt.Errorf("expected provenance diagnostic %q, got %v", f.Expect.Code, o.Diags)
		}
		return nil
	default:
		if o.FailedStage != f.Expect.Stage {
			return fmt.Errorf("expected failure at %s, got failure at %q", f.Expect.Stage, o.FailedStage)
		}
	}

	if f.Expect.Code == "" {
		return nil
	}
	switch f.Expect.Stage {
	case StageTypecheck:
		if !hasCode(o.Diags, f.Expect.Code) {
			return fmt.Errorf("expected diagnostic %q, got %v", f.Expect.Code, o.Diags)
		}
	case StageIR:
		var d diag.Diagnostic
		if !errors.As(o.Err, &d) || string(d.Code) != f.Expect.Code {
			return fmt.Errorf("expected IR diagnostic %q, got %v", f.Expect.Code, o.Err)
		}
	case StageRun:
		return fmt.Errorf("run failures carry no diagnostic code; drop expect.code")
	}
	return nil
}

func failure(o *Outcome) error {
	if o.Err != nil {
		return o.Err
	}
	return o.Diags.ErrOrNil()
}

func hasCode(diags diag.List, code string) bool {
	return diags.Contains(diag.Code(code))
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
