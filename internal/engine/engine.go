// Package engine is the simulation runtime: it consumes an IR artifact
// plus a run configuration and produces time-indexed results, constraint
// violation records and policy execution records.
//
// Each run is the state machine Init → StepLoop → Terminated. One step
// is three phases in a fixed order: evaluate variables in dependency
// order, apply policies in declaration order, check constraints in
// declaration order. A fatal constraint violation is a valid terminal
// state with partial results; runtime errors (divide by zero, bad
// distribution parameters) abort the run and are reported distinctly.
//
// The engine never sees source syntax; its whole input is the artifact.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tallylang/tally/internal/ir"
	"github.com/tallylang/tally/internal/stats"
)

// RuntimeVersion is stamped into every run artifact; it participates in
// the reproducibility contract together with model_hash, assumption_hash,
// seed, mode and num_runs.
const RuntimeVersion = "1.0.0"

// Mode selects deterministic or Monte Carlo execution.
type Mode string

const (
	ModeDeterministic Mode = "deterministic"
	ModeMonteCarlo    Mode = "monte_carlo"
)

// Config is one run request.
type Config struct {
	Mode  Mode
	Seed  uint64
	Steps int // horizon: steps 0..Steps-1

	// NumRuns is the Monte Carlo replicate count; ignored (forced to 1)
	// in deterministic mode.
	NumRuns int

	// Workers bounds replicate parallelism; 0 means one worker per
	// replicate up to the scheduler's discretion. Parallelism never
	// affects results.
	Workers int

	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("run config: steps must be positive, got %d", c.Steps)
	}
	switch c.Mode {
	case ModeDeterministic:
	case ModeMonteCarlo:
		if c.NumRuns <= 0 {
			return fmt.Errorf("run config: monte_carlo requires num_runs > 0, got %d", c.NumRuns)
		}
	default:
		return fmt.Errorf("run config: unknown mode %q", c.Mode)
	}
	return nil
}

// Run executes the artifact under the configuration and returns the run
// artifact. Identical (model_hash, assumption_hash, seed, mode, num_runs)
// yield byte-identical encoded artifacts regardless of parallelism.
func Run(ctx context.Context, art *ir.Artifact, cfg Config) (*RunArtifact, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := ir.CheckSchemaVersion(art.SchemaVersion); err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeDeterministic:
		return runDeterministic(art, cfg)
	default:
		return runEnsemble(ctx, art, cfg)
	}
}

func runDeterministic(art *ir.Artifact, cfg Config) (*RunArtifact, error) {
	// The PRNG is derived but untouched: deterministic runs bind central
	// tendencies instead of drawing. Seeding it anyway keeps newSim
	// uniform across modes.
	s := newSim(art, cfg, stats.ReplicateRand(cfg.Seed, 0), -1)
	if err := s.init(); err != nil {
		return nil, err
	}
	res, err := s.run()
	if err != nil {
		return nil, err
	}

	ra := newRunArtifact(art, cfg)
	ra.NumRuns = 1
	ra.Status = res.Status
	ra.StepsCompleted = res.StepsCompleted
	ra.Series = res.Series
	ra.ConstraintViolations = res.Violations
	ra.PolicyExecutions = res.Policies
	return ra, nil
}
