package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tallylang/tally/internal/ir"
	"github.com/tallylang/tally/internal/stats"
)

// runEnsemble executes NumRuns independent replicates and reduces them
// into order-independent ensemble statistics. Replicates share only the
// read-only artifact; each owns its σ and its seed-derived ρ, so the
// worker count changes wall time, never results.
func runEnsemble(ctx context.Context, art *ir.Artifact, cfg Config) (*RunArtifact, error) {
	results := make([]*RunResult, cfg.NumRuns)
	failures := make([]*ReplicateFailure, cfg.NumRuns)

	g, ctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for i := 0; i < cfg.NumRuns; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := newSim(art, cfg, stats.ReplicateRand(cfg.Seed, i), i)
			if err := s.init(); err != nil {
				return recordFailure(failures, i, err)
			}
			res, err := s.run()
			if err != nil {
				return recordFailure(failures, i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ra := newRunArtifact(art, cfg)
	ra.NumRuns = cfg.NumRuns
	ra.Status = StatusSuccess
	ra.StepsCompleted = cfg.Steps
	aggregate(ra, results, failures)

	if len(ra.ReplicateFailures) == cfg.NumRuns {
		return nil, fmt.Errorf("all %d replicates failed; first: %s",
			cfg.NumRuns, ra.ReplicateFailures[0].Error)
	}
	return ra, nil
}

// recordFailure files a replicate's runtime error for distinct reporting.
// Anything else (a bug, a cancelled context) aborts the whole ensemble.
func recordFailure(failures []*ReplicateFailure, i int, err error) error {
	re, ok := AsRuntimeError(err)
	if !ok {
		return err
	}
	failures[i] = &ReplicateFailure{Replicate: i, Step: re.Step, Error: re.Error()}
	return nil
}

// aggregate reduces per-replicate results. Every reduction is a function
// of the multiset of results (iteration goes replicate 0..N-1 over a
// pre-sized slice), so scheduling order cannot leak into the output.
func aggregate(ra *RunArtifact, results []*RunResult, failures []*ReplicateFailure) {
	firstBinding := make(map[BindingCount]int)

	for i, res := range results {
		if res == nil {
			if failures[i] != nil {
				ra.ReplicateFailures = append(ra.ReplicateFailures, *failures[i])
			}
			continue
		}
		ra.ConstraintViolations = append(ra.ConstraintViolations, res.Violations...)
		ra.PolicyExecutions = append(ra.PolicyExecutions, res.Policies...)
		if res.FirstFatal != nil {
			ra.Status = StatusConstraintFailure
			firstBinding[BindingCount{Name: res.FirstFatal.Name, Time: res.FirstFatal.Time}]++
		}
	}

	for key, n := range firstBinding {
		key.Count = n
		ra.FirstBinding = append(ra.FirstBinding, key)
	}
	sort.Slice(ra.FirstBinding, func(i, j int) bool {
		a, b := ra.FirstBinding[i], ra.FirstBinding[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Name < b.Name
	})

	ra.Percentiles = summarize(results)
}

// summarize builds per-variable, per-step ensemble summaries over the
// replicates that completed each step.
func summarize(results []*RunResult) map[string][]StepSummary {
	out := make(map[string][]StepSummary)
	var names []string
	seen := make(map[string]bool)
	for _, res := range results {
		if res == nil {
			continue
		}
		for name := range res.Series {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	for _, name := range names {
		maxLen := 0
		for _, res := range results {
			if res != nil && len(res.Series[name]) > maxLen {
				maxLen = len(res.Series[name])
			}
		}
		steps := make([]StepSummary, 0, maxLen)
		for t := 0; t < maxLen; t++ {
			var samples []float64
			for _, res := range results {
				if res != nil && t < len(res.Series[name]) {
					samples = append(samples, res.Series[name][t])
				}
			}
			summary, err := stats.Summarize(samples)
			if err != nil {
				break // no replicate reached this step
			}
			steps = append(steps, StepSummary{Summary: summary, Completed: len(samples)})
		}
		out[name] = steps
	}
	return out
}

// newRunArtifact stamps the identity fields shared by both modes.
func newRunArtifact(art *ir.Artifact, cfg Config) *RunArtifact {
	return &RunArtifact{
		ModelHash:            art.ModelHash,
		AssumptionHash:       art.AssumptionHash,
		RuntimeVersion:       RuntimeVersion,
		Seed:                 cfg.Seed,
		Mode:                 cfg.Mode,
		Steps:                cfg.Steps,
		ConstraintViolations: []Violation{},
		PolicyExecutions:     []PolicyExecution{},
	}
}
