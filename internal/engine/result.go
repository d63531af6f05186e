package engine

import (
	"github.com/tallylang/tally/internal/stats"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusSuccess: the full horizon completed with no fatal violation.
	StatusSuccess Status = "success"
	// StatusConstraintFailure: a fatal constraint stopped the run early.
	// Partial results up to (excluding) the violating step are preserved.
	StatusConstraintFailure Status = "constraint_failure"
)

// Violation records one constraint failure.
type Violation struct {
	Name      string   `json:"name"`
	Severity  string   `json:"severity"`
	Time      int      `json:"time"`
	Message   string   `json:"message"`
	Slack     *float64 `json:"slack,omitempty"`     // only for slack-tracking constraints
	Replicate *int     `json:"replicate,omitempty"` // Monte Carlo attribution
}

// PolicyExecution records one triggered policy.
type PolicyExecution struct {
	Name      string `json:"name"`
	Time      int    `json:"time"`
	Replicate *int   `json:"replicate,omitempty"`
}

// RunResult is one run's (or one replicate's) outcome: the evaluated
// series truncated to the completed steps, plus violation and policy
// records. It is owned by exactly one run; the ensemble aggregates copies.
type RunResult struct {
	Status         Status
	StepsCompleted int
	Series         map[string][]float64
	Violations     []Violation
	Policies       []PolicyExecution

	// FirstFatal is the violation that terminated the run, if any.
	FirstFatal *Violation
}

// BindingCount is one cell of the empirical first-binding-constraint
// distribution: across replicates that hit a fatal violation, how many
// first failed on this (constraint, time) pair.
type BindingCount struct {
	Name  string `json:"name"`
	Time  int    `json:"time"`
	Count int    `json:"count"`
}

// ReplicateFailure records a replicate aborted by a runtime error.
type ReplicateFailure struct {
	Replicate int    `json:"replicate"`
	Step      int    `json:"step"`
	Error     string `json:"error"`
}

// StepSummary is the ensemble summary of one variable at one step, over
// the replicates that completed that step.
type StepSummary struct {
	stats.Summary
	// Completed is how many replicates reached this step; fatal
	// constraints make the tail of a series thinner than the head.
	Completed int `json:"completed"`
}
