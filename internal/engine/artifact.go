package engine

import (
	"encoding/json"
	"fmt"

	"github.com/tallylang/tally/internal/ir"
)

// RunArtifact is the runtime's durable output. Encoding is canonical
// JSON, so identical inputs produce byte-identical files; that is the
// reproducibility contract, checked by tests and usable for run dedup.
type RunArtifact struct {
	ModelHash      string `json:"model_hash"`
	AssumptionHash string `json:"assumption_hash"`
	RuntimeVersion string `json:"runtime_version"`
	Seed           uint64 `json:"seed"`
	Mode           Mode   `json:"mode"`
	NumRuns        int    `json:"num_runs"`
	Steps          int    `json:"steps"` // requested horizon
	Status         Status `json:"status"`
	StepsCompleted int    `json:"steps_completed"`

	// Series carries per-variable time series (deterministic mode);
	// Percentiles carries per-variable, per-step ensemble summaries
	// (Monte Carlo mode). Exactly one is populated.
	Series      map[string][]float64     `json:"series,omitempty"`
	Percentiles map[string][]StepSummary `json:"percentiles,omitempty"`

	ConstraintViolations []Violation        `json:"constraint_violations"`
	PolicyExecutions     []PolicyExecution  `json:"policy_executions"`
	FirstBinding         []BindingCount     `json:"first_binding,omitempty"`
	ReplicateFailures    []ReplicateFailure `json:"replicate_failures,omitempty"`
}

// Encode serializes the artifact canonically.
func (ra *RunArtifact) Encode() ([]byte, error) {
	return ir.CanonicalJSON(ra)
}

// Hash is the content hash of the encoded artifact, usable as a run id.
func (ra *RunArtifact) Hash() (string, error) {
	data, err := ra.Encode()
	if err != nil {
		return "", err
	}
	return ir.HashWithDomain(ir.DomainRun, data), nil
}

// DecodeRunArtifact parses an encoded run artifact.
func DecodeRunArtifact(raw []byte) (*RunArtifact, error) {
	var ra RunArtifact
	if err := json.Unmarshal(raw, &ra); err != nil {
		return nil, fmt.Errorf("run artifact: %w", err)
	}
	return &ra, nil
}
