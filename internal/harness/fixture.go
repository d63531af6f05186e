// Package harness runs conformance fixtures: YAML documents holding a
// model plus expectations about where in the pipeline it succeeds or
// fails. Fixtures drive the pure stage entry points (check → validate →
// generate → run) directly, without the CLI, so any conformant
// implementation can be tested against the same corpus.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tallylang/tally/internal/ast"
)

// Fixture is one conformance case.
type Fixture struct {
	// Name uniquely identifies the fixture; it doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what the fixture exercises.
	Description string `yaml:"description,omitempty"`

	// Model is the input model document.
	Model *ast.Model `yaml:"model"`

	// Run, when present, executes the compiled artifact.
	Run *RunSpec `yaml:"run,omitempty"`

	// Expect states the required outcome.
	Expect Expect `yaml:"expect"`
}

// RunSpec configures fixture execution.
type RunSpec struct {
	Mode    string `yaml:"mode"` // deterministic | monte_carlo
	Seed    uint64 `yaml:"seed"`
	Steps   int    `yaml:"steps"`
	NumRuns int    `yaml:"num_runs,omitempty"`
}

// Expect is the fixture's required outcome.
type Expect struct {
	// Result is "pass" or "error".
	Result string `yaml:"result"`

	// Stage names where an error fixture must fail:
	// typecheck | provenance | ir | run.
	Stage string `yaml:"stage,omitempty"`

	// Code is the required diagnostic code for compile-time errors.
	Code string `yaml:"code,omitempty"`

	// NodeOrder pins the artifact's dependency-sorted node ids.
	NodeOrder []string `yaml:"node_order,omitempty"`

	// Status and StepsCompleted pin run outcomes.
	Status         string `yaml:"status,omitempty"`
	StepsCompleted *int   `yaml:"steps_completed,omitempty"`
}

const (
	StageTypecheck  = "typecheck"
	StageProvenance = "provenance"
	StageIR         = "ir"
	StageRun        = "run"
)

// Load reads one fixture, rejecting unknown fields so expectation typos
// fail loudly instead of silently passing.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture %s: %w", path, err)
	}
	return &f, nil
}

// LoadDir reads every *.yaml fixture under dir, sorted by name.
func LoadDir(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Fixture, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (f *Fixture) validate() error {
	if f.Name == "" {
		return fmt.Errorf("fixture requires a name")
	}
	if f.Model == nil {
		return fmt.Errorf("fixture requires a model")
	}
	switch f.Expect.Result {
	case "pass":
		if f.Expect.Code != "" {
			return fmt.Errorf("a passing fixture cannot expect an error code")
		}
	case "error":
		if f.Expect.Stage == "" {
			return fmt.Errorf("an error fixture must name the failing stage")
		}
	default:
		return fmt.Errorf("expect.result must be pass or error, got %q", f.Expect.Result)
	}
	switch f.Expect.Stage {
	case "", StageTypecheck, StageProvenance, StageIR, StageRun:
	default:
		return fmt.Errorf("unknown stage %q", f.Expect.Stage)
	}
	if f.Run != nil && f.Run.Steps <= 0 {
		return fmt.Errorf("run.steps must be positive")
	}
	return nil
}
