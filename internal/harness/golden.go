package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertArtifactGolden compares the compiled artifact's canonical JSON
// against testdata/golden/{name}.golden. The canonical form is what gets
// hashed, so a golden diff means the model's identity changed.
//
// Regenerate with:
//
//	go test ./internal/harness -update
func AssertArtifactGolden(t *testing.T, name string, o *Outcome) {
	t.Helper()

	if o.Artifact == nil {
		t.Fatalf("fixture %s produced no artifact (failed at %s)", name, o.FailedStage)
	}
	raw, err := o.Artifact.Encode()
	if err != nil {
		t.Fatalf("encode artifact: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, raw)
}

// AssertRunGolden compares the run artifact's canonical JSON against
// testdata/golden/{name}.run.golden. Only meaningful for fixtures whose
// run is fully deterministic given (mode, seed, steps, num_runs).
func AssertRunGolden(t *testing.T, name string, o *Outcome) {
	t.Helper()

	if o.Run == nil {
		t.Fatalf("fixture %s produced no run artifact (failed at %s)", name, o.FailedStage)
	}
	raw, err := o.Run.Encode()
	if err != nil {
		t.Fatalf("encode run artifact: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".run.golden"),
	)
	g.Assert(t, name, raw)
}
