package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/tallylang/tally/internal/ir"
)

// Replay re-executes a stored run against the IR it claims to come from
// and verifies the reproducibility contract: the fresh artifact must be
// byte-identical to the stored one. A divergence means the model, the
// assumptions or the runtime changed underneath the stored run.
func Replay(ctx context.Context, art *ir.Artifact, prior *RunArtifact, logger *slog.Logger) (*RunArtifact, error) {
	if prior.ModelHash != art.ModelHash {
		return nil, fmt.Errorf("replay: stored run has model_hash %s, artifact has %s",
			prior.ModelHash, art.ModelHash)
	}
	if prior.AssumptionHash != art.AssumptionHash {
		return nil, fmt.Errorf("replay: stored run has assumption_hash %s, artifact has %s",
			prior.AssumptionHash, art.AssumptionHash)
	}
	if prior.RuntimeVersion != RuntimeVersion {
		return nil, fmt.Errorf("replay: stored run used runtime %s, this runtime is %s",
			prior.RuntimeVersion, RuntimeVersion)
	}

	fresh, err := Run(ctx, art, Config{
		Mode:    prior.Mode,
		Seed:    prior.Seed,
		Steps:   prior.Steps,
		NumRuns: prior.NumRuns,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	want, err := prior.Encode()
	if err != nil {
		return nil, err
	}
	got, err := fresh.Encode()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(want, got) {
		return nil, fmt.Errorf("replay diverged: stored and fresh run artifacts differ")
	}
	return fresh, nil
}
