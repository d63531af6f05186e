package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tallylang/tally/internal/engine"
	"github.com/tallylang/tally/internal/ir"
)

// WriteArtifact stores a compiled IR artifact and its provenance rows.
// Keyed by model_hash, so re-compiling an unchanged model is a no-op.
func (s *Store) WriteArtifact(ctx context.Context, art *ir.Artifact) error {
	raw, err := art.Encode()
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (model_hash, assumption_hash, model_name, schema_version, artifact)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model_hash) DO NOTHING
	`, art.ModelHash, art.AssumptionHash, art.ModelName, art.SchemaVersion, string(raw))
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	for _, n := range art.Nodes {
		if n.Kind != ir.KindParam {
			continue
		}
		record, err := json.Marshal(n.Provenance)
		if err != nil {
			return fmt.Errorf("write artifact: provenance for %q: %w", n.ID, err)
		}
		var source, method any
		var confidence any
		if p := n.Provenance; p != nil {
			if p.Source != "" {
				source = p.Source
			}
			if p.Method != "" {
				method = p.Method
			}
			if p.Confidence != nil {
				confidence = *p.Confidence
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO provenance (model_hash, param, source, method, confidence, record)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(model_hash, param) DO NOTHING
		`, art.ModelHash, n.ID, source, method, confidence, string(record))
		if err != nil {
			return fmt.Errorf("write artifact: provenance for %q: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// WriteRun stores a run artifact with denormalized violation and policy
// rows. Idempotent on the artifact's content hash: re-storing the same
// run returns the existing id.
func (s *Store) WriteRun(ctx context.Context, ra *engine.RunArtifact) (string, error) {
	raw, err := ra.Encode()
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	runHash, err := ra.Hash()
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, run_hash, model_hash, assumption_hash, runtime_version,
		 seed, mode, num_runs, steps, status, steps_completed, artifact)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_hash) DO NOTHING
	`, id, runHash, ra.ModelHash, ra.AssumptionHash, ra.RuntimeVersion,
		int64(ra.Seed), string(ra.Mode), ra.NumRuns, ra.Steps,
		string(ra.Status), ra.StepsCompleted, string(raw))
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// Duplicate content: hand back the id it was first stored under.
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM runs WHERE run_hash = ?`, runHash).Scan(&existing)
		if err != nil {
			return "", fmt.Errorf("write run: lookup duplicate: %w", err)
		}
		return existing, tx.Commit()
	}

	for _, v := range ra.ConstraintViolations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO violations (run_id, name, severity, time, replicate, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, v.Name, v.Severity, v.Time, v.Replicate, v.Message)
		if err != nil {
			return "", fmt.Errorf("write run: violation %q: %w", v.Name, err)
		}
	}
	for _, p := range ra.PolicyExecutions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policy_executions (run_id, name, time, replicate)
			VALUES (?, ?, ?, ?)
		`, id, p.Name, p.Time, p.Replicate)
		if err != nil {
			return "", fmt.Errorf("write run: policy %q: %w", p.Name, err)
		}
	}

	return id, tx.Commit()
}
