package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tallylang/tally/internal/engine"
	"github.com/tallylang/tally/internal/ir"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ReadArtifact loads a stored IR artifact by model hash, re-validating
// it against the published schema on the way out.
func (s *Store) ReadArtifact(ctx context.Context, modelHash string) (*ir.Artifact, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT artifact FROM artifacts WHERE model_hash = ?`, modelHash).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %s: %w", modelHash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ir.ValidateJSON([]byte(raw))
}

// ReadRun loads a stored run artifact by row id.
func (s *Store) ReadRun(ctx context.Context, id string) (*engine.RunArtifact, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT artifact FROM runs WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	return engine.DecodeRunArtifact([]byte(raw))
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID             string
	RunHash        string
	ModelHash      string
	Mode           string
	Seed           uint64
	NumRuns        int
	Status         string
	StepsCompleted int
	CreatedAt      string
}

// ListRuns returns the stored runs for a model, newest first.
func (s *Store) ListRuns(ctx context.Context, modelHash string) ([]RunSummary, error) {
	return s.QueryRuns(ctx, RunQuery{ModelHash: modelHash})
}

// Completeness recomputes a stored model's provenance completeness score
// from the provenance rows: parameters with source, method and
// confidence all present, over total parameters.
func (s *Store) Completeness(ctx context.Context, modelHash string) (float64, error) {
	var total, complete int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN source IS NOT NULL
		                          AND method IS NOT NULL
		                          AND confidence IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM provenance
		WHERE model_hash = ?
	`, modelHash).Scan(&total, &complete)
	if err != nil {
		return 0, fmt.Errorf("completeness: %w", err)
	}
	if total == 0 {
		return 1, nil
	}
	return float64(complete) / float64(total), nil
}

// Violations returns the denormalized violation rows for a run, in
// insertion order.
func (s *Store) Violations(ctx context.Context, runID string) ([]engine.Violation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, severity, time, replicate, message
		FROM violations WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("violations: %w", err)
	}
	defer rows.Close()

	var out []engine.Violation
	for rows.Next() {
		var v engine.Violation
		if err := rows.Scan(&v.Name, &v.Severity, &v.Time, &v.Replicate, &v.Message); err != nil {
			return nil, fmt.Errorf("violations: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
