package store

import (
	"context"
	"fmt"
	"strings"
)

// RunQuery is a declarative filter over stored runs. It compiles to
// parameterized SQL: values never get interpolated into the statement,
// and every compiled query carries an ORDER BY with an id tiebreaker so
// listings are deterministic.
type RunQuery struct {
	ModelHash string // exact model_hash; empty matches all models
	Mode      string // "deterministic" | "monte_carlo"; empty matches both
	Status    string // "success" | "constraint_failure"; empty matches both
	Severity  string // only runs with a violation of this severity
	Limit     int    // 0 means no limit
}

var (
	queryModes    = map[string]bool{"deterministic": true, "monte_carlo": true}
	queryStatuses = map[string]bool{"success": true, "constraint_failure": true}
	querySevs     = map[string]bool{"fatal": true, "warning": true}
)

// Validate rejects filter values outside the schema's CHECK enums before
// they reach SQL.
func (q RunQuery) Validate() error {
	if q.Mode != "" && !queryModes[q.Mode] {
		return fmt.Errorf("run query: unknown mode %q", q.Mode)
	}
	if q.Status != "" && !queryStatuses[q.Status] {
		return fmt.Errorf("run query: unknown status %q", q.Status)
	}
	if q.Severity != "" && !querySevs[q.Severity] {
		return fmt.Errorf("run query: unknown severity %q", q.Severity)
	}
	if q.Limit < 0 {
		return fmt.Errorf("run query: negative limit %d", q.Limit)
	}
	return nil
}

// SQL compiles the filter to a parameterized statement.
func (q RunQuery) SQL() (string, []any) {
	var where []string
	var params []any

	if q.ModelHash != "" {
		where = append(where, "r.model_hash = ?")
		params = append(params, q.ModelHash)
	}
	if q.Mode != "" {
		where = append(where, "r.mode = ?")
		params = append(params, q.Mode)
	}
	if q.Status != "" {
		where = append(where, "r.status = ?")
		params = append(params, q.Status)
	}
	if q.Severity != "" {
		where = append(where, "EXISTS (SELECT 1 FROM violations v WHERE v.run_id = r.id AND v.severity = ?)")
		params = append(params, q.Severity)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT r.id, r.run_hash, r.model_hash, r.mode, r.seed, r.num_runs, r.status, r.steps_completed, r.created_at FROM runs r`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY r.created_at DESC, r.id")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return sb.String(), params
}

// QueryRuns executes the filter and returns matching run summaries,
// newest first.
func (s *Store) QueryRuns(ctx context.Context, q RunQuery) ([]RunSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	stmt, params := q.SQL()
	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var seed int64
		if err := rows.Scan(&r.ID, &r.RunHash, &r.ModelHash, &r.Mode, &seed,
			&r.NumRuns, &r.Status, &r.StepsCompleted, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("query runs: %w", err)
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, rows.Err()
}
