package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Run statuses.
const (
	RunOK      = "ok"
	RunInvalid = "invalid"
	RunFailed  = "failed"
)

// Run is one recorded run. Report holds the JSON report of a successful
// run and is empty otherwise.
type Run struct {
	Seq       int64  `json:"seq"`
	RunID     string `json:"run_id"`
	ClusterID string `json:"cluster_id"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	Report    []byte `json:"report,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// WriteRun appends r to the run log and returns its seq. Uses
// ON CONFLICT(run_id) DO NOTHING, so a run written twice keeps its first
// record and the returned seq is that record's.
func (s *Store) WriteRun(ctx context.Context, r Run) (int64, error) {
	var report any
	if len(r.Report) > 0 {
		report = string(r.Report)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, cluster_id, version, status, report, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, r.RunID, r.ClusterID, r.Version, r.Status, report, r.Error)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM runs WHERE run_id = ?`, r.RunID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	return seq, nil
}

// ReadRun returns the run recorded under runID.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, run_id, cluster_id, version, status, report, error
		FROM runs WHERE run_id = ?
	`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListRuns returns the runs of one cluster version in seq order. An empty
// clusterID lists every run. Returns an empty slice (not nil) when there
// are none.
func (s *Store) ListRuns(ctx context.Context, clusterID, version string) ([]Run, error) {
	query := `
		SELECT seq, run_id, cluster_id, version, status, report, error
		FROM runs
		ORDER BY seq ASC
	`
	var args []any
	if clusterID != "" {
		query = `
		SELECT seq, run_id, cluster_id, version, status, report, error
		FROM runs
		WHERE cluster_id = ? AND version = ?
		ORDER BY seq ASC
	`
		args = []any{clusterID, version}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r      Run
		report sql.NullString
	)
	if err := row.Scan(&r.Seq, &r.RunID, &r.ClusterID, &r.Version, &r.Status, &report, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if report.Valid {
		r.Report = []byte(report.String)
	}
	return r, nil
}
