package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/auditops/envsegd/internal/domain/analysis"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts or updates one audit run record
func (r *RunRepository) Save(ctx context.Context, run *domain.AuditRun) error {
	const q = `
INSERT INTO audit_runs
  (id, process, status, started_at, finished_at, source_file, total_records, ok_records, deviation_records, unknown_records, artifact_url, error)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  status=VALUES(status), finished_at=VALUES(finished_at), source_file=VALUES(source_file),
  total_records=VALUES(total_records), ok_records=VALUES(ok_records),
  deviation_records=VALUES(deviation_records), unknown_records=VALUES(unknown_records),
  artifact_url=VALUES(artifact_url), error=VALUES(error);
`
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, run.Process, run.Status, started, run.FinishedAt,
		run.SourceFile, run.Total, run.OK, run.Deviation, run.Unknown,
		run.ArtifactURL, run.Error,
	)
	return err
}

// Latest returns the most recent runs, newest first
func (r *RunRepository) Latest(ctx context.Context, limit int) ([]*domain.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, process, status, started_at, finished_at, source_file, total_records, ok_records, deviation_records, unknown_records, artifact_url, error
FROM audit_runs
ORDER BY started_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditRun
	for rows.Next() {
		var run domain.AuditRun
		if err := rows.Scan(&run.ID, &run.Process, &run.Status, &run.StartedAt, &run.FinishedAt,
			&run.SourceFile, &run.Total, &run.OK, &run.Deviation, &run.Unknown,
			&run.ArtifactURL, &run.Error); err != nil {
			return nil, err
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
