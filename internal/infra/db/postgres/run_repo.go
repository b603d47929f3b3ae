package postgres

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
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status,
  finished_at=EXCLUDED.finished_at,
  source_file=EXCLUDED.source_file,
  total_records=EXCLUDED.total_records,
  ok_records=EXCLUDED.ok_records,
  deviation_records=EXCLUDED.deviation_records,
  unknown_records=EXCLUDED.unknown_records,
  artifact_url=EXCLUDED.artifact_url,
  error=EXCLUDED.error;
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
LIMIT $1;
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
