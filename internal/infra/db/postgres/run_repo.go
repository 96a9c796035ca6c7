package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
)

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

const runColumns = `id, tenant_id, kind, media, source, status, triggered_at, duration_ms,
       total, succeeded, no_content, skipped_volume, errored, by_status,
       artifact_url, error_message`

// Save insert/update run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO analysis_runs
(id, tenant_id, kind, media, source, status, triggered_at, duration_ms,
 total, succeeded, no_content, skipped_volume, errored, by_status,
 artifact_url, error_message)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
        $9,$10,$11,$12,$13,$14::jsonb,
        $15,$16)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 duration_ms = EXCLUDED.duration_ms,
 total = EXCLUDED.total,
 succeeded = EXCLUDED.succeeded,
 no_content = EXCLUDED.no_content,
 skipped_volume = EXCLUDED.skipped_volume,
 errored = EXCLUDED.errored,
 by_status = EXCLUDED.by_status,
 artifact_url = EXCLUDED.artifact_url,
 error_message = EXCLUDED.error_message;`

	triggered := run.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now().UTC()
	}
	m := run.Manifest
	_, err := r.db.ExecContext(ctx, q,
		run.ID, stringOrDash(run.TenantID), string(run.Kind), string(run.Media), run.Source,
		stringOrDash(string(run.Status)), triggered, run.DurationMS,
		m.Total, m.Succeeded, m.NoContent, m.SkippedVolume, m.Errored, encodeByStatus(m.ByStatus),
		run.ArtifactURL, sql.NullString{String: run.Error, Valid: run.Error != ""},
	)
	return err
}

func (r *RunRepository) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	q := `SELECT ` + runColumns + ` FROM analysis_runs WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
	return scanRun(r.db.QueryRowContext(ctx, q, tenant, id))
}

func (r *RunRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + runColumns + ` FROM analysis_runs WHERE tenant_id=$1 ORDER BY triggered_at DESC, id DESC LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(s scanner) (*domain.Run, error) {
	var (
		run      domain.Run
		byStatus []byte
		errMsg   sql.NullString
	)
	if err := s.Scan(
		&run.ID, &run.TenantID, &run.Kind, &run.Media, &run.Source, &run.Status, &run.TriggeredAt, &run.DurationMS,
		&run.Manifest.Total, &run.Manifest.Succeeded, &run.Manifest.NoContent, &run.Manifest.SkippedVolume,
		&run.Manifest.Errored, &byStatus,
		&run.ArtifactURL, &errMsg,
	); err != nil {
		return nil, err
	}
	run.Manifest.ByStatus = decodeByStatus(byStatus)
	run.Error = errMsg.String
	return &run, nil
}
