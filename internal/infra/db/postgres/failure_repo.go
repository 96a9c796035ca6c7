package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

// SaveAll bulk-loads failures with COPY inside one transaction.
func (r *FailureRepository) SaveAll(ctx context.Context, failures []*domain.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("analysis_failures",
		"tenant_id", "run_id", "stage", "entity_key", "brand", "status", "reason", "attempts", "created_at"))
	if err != nil {
		return err
	}
	for _, f := range failures {
		created := f.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			stringOrDash(f.TenantID), string(f.RunID), stringOrDash(f.Stage), stringOrDash(f.Key), f.Brand,
			string(f.Status), stringOrDash(f.Reason), f.Attempts, created,
		); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy failure %s: %w", f.Key, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush failures: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *FailureRepository) ListByRun(ctx context.Context, tenant string, id domain.RunID, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, tenant_id, run_id, stage, entity_key, brand, status, reason, attempts, created_at
FROM analysis_failures
WHERE tenant_id = $1 AND run_id = $2
ORDER BY id ASC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.TenantID, &f.RunID, &f.Stage, &f.Key, &f.Brand, &f.Status, &f.Reason, &f.Attempts, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
