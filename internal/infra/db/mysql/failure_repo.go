package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

// SaveAll writes failures in one transaction.
func (r *FailureRepository) SaveAll(ctx context.Context, failures []*domain.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	const q = `
INSERT INTO analysis_failures
  (tenant_id, run_id, stage, entity_key, brand, status, reason, attempts, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range failures {
		created := f.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			stringOrDash(f.TenantID), string(f.RunID), stringOrDash(f.Stage), stringOrDash(f.Key), f.Brand,
			string(f.Status), stringOrDash(f.Reason), f.Attempts, created,
		); err != nil {
			return fmt.Errorf("insert failure %s: %w", f.Key, err)
		}
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
WHERE tenant_id = ? AND run_id = ?
ORDER BY id ASC
LIMIT ?;`
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
