package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

// ReconciliationRunRepository is write-once on purpose: runs are an audit
// trail and are never updated or deleted.
type ReconciliationRunRepository interface {
	Create(ctx context.Context, run *entity.ReconciliationRun) error
}

type reconciliationRunRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReconciliationRunRepository(db database.PgxIface, log *zap.Logger) ReconciliationRunRepository {
	return &reconciliationRunRepository{
		db:  db,
		log: log.With(zap.String("repository", "reconciliation_run")),
	}
}

func (r *reconciliationRunRepository) Create(ctx context.Context, run *entity.ReconciliationRun) error {
	query := `
		INSERT INTO reconciliation_runs (id, trigger_source, checked, confirmed, expired, cancelled, deferred, skipped, errors, duration_ms, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		run.ID,
		run.TriggerSource,
		run.Counts.Checked,
		run.Counts.Confirmed,
		run.Counts.Expired,
		run.Counts.Cancelled,
		run.Counts.Deferred,
		run.Counts.Skipped,
		run.Counts.Errors,
		run.DurationMs,
		run.Detail,
		run.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to record reconciliation run",
			zap.Error(err),
			zap.String("run_id", run.ID.String()),
			zap.String("trigger", string(run.TriggerSource)),
		)
		return fmt.Errorf("record reconciliation run %s: %w", run.ID.String(), err)
	}

	return nil
}
