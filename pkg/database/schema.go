package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Idempotent startup schema. Partial unique index on payments keeps
// at most one unresolved payment per booking.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		reference TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		currency CHAR(3) NOT NULL,
		payload JSONB NOT NULL,
		owner_id UUID,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_reference ON bookings (reference)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_expires_at ON bookings (status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_owner_id ON bookings (owner_id) WHERE owner_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings(id),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		credit_cents BIGINT NOT NULL DEFAULT 0,
		currency CHAR(3) NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		gateway_ref TEXT,
		checkout_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_one_pending_per_booking
		ON payments (booking_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_payments_gateway_ref ON payments (gateway_ref) WHERE gateway_ref IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments (status)`,

	`CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id UUID PRIMARY KEY,
		trigger_source TEXT NOT NULL,
		checked INT NOT NULL DEFAULT 0,
		confirmed INT NOT NULL DEFAULT 0,
		expired INT NOT NULL DEFAULT 0,
		cancelled INT NOT NULL DEFAULT 0,
		deferred INT NOT NULL DEFAULT 0,
		skipped INT NOT NULL DEFAULT 0,
		errors INT NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		detail JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema at startup.
func Migrate(ctx context.Context, db PgxIface, log *zap.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	log.Info("Database schema ready", zap.Int("statements", len(schemaStatements)))
	return nil
}
