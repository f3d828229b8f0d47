package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ResolutionCandidate pairs an unresolved payment with its pending booking
// for the reconciliation sweep.
type ResolutionCandidate struct {
	Payment *entity.Payment
	Booking *entity.Booking
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindUnresolvedByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindByGatewayRef(ctx context.Context, gatewayRef string) (*entity.Payment, error)

	// Business queries
	AttachGatewaySession(ctx context.Context, id uuid.UUID, gatewayRef, checkoutURL string) (bool, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) error
	CreateSettled(ctx context.Context, payment *entity.Payment) error
	ResolveWithBooking(ctx context.Context, paymentID uuid.UUID, paymentStatus entity.PaymentStatus, bookingID uuid.UUID, bookingStatus entity.BookingStatus) error
	FindAwaitingResolution(ctx context.Context, bookingCreatedBefore time.Time, limit int) ([]*ResolutionCandidate, error)
	CountAwaitingWithinWindow(ctx context.Context, bookingCreatedAfter time.Time) (int64, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, amount_cents, credit_cents, currency, method, status, gateway_ref, checkout_url, created_at, updated_at`

const insertPaymentQuery = `
	INSERT INTO payments (id, booking_id, amount_cents, credit_cents, currency, method, status, gateway_ref, checkout_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.AmountCents,
		&payment.CreditCents,
		&payment.Currency,
		&payment.Method,
		&payment.Status,
		&payment.GatewayRef,
		&payment.CheckoutURL,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func paymentArgs(payment *entity.Payment) []any {
	return []any{
		payment.ID,
		payment.BookingID,
		payment.AmountCents,
		payment.CreditCents,
		payment.Currency,
		payment.Method,
		payment.Status,
		payment.GatewayRef,
		payment.CheckoutURL,
		payment.CreatedAt,
		payment.UpdatedAt,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	_, err := r.db.Exec(ctx, insertPaymentQuery, paymentArgs(payment)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("Concurrent payment creation for booking",
				zap.String("booking_id", payment.BookingID.String()),
			)
			return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), ErrPaymentConflict)
		}

		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
			zap.String("method", string(payment.Method)),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

// FindUnresolvedByBookingID returns the single pending payment for a booking,
// nil when every attempt is already resolved. The partial unique index
// guarantees at most one row matches.
func (r *paymentRepository) FindUnresolvedByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 AND status = 'pending'`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find unresolved payment",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find unresolved payment for booking %s: %w", bookingID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_ref = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, gatewayRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by gateway ref",
			zap.Error(err),
			zap.String("gateway_ref", gatewayRef),
		)
		return nil, fmt.Errorf("find payment by gateway ref %s: %w", gatewayRef, err)
	}

	return payment, nil
}

// AttachGatewaySession records the session created for a payment. Only the
// first writer wins, a second session for the same payment must be discarded
// by the caller. Returns false when another session is already attached.
func (r *paymentRepository) AttachGatewaySession(ctx context.Context, id uuid.UUID, gatewayRef, checkoutURL string) (bool, error) {
	query := `
		UPDATE payments
		SET gateway_ref = $2, checkout_url = $3, updated_at = NOW()
		WHERE id = $1 AND gateway_ref IS NULL AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, gatewayRef, checkoutURL)
	if err != nil {
		r.log.Error("Failed to attach gateway session",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("gateway_ref", gatewayRef),
		)
		return false, fmt.Errorf("attach gateway session to payment %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *paymentRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) error {
	query := `UPDATE payments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return fmt.Errorf("update payment %s status to %s: %w", id.String(), string(to), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update payment %s status %s to %s: %w", id.String(), string(from), string(to), ErrStatusConflict)
	}

	return nil
}

// CreateSettled inserts an already-succeeded payment and confirms its pending
// booking in one transaction. A succeeded payment next to a stale pending
// booking must be impossible to observe.
func (r *paymentRepository) CreateSettled(ctx context.Context, payment *entity.Payment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settle payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertPaymentQuery, paymentArgs(payment)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("settle payment for booking %s: %w", payment.BookingID.String(), ErrPaymentConflict)
		}
		r.log.Error("Failed to insert settled payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("insert settled payment for booking %s: %w", payment.BookingID.String(), err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		payment.BookingID, entity.BookingStatusConfirmed, entity.BookingStatusPending,
	)
	if err != nil {
		r.log.Error("Failed to confirm booking in settle tx",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("confirm booking %s: %w", payment.BookingID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("confirm booking %s: %w", payment.BookingID.String(), ErrStatusConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settle payment tx: %w", err)
	}

	r.log.Info("Payment settled and booking confirmed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
	)
	return nil
}

// ResolveWithBooking applies the terminal outcome to the payment and its
// booking in one transaction. Both updates are conditional on the rows still
// being pending, losing either race rolls back the pair.
func (r *paymentRepository) ResolveWithBooking(ctx context.Context, paymentID uuid.UUID, paymentStatus entity.PaymentStatus, bookingID uuid.UUID, bookingStatus entity.BookingStatus) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin resolve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		paymentID, paymentStatus, entity.PaymentStatusPending,
	)
	if err != nil {
		r.log.Error("Failed to resolve payment",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
			zap.String("status", string(paymentStatus)),
		)
		return fmt.Errorf("resolve payment %s: %w", paymentID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resolve payment %s: %w", paymentID.String(), ErrStatusConflict)
	}

	result, err = tx.Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		bookingID, bookingStatus, entity.BookingStatusPending,
	)
	if err != nil {
		r.log.Error("Failed to resolve booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(bookingStatus)),
		)
		return fmt.Errorf("resolve booking %s: %w", bookingID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resolve booking %s: %w", bookingID.String(), ErrStatusConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit resolve tx: %w", err)
	}

	return nil
}

// FindAwaitingResolution returns unresolved payments whose booking is still
// pending and old enough to judge against the gateway.
func (r *paymentRepository) FindAwaitingResolution(ctx context.Context, bookingCreatedBefore time.Time, limit int) ([]*ResolutionCandidate, error) {
	query := `
		SELECT p.id, p.booking_id, p.amount_cents, p.credit_cents, p.currency, p.method, p.status, p.gateway_ref, p.checkout_url, p.created_at, p.updated_at,
		       b.id, b.reference, b.kind, b.status, b.amount_cents, b.currency, b.payload, b.owner_id, b.expires_at, b.created_at, b.updated_at
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.status = 'pending'
		  AND b.status = 'pending'
		  AND b.created_at <= $1
		ORDER BY p.created_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, bookingCreatedBefore, limit)
	if err != nil {
		r.log.Error("Failed to find payments awaiting resolution", zap.Error(err))
		return nil, fmt.Errorf("find payments awaiting resolution: %w", err)
	}
	defer rows.Close()

	var candidates []*ResolutionCandidate
	for rows.Next() {
		var payment entity.Payment
		var booking entity.Booking
		err := rows.Scan(
			&payment.ID,
			&payment.BookingID,
			&payment.AmountCents,
			&payment.CreditCents,
			&payment.Currency,
			&payment.Method,
			&payment.Status,
			&payment.GatewayRef,
			&payment.CheckoutURL,
			&payment.CreatedAt,
			&payment.UpdatedAt,
			&booking.ID,
			&booking.Reference,
			&booking.Kind,
			&booking.Status,
			&booking.AmountCents,
			&booking.Currency,
			&booking.Payload,
			&booking.OwnerID,
			&booking.ExpiresAt,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan resolution candidate row", zap.Error(err))
			return nil, fmt.Errorf("scan resolution candidate row: %w", err)
		}
		candidates = append(candidates, &ResolutionCandidate{Payment: &payment, Booking: &booking})
	}

	return candidates, nil
}

// CountAwaitingWithinWindow counts unresolved payments whose booking is too
// young to judge. The sweep reports them as skipped.
func (r *paymentRepository) CountAwaitingWithinWindow(ctx context.Context, bookingCreatedAfter time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.status = 'pending'
		  AND b.status = 'pending'
		  AND b.created_at > $1
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, bookingCreatedAfter).Scan(&count); err != nil {
		r.log.Error("Failed to count payments within safety window", zap.Error(err))
		return 0, fmt.Errorf("count payments within safety window: %w", err)
	}

	return count, nil
}
