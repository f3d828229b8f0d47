package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travel-booking/internal/credit"
	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*response.PaymentResponse, error)
}

type paymentService struct {
	repo    *repository.Repository
	gateway gateway.Client
	ledger  credit.Ledger
	events  EventPublisher
	log     *zap.Logger
	now     func() time.Time
}

func NewPaymentService(repo *repository.Repository, gw gateway.Client, ledger credit.Ledger, events EventPublisher, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:    repo,
		gateway: gw,
		ledger:  ledger,
		events:  events,
		log:     log.With(zap.String("service", "payment")),
		now:     time.Now,
	}
}

// CreatePayment starts (or resumes) settlement of a pending booking.
// The call is idempotent per booking: while an unresolved payment
// exists, repeated calls return its checkout handle instead of opening
// a second attempt.
func (s *paymentService) CreatePayment(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", req.BookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", req.BookingID, ErrBookingNotFound)
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, fmt.Errorf("booking status is %s: %w", booking.Status, ErrBookingNotPending)
	}

	// Idempotency check before anything irreversible happens.
	existing, err := s.repo.Payment.FindUnresolvedByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get unresolved payment: %w", err)
	}
	if existing != nil {
		s.log.Info("Returning existing unresolved payment",
			zap.String("booking_id", req.BookingID),
			zap.String("payment_id", existing.ID.String()),
		)
		if existing.GatewayRef == nil && existing.Method != entity.PaymentMethodStoredCredit {
			// An earlier attempt died between inserting the row and
			// opening its session. Resume by opening one now.
			return s.openSession(ctx, existing, booking)
		}
		return s.checkoutHandle(existing, booking.Status), nil
	}

	switch entity.PaymentMethod(req.Method) {
	case entity.PaymentMethodCard:
		return s.createCardPayment(ctx, booking)
	case entity.PaymentMethodStoredCredit:
		return s.createCreditPayment(ctx, booking)
	case entity.PaymentMethodSplit:
		return s.createSplitPayment(ctx, booking, req.CreditCents)
	default:
		return nil, fmt.Errorf("%w: unknown payment method %s", ErrValidation, req.Method)
	}
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (*response.PaymentResponse, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, fmt.Errorf("invalid payment ID format %s: %w", paymentID, err)
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("payment %s: %w", paymentID, ErrPaymentNotFound)
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

// createCardPayment settles the full amount through the gateway.
func (s *paymentService) createCardPayment(ctx context.Context, booking *entity.Booking) (*response.CheckoutResponse, error) {
	payment := s.newPayment(booking, entity.PaymentMethodCard, 0)
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentConflict) {
			return s.handleOfWinner(ctx, booking)
		}
		s.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, fmt.Errorf("create payment: %w", err)
	}

	return s.openSession(ctx, payment, booking)
}

// createCreditPayment settles the full amount from the member ledger.
// No gateway is involved: the debit either covers the booking or it
// does not, so the payment is born succeeded and the booking confirms
// in the same transaction.
func (s *paymentService) createCreditPayment(ctx context.Context, booking *entity.Booking) (*response.CheckoutResponse, error) {
	if booking.OwnerID == nil {
		return nil, fmt.Errorf("booking %s has no owner: %w", booking.ID, ErrOwnerRequired)
	}

	debit := credit.Transaction{
		OwnerID:     *booking.OwnerID,
		AmountCents: booking.AmountCents,
		Currency:    booking.Currency,
		Reference:   booking.Reference,
	}
	if err := s.ledger.Debit(ctx, debit); err != nil {
		if errors.Is(err, credit.ErrInsufficientCredit) {
			return nil, fmt.Errorf("owner %s: %w", booking.OwnerID, err)
		}
		s.log.Error("Failed to debit stored credit",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.Int64("amount_cents", booking.AmountCents),
		)
		return nil, fmt.Errorf("debit stored credit: %w", err)
	}

	payment := s.newPayment(booking, entity.PaymentMethodStoredCredit, booking.AmountCents)
	payment.Status = entity.PaymentStatusSucceeded

	if err := s.repo.Payment.CreateSettled(ctx, payment); err != nil {
		// The debit already happened, give the money back before
		// reporting failure.
		s.refund(ctx, debit, booking.ID)
		if errors.Is(err, repository.ErrPaymentConflict) {
			return s.handleOfWinner(ctx, booking)
		}
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("booking %s resolved concurrently: %w", booking.ID, ErrBookingNotPending)
		}
		s.log.Error("Failed to settle credit payment",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, fmt.Errorf("settle credit payment: %w", err)
	}

	booking.Status = entity.BookingStatusConfirmed
	s.log.Info("Credit payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("amount_cents", payment.AmountCents),
	)
	publishBookingEvent(ctx, s.events, s.log, EventBookingConfirmed, booking, payment)

	return s.checkoutHandle(payment, booking.Status), nil
}

// createSplitPayment debits part of the amount from stored credit and
// sends the remainder through the gateway.
func (s *paymentService) createSplitPayment(ctx context.Context, booking *entity.Booking, creditCents int64) (*response.CheckoutResponse, error) {
	if booking.OwnerID == nil {
		return nil, fmt.Errorf("booking %s has no owner: %w", booking.ID, ErrOwnerRequired)
	}
	if creditCents <= 0 || creditCents >= booking.AmountCents {
		return nil, fmt.Errorf("credit %d of %d: %w", creditCents, booking.AmountCents, ErrInvalidSplit)
	}

	debit := credit.Transaction{
		OwnerID:     *booking.OwnerID,
		AmountCents: creditCents,
		Currency:    booking.Currency,
		Reference:   booking.Reference,
	}
	if err := s.ledger.Debit(ctx, debit); err != nil {
		if errors.Is(err, credit.ErrInsufficientCredit) {
			return nil, fmt.Errorf("owner %s: %w", booking.OwnerID, err)
		}
		s.log.Error("Failed to debit stored credit",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.Int64("credit_cents", creditCents),
		)
		return nil, fmt.Errorf("debit stored credit: %w", err)
	}

	payment := s.newPayment(booking, entity.PaymentMethodSplit, creditCents)
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		s.refund(ctx, debit, booking.ID)
		if errors.Is(err, repository.ErrPaymentConflict) {
			return s.handleOfWinner(ctx, booking)
		}
		s.log.Error("Failed to create split payment",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, fmt.Errorf("create payment: %w", err)
	}

	handle, err := s.openSession(ctx, payment, booking)
	if err != nil {
		// The row holds the debited credit. Close it first, refund
		// only after winning the close, so a racing resume cannot
		// double spend.
		cErr := s.repo.Payment.UpdateStatusFrom(ctx, payment.ID, entity.PaymentStatusPending, entity.PaymentStatusCancelled)
		switch {
		case cErr == nil:
			s.refund(ctx, debit, booking.ID)
		case errors.Is(cErr, repository.ErrStatusConflict):
			s.log.Warn("Split payment resolved while compensating, keeping debit",
				zap.String("payment_id", payment.ID.String()),
			)
		default:
			s.log.Error("Failed to cancel split payment after session failure",
				zap.Error(cErr),
				zap.String("payment_id", payment.ID.String()),
			)
		}
		return nil, err
	}
	return handle, nil
}

// openSession creates a gateway checkout for the payment's gateway
// share and attaches it to the row. Exactly one session survives a
// race: the loser cancels its own session and returns the winner's.
func (s *paymentService) openSession(ctx context.Context, payment *entity.Payment, booking *entity.Booking) (*response.CheckoutResponse, error) {
	session, err := s.gateway.CreateSession(ctx, gateway.CreateSessionInput{
		AmountCents: payment.GatewayCents(),
		Currency:    payment.Currency,
		Reference:   booking.Reference,
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
			"payment_id": payment.ID.String(),
		},
	})
	if err != nil {
		s.log.Error("Failed to create gateway session",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		return nil, fmt.Errorf("create gateway session: %w", err)
	}

	attached, err := s.repo.Payment.AttachGatewaySession(ctx, payment.ID, session.ID, session.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("attach gateway session: %w", err)
	}
	if !attached {
		// A concurrent request attached its session first. Ours is an
		// orphan nobody will ever pay, close it at the gateway.
		if cErr := s.gateway.Cancel(ctx, session.ID); cErr != nil && !errors.Is(cErr, gateway.ErrSessionNotFound) {
			s.log.Warn("Failed to cancel duplicate gateway session",
				zap.Error(cErr),
				zap.String("session_id", session.ID),
			)
		}
		current, err := s.repo.Payment.FindByID(ctx, payment.ID)
		if err != nil {
			return nil, fmt.Errorf("get payment: %w", err)
		}
		if current == nil {
			return nil, fmt.Errorf("payment %s: %w", payment.ID, ErrPaymentNotFound)
		}
		return s.checkoutHandle(current, booking.Status), nil
	}

	payment.GatewayRef = &session.ID
	payment.CheckoutURL = &session.RedirectURL

	s.log.Info("Gateway session opened",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("gateway_ref", session.ID),
		zap.Int64("gateway_cents", payment.GatewayCents()),
	)
	return s.checkoutHandle(payment, booking.Status), nil
}

// handleOfWinner reloads the unresolved payment that won a create race
// and returns its handle, preserving idempotency under concurrency.
func (s *paymentService) handleOfWinner(ctx context.Context, booking *entity.Booking) (*response.CheckoutResponse, error) {
	winner, err := s.repo.Payment.FindUnresolvedByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("get unresolved payment: %w", err)
	}
	if winner == nil {
		// The winner resolved in the meantime; the booking is no
		// longer payable through this call.
		return nil, fmt.Errorf("booking %s resolved concurrently: %w", booking.ID, ErrBookingNotPending)
	}
	s.log.Info("Payment create raced, returning winner",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", winner.ID.String()),
	)
	return s.checkoutHandle(winner, booking.Status), nil
}

func (s *paymentService) newPayment(booking *entity.Booking, method entity.PaymentMethod, creditCents int64) *entity.Payment {
	now := s.now()
	return &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:   booking.ID,
		AmountCents: booking.AmountCents,
		CreditCents: creditCents,
		Currency:    booking.Currency,
		Method:      method,
		Status:      entity.PaymentStatusPending,
	}
}

func (s *paymentService) checkoutHandle(payment *entity.Payment, bookingStatus entity.BookingStatus) *response.CheckoutResponse {
	return &response.CheckoutResponse{
		Payment:       response.PaymentToResponse(payment),
		BookingStatus: bookingStatus,
		CheckoutURL:   payment.CheckoutURL,
	}
}

// refund compensates a debit whose payment could not proceed. Failure
// here leaves member money held, which only an operator can release,
// so it is logged at error level.
func (s *paymentService) refund(ctx context.Context, debit credit.Transaction, bookingID uuid.UUID) {
	if err := s.ledger.Refund(ctx, debit); err != nil {
		s.log.Error("Failed to refund stored credit, manual release required",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("owner_id", debit.OwnerID.String()),
			zap.Int64("amount_cents", debit.AmountCents),
		)
	}
}
