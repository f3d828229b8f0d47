package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

// referenceAttempts bounds retries when a generated reference collides
// with an existing row. Collisions are rare, so hitting the bound means
// something is wrong and we fail loudly instead of looping.
const referenceAttempts = 3

type BookingService interface {
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error)
	GetOwnerBookings(ctx context.Context, ownerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
}

type bookingService struct {
	repo    *repository.Repository
	gateway gateway.Client
	events  EventPublisher
	config  *utils.Config
	log     *zap.Logger
	now     func() time.Time
}

func NewBookingService(repo *repository.Repository, gw gateway.Client, events EventPublisher, config *utils.Config, log *zap.Logger) BookingService {
	return &bookingService{
		repo:    repo,
		gateway: gw,
		events:  events,
		config:  config,
		log:     log.With(zap.String("service", "booking")),
		now:     time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	if !json.Valid(req.Payload) || string(req.Payload) == "null" {
		return nil, fmt.Errorf("%w: payload must be a non-empty JSON document", ErrValidation)
	}

	var ownerID *uuid.UUID
	if req.OwnerID != nil {
		parsed, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner ID format %s: %w", *req.OwnerID, err)
		}
		ownerID = &parsed
	}

	kind := entity.BookingKind(req.Kind)
	now := s.now()

	// Fund transfers settle synchronously upstream, so they get no
	// grace at all and become reconcilable the moment they exist.
	grace := s.config.Reconciler.GracePeriod
	if kind == entity.BookingKindFundTransfer {
		grace = s.config.Reconciler.FundGracePeriod
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Kind:        kind,
		Status:      entity.BookingStatusPending,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Payload:     req.Payload,
		OwnerID:     ownerID,
		ExpiresAt:   now.Add(grace),
	}

	// References are generated optimistically and the unique index is
	// the arbiter. Retry a bounded number of times on collision.
	var created bool
	for attempt := 1; attempt <= referenceAttempts; attempt++ {
		booking.Reference = utils.GenerateReference()
		err := s.repo.Booking.Create(ctx, booking)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, repository.ErrDuplicateReference) {
			s.log.Warn("Booking reference collision",
				zap.String("reference", booking.Reference),
				zap.Int("attempt", attempt),
			)
			continue
		}
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("kind", string(kind)),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if !created {
		s.log.Error("Booking reference space exhausted",
			zap.Int("attempts", referenceAttempts),
		)
		return nil, ErrReferenceExhausted
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
		zap.String("kind", string(kind)),
		zap.Int64("amount_cents", booking.AmountCents),
		zap.String("currency", booking.Currency),
		zap.Time("expires_at", booking.ExpiresAt),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrValidation)
	}

	booking, err := s.repo.Booking.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("get booking by reference: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", reference, ErrBookingNotFound)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetOwnerBookings(ctx context.Context, ownerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	ownerUUID, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner ID format %s: %w", ownerID, err)
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByOwnerID(ctx, ownerUUID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get owner bookings",
			zap.Error(err),
			zap.String("owner_id", ownerID),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get owner bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByOwnerID(ctx, ownerUUID)
	if err != nil {
		s.log.Error("Failed to count owner bookings", zap.Error(err))
		return nil, fmt.Errorf("count owner bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = response.BookingToResponse(booking)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}

	if booking.Status != entity.BookingStatusPending {
		return nil, fmt.Errorf("booking status is %s: %w", booking.Status, ErrBookingNotPending)
	}

	// An unresolved payment holds a live checkout; its session is
	// cancelled at the gateway before the rows are closed together.
	payment, err := s.repo.Payment.FindUnresolvedByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get unresolved payment: %w", err)
	}

	if payment != nil {
		if payment.GatewayRef != nil {
			if err := s.gateway.Cancel(ctx, *payment.GatewayRef); err != nil && !errors.Is(err, gateway.ErrSessionNotFound) {
				s.log.Error("Failed to cancel gateway session",
					zap.Error(err),
					zap.String("booking_id", bookingID),
					zap.String("gateway_ref", *payment.GatewayRef),
				)
				return nil, fmt.Errorf("cancel gateway session: %w", err)
			}
		}
		err = s.repo.Payment.ResolveWithBooking(ctx, payment.ID, entity.PaymentStatusCancelled, booking.ID, entity.BookingStatusCancelled)
	} else {
		err = s.repo.Booking.UpdateStatusFrom(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusCancelled)
	}
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("booking %s resolved concurrently: %w", bookingID, ErrBookingNotPending)
		}
		s.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", bookingID),
		)
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}

	if err := booking.TransitionTo(entity.BookingStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}
	if payment != nil {
		payment.Status = entity.PaymentStatusCancelled
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("reference", booking.Reference),
	)
	publishBookingEvent(ctx, s.events, s.log, EventBookingCancelled, booking, payment)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}
