package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
)

// Routing keys for terminal booking transitions.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingExpired   = "booking.expired"
	EventBookingCancelled = "booking.cancelled"
)

// EventPublisher pushes domain events to downstream consumers.
// A nil publisher disables emission without touching call sites.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload any) error
}

type BookingEvent struct {
	BookingID   string               `json:"booking_id"`
	Reference   string               `json:"reference"`
	Kind        entity.BookingKind   `json:"kind"`
	Status      entity.BookingStatus `json:"status"`
	AmountCents int64                `json:"amount_cents"`
	Currency    string               `json:"currency"`
	PaymentID   *string              `json:"payment_id,omitempty"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// publishBookingEvent emits a terminal-transition event. Emission is
// best effort: the state change is already committed, so a broker
// failure is logged and swallowed rather than rolled back.
func publishBookingEvent(ctx context.Context, events EventPublisher, log *zap.Logger, key string, booking *entity.Booking, payment *entity.Payment) {
	if events == nil {
		return
	}

	event := BookingEvent{
		BookingID:   booking.ID.String(),
		Reference:   booking.Reference,
		Kind:        booking.Kind,
		Status:      booking.Status,
		AmountCents: booking.AmountCents,
		Currency:    booking.Currency,
		OccurredAt:  time.Now(),
	}
	if payment != nil {
		id := payment.ID.String()
		event.PaymentID = &id
	}

	if err := events.PublishJSON(ctx, key, event); err != nil {
		log.Warn("Failed to publish booking event",
			zap.String("routing_key", key),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
	}
}
