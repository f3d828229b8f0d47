package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned for any status change not in the allowed table.
var ErrInvalidTransition = errors.New("invalid status transition")

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type BookingKind string

const (
	BookingKindHotel        BookingKind = "hotel"
	BookingKindFlight       BookingKind = "flight"
	BookingKindActivity     BookingKind = "activity"
	BookingKindFundTransfer BookingKind = "fund_transfer"
)

// bookingTransitions is the single authority for booking status changes.
// Terminal states have no outgoing edges.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {BookingStatusConfirmed, BookingStatusExpired, BookingStatusCancelled},
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

type Booking struct {
	Base
	Reference   string          `db:"reference"`
	Kind        BookingKind     `db:"kind"`
	Status      BookingStatus   `db:"status"`
	AmountCents int64           `db:"amount_cents"`
	Currency    string          `db:"currency"`
	Payload     json.RawMessage `db:"payload"`
	OwnerID     *uuid.UUID      `db:"owner_id"`
	ExpiresAt   time.Time       `db:"expires_at"`
}

// TransitionTo mutates the in-memory status after checking the table.
// Persistence still re-checks with a conditional update.
func (b *Booking) TransitionTo(to BookingStatus) error {
	if !b.Status.CanTransitionTo(to) {
		return fmt.Errorf("booking %s to %s: %w", b.Status, to, ErrInvalidTransition)
	}
	b.Status = to
	return nil
}
