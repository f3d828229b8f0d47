package response

import (
	"encoding/json"
	"time"

	"travel-booking/internal/data/entity"
)

type BookingResponse struct {
	ID          string               `json:"id"`
	Reference   string               `json:"reference"`
	Kind        entity.BookingKind   `json:"kind"`
	Status      entity.BookingStatus `json:"status"`
	AmountCents int64                `json:"amount_cents"`
	Currency    string               `json:"currency"`
	Payload     json.RawMessage      `json:"payload,omitempty"`
	OwnerID     *string              `json:"owner_id,omitempty"`
	ExpiresAt   time.Time            `json:"expires_at"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func BookingToResponse(booking *entity.Booking) BookingResponse {
	var ownerID *string
	if booking.OwnerID != nil {
		id := booking.OwnerID.String()
		ownerID = &id
	}

	return BookingResponse{
		ID:          booking.ID.String(),
		Reference:   booking.Reference,
		Kind:        booking.Kind,
		Status:      booking.Status,
		AmountCents: booking.AmountCents,
		Currency:    booking.Currency,
		Payload:     booking.Payload,
		OwnerID:     ownerID,
		ExpiresAt:   booking.ExpiresAt,
		CreatedAt:   booking.CreatedAt,
		UpdatedAt:   booking.UpdatedAt,
	}
}
