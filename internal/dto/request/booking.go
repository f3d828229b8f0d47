package request

import "encoding/json"

type CreateBookingRequest struct {
	Kind        string          `json:"kind" validate:"required,oneof=hotel flight activity fund_transfer"`
	AmountCents int64           `json:"amount_cents" validate:"required,gt=0"`
	Currency    string          `json:"currency" validate:"required,len=3,iso4217"`
	Payload     json.RawMessage `json:"payload" validate:"required"`
	OwnerID     *string         `json:"owner_id,omitempty" validate:"omitempty,uuid4"`
}
