package request

type CreatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
	Method    string `json:"method" validate:"required,oneof=card stored_credit split"`

	// CreditCents is the stored-credit portion, only meaningful for split
	CreditCents int64 `json:"credit_cents,omitempty" validate:"omitempty,gt=0"`
}

type GatewayCallbackRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	EventType string `json:"event_type,omitempty"`
}
