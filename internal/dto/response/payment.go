package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID          string               `json:"id"`
	BookingID   string               `json:"booking_id"`
	AmountCents int64                `json:"amount_cents"`
	CreditCents int64                `json:"credit_cents,omitempty"`
	Currency    string               `json:"currency"`
	Method      entity.PaymentMethod `json:"method"`
	Status      entity.PaymentStatus `json:"status"`
	GatewayRef  *string              `json:"gateway_ref,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// CheckoutResponse is what payment creation hands back: the payment itself,
// the booking status after the call, and a redirect URL when the method
// settles through the gateway.
type CheckoutResponse struct {
	Payment       PaymentResponse      `json:"payment"`
	BookingStatus entity.BookingStatus `json:"booking_status"`
	CheckoutURL   *string              `json:"checkout_url,omitempty"`
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          payment.ID.String(),
		BookingID:   payment.BookingID.String(),
		AmountCents: payment.AmountCents,
		CreditCents: payment.CreditCents,
		Currency:    payment.Currency,
		Method:      payment.Method,
		Status:      payment.Status,
		GatewayRef:  payment.GatewayRef,
		CreatedAt:   payment.CreatedAt,
	}
}
