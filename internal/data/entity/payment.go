package entity

import (
	"fmt"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodStoredCredit PaymentMethod = "stored_credit"
	PaymentMethodSplit        PaymentMethod = "split"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled},
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

type Payment struct {
	Base
	BookingID   uuid.UUID     `db:"booking_id"`
	AmountCents int64         `db:"amount_cents"`
	CreditCents int64         `db:"credit_cents"`
	Currency    string        `db:"currency"`
	Method      PaymentMethod `db:"method"`
	Status      PaymentStatus `db:"status"`
	GatewayRef  *string       `db:"gateway_ref"`
	CheckoutURL *string       `db:"checkout_url"`
}

// GatewayCents is the portion settled through the gateway session.
func (p *Payment) GatewayCents() int64 {
	return p.AmountCents - p.CreditCents
}

func (p *Payment) TransitionTo(to PaymentStatus) error {
	if !p.Status.CanTransitionTo(to) {
		return fmt.Errorf("payment %s to %s: %w", p.Status, to, ErrInvalidTransition)
	}
	p.Status = to
	return nil
}
