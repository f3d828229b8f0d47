package usecase

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrBookingNotPending  = errors.New("booking is not pending")
	ErrOwnerRequired      = errors.New("stored credit requires an owned booking")
	ErrInvalidSplit       = errors.New("split credit portion must be above zero and below the booking total")
	ErrReferenceExhausted = errors.New("could not generate a unique booking reference")
	ErrRunInProgress      = errors.New("a reconciliation run is already in progress")
)
