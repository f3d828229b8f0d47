package repository

import "errors"

var (
	// ErrDuplicateReference means the generated booking reference already
	// exists, callers regenerate and retry.
	ErrDuplicateReference = errors.New("duplicate booking reference")

	// ErrPaymentConflict means another unresolved payment already holds the
	// partial unique slot for the booking.
	ErrPaymentConflict = errors.New("unresolved payment already exists for booking")

	// ErrStatusConflict means a conditional status update matched no row:
	// the record moved out of the expected status concurrently.
	ErrStatusConflict = errors.New("status changed concurrently")
)
