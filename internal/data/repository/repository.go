package repository

import (
	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Booking           BookingRepository
	Payment           PaymentRepository
	ReconciliationRun ReconciliationRunRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Booking:           NewBookingRepository(db, log),
		Payment:           NewPaymentRepository(db, log),
		ReconciliationRun: NewReconciliationRunRepository(db, log),
	}
}
