package adaptor

import (
	"go.uber.org/zap"

	"travel-booking/internal/usecase"
)

type Handler struct {
	Booking   *BookingHandler
	Payment   *PaymentHandler
	Reconcile *ReconcileHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:   NewBookingHandler(service.Booking, log),
		Payment:   NewPaymentHandler(service.Payment, log),
		Reconcile: NewReconcileHandler(service.Reconcile, log),
	}
}
