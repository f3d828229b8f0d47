package usecase

import (
	"go.uber.org/zap"

	"travel-booking/internal/credit"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

type Service struct {
	Booking   BookingService
	Payment   PaymentService
	Reconcile ReconcileService
}

func NewService(repo *repository.Repository, gw gateway.Client, ledger credit.Ledger, events EventPublisher, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Booking:   NewBookingService(repo, gw, events, config, log),
		Payment:   NewPaymentService(repo, gw, ledger, events, log),
		Reconcile: NewReconcileService(repo, gw, events, config, log),
	}
}
