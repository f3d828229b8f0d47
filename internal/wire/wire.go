// internal/wire/wire.go
package wire

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"travel-booking/internal/adaptor"
	"travel-booking/internal/credit"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"
)

// App holds the wired application graph.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring initializes all dependencies.
func Wiring(repo *repository.Repository, events usecase.EventPublisher, config *utils.Config, logger *zap.Logger) *App {
	// External clients
	gatewayClient := gateway.NewHTTPClient(config.Gateway, logger)
	creditLedger := credit.NewHTTPClient(config.Credit, logger)

	// Initialize services and handlers
	service := usecase.NewService(repo, gatewayClient, creditLedger, events, config, logger)
	handler := adaptor.NewHandler(service, logger)

	// Setup router
	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter configures the Chi router.
func setupRouter(
	handler *adaptor.Handler,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	// Apply routes
	wireBooking(r, handler.Booking)
	wirePayment(r, handler.Payment)
	wireReconcile(r, handler.Reconcile, config, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
