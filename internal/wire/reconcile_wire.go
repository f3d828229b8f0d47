package wire

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"travel-booking/internal/adaptor"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"
)

func wireReconcile(
	r chi.Router,
	reconcileHandler *adaptor.ReconcileHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== INTERNAL ROUTES (require shared token) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalAuth(config.App.InternalToken, log))

		// POST /api/internal/reconcile - Trigger a reconciliation run on demand
		r.Post("/api/internal/reconcile", reconcileHandler.TriggerRun)
	})

	// ==================== PUBLIC ROUTES ====================
	// POST /api/webhooks/gateway - Gateway callback; the session status is
	// re-fetched server side, so the body is never trusted.
	r.Post("/api/webhooks/gateway", reconcileHandler.GatewayCallback)
}
