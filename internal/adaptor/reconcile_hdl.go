package adaptor

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"
)

type ReconcileHandler struct {
	service usecase.ReconcileService
	log     *zap.Logger
}

func NewReconcileHandler(service usecase.ReconcileService, log *zap.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		service: service,
		log:     log.With(zap.String("handler", "reconcile")),
	}
}

// TriggerRun handles POST /api/internal/reconcile (internal token)
func (h *ReconcileHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Run(r.Context(), entity.TriggerManual)
	if err != nil {
		respondServiceError(h.log, w, err, "trigger reconciliation")
		return
	}

	utils.ResponseSuccess(w, "success", run)
}

// GatewayCallback handles POST /api/webhooks/gateway
func (h *ReconcileHandler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req request.GatewayCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	h.log.Info("Gateway callback received",
		zap.String("session_id", req.SessionID),
		zap.String("event_type", req.EventType),
	)

	if err := h.service.ProcessGatewayCallback(r.Context(), req.SessionID); err != nil {
		respondServiceError(h.log, w, err, "process gateway callback")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
