package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"travel-booking/internal/credit"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"
)

// respondServiceError maps usecase errors onto HTTP responses. The
// sentinels carry the classification, the wrapped message carries the
// detail shown to the caller.
func respondServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	var gatewayErr *gateway.APIError
	var creditErr *credit.APIError

	switch {
	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrBookingNotFound),
		errors.Is(err, usecase.ErrPaymentNotFound):
		log.Warn(operation+" failed, not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrBookingNotPending),
		errors.Is(err, usecase.ErrRunInProgress):
		log.Warn(operation+" failed, state conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrOwnerRequired),
		errors.Is(err, usecase.ErrInvalidSplit),
		errors.Is(err, credit.ErrInsufficientCredit):
		log.Warn(operation+" rejected", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.As(err, &gatewayErr), errors.As(err, &creditErr):
		log.Error(operation+" failed upstream", zap.Error(err))
		utils.ResponseBadGateway(w, err.Error())

	case strings.Contains(err.Error(), "gateway session"),
		strings.Contains(err.Error(), "session status"):
		// Transport-level gateway failures carry no typed error.
		log.Error(operation+" failed reaching gateway", zap.Error(err))
		utils.ResponseBadGateway(w, err.Error())

	case strings.Contains(err.Error(), "invalid"):
		log.Warn("Invalid input for "+operation, zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
