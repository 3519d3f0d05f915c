package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps a service error onto an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, domain.ErrInvalidRate):
		return http.StatusBadRequest, "invalid_rate"
	case errors.Is(err, domain.ErrEmptyBatch):
		return http.StatusBadRequest, "empty_batch"
	case errors.Is(err, domain.ErrMissingPaymentToken):
		return http.StatusBadRequest, "missing_payment_token"
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, domain.ErrOwnership):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrRentalNotFound):
		return http.StatusNotFound, "rental_not_found"
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, domain.ErrAvailabilityConflict):
		return http.StatusConflict, "availability_conflict"
	case errors.Is(err, domain.ErrStaleState):
		return http.StatusConflict, "stale_state"
	case errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusUnprocessableEntity, "illegal_transition"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Unhandled error", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Code: "bad_request", Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
