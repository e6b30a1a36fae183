package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// statusFor maps the engine's error kinds to HTTP statuses.
func statusFor(err error) int {
	switch domain.Kind(err) {
	case domain.ErrInvalidArgument:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	case domain.ErrInvalidTransition:
		return http.StatusUnprocessableEntity
	case domain.ErrExternalFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "requestID", RequestIDFromContext(r.Context()), "error", err)
		message = "internal error"
	}
	var denied *domain.BookingAccessDeniedError
	if errors.As(err, &denied) {
		message = "booking not found"
	}
	writeJSON(w, status, errorResponse{Error: message})
}
