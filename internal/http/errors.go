package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// writeDomainError maps the domain sentinels onto the wire contract. Unknown
// errors become opaque 500s; their detail stays in the logs.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrTicketsUnavailable):
		writeError(w, http.StatusConflict, "TICKETS_UNAVAILABLE", "not enough tickets remaining")
	case errors.Is(err, domain.ErrReservationExpired):
		writeError(w, http.StatusConflict, "RESERVATION_EXPIRED", "reservation expired or cancelled")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "not allowed")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request")
	case errors.Is(err, domain.ErrEventHasTickets):
		writeError(w, http.StatusConflict, "EVENT_HAS_TICKETS", "event has sold tickets and cannot be deleted")
	case errors.Is(err, domain.ErrSerializationFailure):
		writeError(w, http.StatusConflict, "CONFLICT", "conflicting update, retry the request")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
