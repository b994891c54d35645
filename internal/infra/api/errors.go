package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pix-subscription/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeDomainError maps domain sentinels to HTTP answers. Unknown errors are 500
// and their text is not echoed.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, "Invalid plan type", "INVALID_PLAN")
	case errors.Is(err, domain.ErrPlanNotFound):
		writeError(w, http.StatusBadRequest, "No price available for this plan", "PLAN_NOT_FOUND")
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid amount", "INVALID_AMOUNT")
	case errors.Is(err, domain.ErrMissingContactInfo):
		writeError(w, http.StatusBadRequest, "An email address is required to pay with PIX", "MISSING_EMAIL")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Invalid request", "INVALID_REQUEST")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid or expired session", "INVALID_SESSION")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Payment not found", "NOT_FOUND")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests", "RATE_LIMITED")
	case errors.Is(err, domain.ErrOrderCreationFailed):
		writeError(w, http.StatusInternalServerError, "Could not create the PIX charge, please try again", "ORDER_CREATION_FAILED")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", "INTERNAL")
	}
}
