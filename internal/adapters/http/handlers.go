package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"courtside/internal/adapters/http/middleware"
	"courtside/internal/application/calendar"
	"courtside/internal/application/keylock"
	"courtside/internal/application/ledgerops"
	"courtside/internal/application/orchestrators"

	"github.com/google/uuid"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write_json_failed", "error", err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeEngineError maps engine sentinel errors onto HTTP statuses. Business
// rule rejections are 409, missing resources 404, concurrency outcomes 409
// with a retry hint, everything unknown 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrators.ErrActivityNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, orchestrators.ErrUnknownOptionSize),
		errors.Is(err, orchestrators.ErrActivityClosed),
		errors.Is(err, orchestrators.ErrActivityFull),
		errors.Is(err, orchestrators.ErrDuplicateParticipation),
		errors.Is(err, orchestrators.ErrDailyLimitExceeded),
		errors.Is(err, orchestrators.ErrNoActiveParticipation),
		errors.Is(err, orchestrators.ErrNoRecycledVacancy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ledgerops.ErrInsufficientFunds),
		errors.Is(err, orchestrators.ErrInsufficientPoints):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, keylock.ErrBusy),
		errors.Is(err, calendar.ErrResourceConflict):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		internalError(w, err)
	}
}

// handleHealth reports liveness.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDevToken issues a short-lived bearer token for local development.
// Disabled unless main enables it outside production.
func handleDevToken(w http.ResponseWriter, r *http.Request) {
	if !DevTokenEnabled {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := strictDecode(r, &req); err != nil || req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}
	token, err := middleware.CreateAccessToken(jwtSecret, req.UserID, req.Role, 24*time.Hour)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handlePerfSnapshot exposes the in-process latency percentiles.
func handlePerfSnapshot(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-15*time.Minute)))
}
