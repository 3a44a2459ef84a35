package web

import (
	"net/http"

	"courtside/internal/adapters/http/middleware"
	"courtside/internal/application/orchestrators"
	"courtside/internal/application/projections"
)

// handleListMyBookings returns every participation of the caller, newest
// first, including cancelled history.
func handleListMyBookings(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryUserBookings(r.Context(), middleware.UserID(r), projections.UserBookingsDeps{
		ParticipationStore: stores.ParticipationStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleSubmitParticipation places a money bid on a group-size option.
func handleSubmitParticipation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionSize int `json:"option_size"`
	}
	if err := strictDecode(r, &req); err != nil || req.OptionSize <= 0 {
		http.Error(w, "option_size must be a positive integer", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteSubmitParticipation(r.Context(), orchestrators.SubmitParticipationInput{
		ActivityID: r.PathValue("id"),
		UserID:     middleware.UserID(r),
		OptionSize: req.OptionSize,
	}, orchestrators.SubmitParticipationDeps{
		Activities:     stores.ActivityStore,
		Participations: stores.ParticipationStore,
		Ledger:         services.Ledger,
		Calendar:       services.Calendar,
		Publisher:      services.Publisher,
		Locks:          services.Locks,
		GenerateID:     generateID,
		Now:            timeNow,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"participation_id": result.ParticipationID,
		"confirmed":        result.Confirmed,
		"court_id":         result.CourtID,
	})
}

// handleLeaveActivity cancels the caller's participation.
func handleLeaveActivity(w http.ResponseWriter, r *http.Request) {
	result, err := orchestrators.ExecuteLeaveActivity(r.Context(), orchestrators.LeaveActivityInput{
		ActivityID: r.PathValue("id"),
		UserID:     middleware.UserID(r),
	}, orchestrators.LeaveActivityDeps{
		Activities:     stores.ActivityStore,
		Participations: stores.ParticipationStore,
		Ledger:         services.Ledger,
		Calendar:       services.Calendar,
		Publisher:      services.Publisher,
		Locks:          services.Locks,
		Now:            timeNow,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"refund_kind": result.RefundKind,
		"amount":      result.Amount,
	})
}

// handleBookWithPoints buys a recycled vacancy with points.
func handleBookWithPoints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionSize int `json:"option_size"`
	}
	if err := strictDecode(r, &req); err != nil || req.OptionSize <= 0 {
		http.Error(w, "option_size must be a positive integer", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteBookWithPoints(r.Context(), orchestrators.BookWithPointsInput{
		ActivityID: r.PathValue("id"),
		UserID:     middleware.UserID(r),
		OptionSize: req.OptionSize,
	}, orchestrators.BookWithPointsDeps{
		Activities:     stores.ActivityStore,
		Participations: stores.ParticipationStore,
		Ledger:         services.Ledger,
		Calendar:       services.Calendar,
		Publisher:      services.Publisher,
		Locks:          services.Locks,
		GenerateID:     generateID,
		Now:            timeNow,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"participation_id": result.ParticipationID,
		"points_spent":     result.PointsSpent,
		"confirmed":        result.Confirmed,
	})
}
