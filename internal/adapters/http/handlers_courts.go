package web

import (
	"net/http"

	courtdomain "courtside/internal/domain/court"
)

// handleListCourts returns a club's courts, ascending by number.
func handleListCourts(w http.ResponseWriter, r *http.Request) {
	clubID := r.URL.Query().Get("club")
	if clubID == "" {
		http.Error(w, "club query parameter is required", http.StatusBadRequest)
		return
	}
	courts, err := stores.CourtStore.ListByClub(r.Context(), clubID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courts)
}

// handleCreateCourt registers a court in the club registry. The route
// requires the admin role.
func handleCreateCourt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClubID string `json:"club_id"`
		Number int    `json:"number"`
		Name   string `json:"name"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	crt := courtdomain.Court{
		ID:     generateID(),
		ClubID: req.ClubID,
		Number: req.Number,
		Name:   req.Name,
	}
	if err := crt.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := stores.CourtStore.Save(r.Context(), crt); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, crt)
}
