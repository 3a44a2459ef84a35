package web

import (
	"net/http"
	"time"

	"courtside/internal/application/orchestrators"
	"courtside/internal/application/projections"
	activitydomain "courtside/internal/domain/activity"
)

// handleCreateActivity registers a new activity proposal. Producer-side
// endpoint; the route requires the admin role.
func handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClubID       string    `json:"club_id"`
		InstructorID string    `json:"instructor_id"`
		Start        time.Time `json:"start"`
		End          time.Time `json:"end"`
		Options      []struct {
			Size  int   `json:"size"`
			Price int64 `json:"price"`
		} `json:"options"`
		MaxPlayers int `json:"max_players"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	options := make([]activitydomain.Option, 0, len(req.Options))
	for _, opt := range req.Options {
		options = append(options, activitydomain.Option{Size: opt.Size, Price: opt.Price})
	}

	result, err := orchestrators.ExecuteCreateActivity(r.Context(), orchestrators.CreateActivityInput{
		ClubID:       req.ClubID,
		InstructorID: req.InstructorID,
		Start:        req.Start,
		End:          req.End,
		Options:      options,
		MaxPlayers:   req.MaxPlayers,
	}, orchestrators.CreateActivityDeps{
		Activities: stores.ActivityStore,
		GenerateID: generateID,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"activity_id": result.ActivityID})
}

// handleGetActivity returns one activity with participants.
func handleGetActivity(w http.ResponseWriter, r *http.Request) {
	view, err := projections.QueryActivity(r.Context(), r.PathValue("id"), projections.ActivityViewDeps{
		ActivityStore:      stores.ActivityStore,
		ParticipationStore: stores.ParticipationStore,
	})
	if err == projections.ErrActivityNotFound {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleClubSchedule returns a club's activities on one calendar day.
func handleClubSchedule(w http.ResponseWriter, r *http.Request) {
	clubID := r.URL.Query().Get("club")
	date := r.URL.Query().Get("date")
	if clubID == "" || date == "" {
		http.Error(w, "club and date query parameters are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	views, err := projections.QueryClubSchedule(r.Context(), clubID, date, projections.ActivityViewDeps{
		ActivityStore:      stores.ActivityStore,
		ParticipationStore: stores.ParticipationStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
