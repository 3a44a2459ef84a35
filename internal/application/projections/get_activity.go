package projections

import (
	"context"
	"errors"
	"time"

	activitystore "courtside/internal/adapters/storage/activity"
	activitydomain "courtside/internal/domain/activity"
	participationdomain "courtside/internal/domain/participation"
)

// ErrActivityNotFound is returned when the requested activity does not exist.
var ErrActivityNotFound = errors.New("activity not found")

// ActivityViewActivityStore defines the activity store interface for the
// activity detail view.
type ActivityViewActivityStore interface {
	GetByID(ctx context.Context, id string) (activitydomain.Activity, error)
	ListByClubAndDate(ctx context.Context, clubID string, date string) ([]activitydomain.Activity, error)
}

// ActivityViewParticipationStore defines the participation store interface
// for the activity detail view.
type ActivityViewParticipationStore interface {
	ListByActivity(ctx context.Context, activityID string) ([]participationdomain.Participation, error)
}

// ActivityViewDeps holds dependencies for the activity projections.
type ActivityViewDeps struct {
	ActivityStore      ActivityViewActivityStore
	ParticipationStore ActivityViewParticipationStore
}

// ParticipantView is one participant line in the activity detail.
type ParticipantView struct {
	ParticipationID string `json:"participation_id"`
	UserID          string `json:"user_id"`
	OptionSize      int    `json:"option_size"`
	Status          string `json:"status"`
}

// OptionView is one bookable group size with its pending headcount.
type OptionView struct {
	Size    int   `json:"size"`
	Price   int64 `json:"price"`
	Pending int   `json:"pending"`
}

// ActivityView is the full activity detail for the API.
type ActivityView struct {
	ID                 string            `json:"id"`
	ClubID             string            `json:"club_id"`
	InstructorID       string            `json:"instructor_id"`
	CourtID            string            `json:"court_id,omitempty"`
	Confirmed          bool              `json:"confirmed"`
	HasRecycledVacancy bool              `json:"has_recycled_vacancy"`
	Start              time.Time         `json:"start"`
	End                time.Time         `json:"end"`
	MaxPlayers         int               `json:"max_players"`
	Options            []OptionView      `json:"options"`
	Participants       []ParticipantView `json:"participants"`
}

// QueryActivity returns the activity detail with its active participants and
// per-option pending counts.
// PRE: activityID is non-empty
// POST: Returns the view, or ErrActivityNotFound
func QueryActivity(ctx context.Context, activityID string, deps ActivityViewDeps) (ActivityView, error) {
	act, err := deps.ActivityStore.GetByID(ctx, activityID)
	if errors.Is(err, activitystore.ErrNotFound) {
		return ActivityView{}, ErrActivityNotFound
	}
	if err != nil {
		return ActivityView{}, err
	}

	parts, err := deps.ParticipationStore.ListByActivity(ctx, activityID)
	if err != nil {
		return ActivityView{}, err
	}

	return buildActivityView(act, parts), nil
}

// QueryClubSchedule returns all of a club's activities on a calendar day,
// each with its participants.
// PRE: clubID is non-empty, date is YYYY-MM-DD
// POST: Returns the day's activities ordered by start time
func QueryClubSchedule(ctx context.Context, clubID, date string, deps ActivityViewDeps) ([]ActivityView, error) {
	activities, err := deps.ActivityStore.ListByClubAndDate(ctx, clubID, date)
	if err != nil {
		return nil, err
	}

	views := make([]ActivityView, 0, len(activities))
	for _, act := range activities {
		parts, err := deps.ParticipationStore.ListByActivity(ctx, act.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, buildActivityView(act, parts))
	}
	return views, nil
}

func buildActivityView(act activitydomain.Activity, parts []participationdomain.Participation) ActivityView {
	pendingBySize := make(map[int]int)
	participants := make([]ParticipantView, 0, len(parts))
	for _, p := range parts {
		if !p.IsActive() {
			continue
		}
		if p.Status == participationdomain.StatusPending {
			pendingBySize[p.OptionSize]++
		}
		participants = append(participants, ParticipantView{
			ParticipationID: p.ID,
			UserID:          p.UserID,
			OptionSize:      p.OptionSize,
			Status:          string(p.Status),
		})
	}

	options := make([]OptionView, 0, len(act.Options))
	for _, size := range act.SortedSizes() {
		price, _ := act.OptionPrice(size)
		options = append(options, OptionView{Size: size, Price: price, Pending: pendingBySize[size]})
	}

	return ActivityView{
		ID:                 act.ID,
		ClubID:             act.ClubID,
		InstructorID:       act.InstructorID,
		CourtID:            act.CourtID,
		Confirmed:          act.IsConfirmed(),
		HasRecycledVacancy: act.HasRecycledVacancy,
		Start:              act.Start,
		End:                act.End,
		MaxPlayers:         act.MaxPlayers,
		Options:            options,
		Participants:       participants,
	}
}
