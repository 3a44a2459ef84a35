package orchestrators

import (
	"context"
	"log/slog"
	"time"

	activitydomain "courtside/internal/domain/activity"

	"github.com/google/uuid"
)

// CreateActivityInput carries a new bookable activity proposal.
type CreateActivityInput struct {
	ClubID       string
	InstructorID string
	Start        time.Time
	End          time.Time
	Options      []activitydomain.Option
	MaxPlayers   int
}

// CreateActivityDeps holds dependencies for CreateActivity.
type CreateActivityDeps struct {
	Activities ActivityStore

	// PriceFor supplies the club's tariff for option sizes whose price was
	// not given explicitly. Nil means explicit prices are required.
	PriceFor   func(size int) int64
	GenerateID func() string
}

// CreateActivityResult carries the new activity's id.
type CreateActivityResult struct {
	ActivityID string
}

// ExecuteCreateActivity validates and persists a new activity proposal.
// No court or instructor occupancy is booked yet; resources are only taken
// when a group size wins the race.
// PRE: Input has a club, instructor, valid window and at least one option
// POST: On nil error the activity exists with CourtID empty
func ExecuteCreateActivity(ctx context.Context, input CreateActivityInput, deps CreateActivityDeps) (CreateActivityResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}

	options := make([]activitydomain.Option, len(input.Options))
	copy(options, input.Options)
	if deps.PriceFor != nil {
		for i := range options {
			if options[i].Price == 0 {
				options[i].Price = deps.PriceFor(options[i].Size)
			}
		}
	}

	act := activitydomain.Activity{
		ID:           deps.GenerateID(),
		ClubID:       input.ClubID,
		InstructorID: input.InstructorID,
		Start:        input.Start,
		End:          input.End,
		Options:      options,
		MaxPlayers:   input.MaxPlayers,
	}
	if err := act.Validate(); err != nil {
		return CreateActivityResult{}, err
	}
	if err := deps.Activities.Save(ctx, act); err != nil {
		return CreateActivityResult{}, err
	}

	slog.Info("activity_created",
		"activity_id", act.ID,
		"club_id", act.ClubID,
		"instructor_id", act.InstructorID,
		"start", act.Start,
		"options", len(act.Options))
	return CreateActivityResult{ActivityID: act.ID}, nil
}
