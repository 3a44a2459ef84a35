package participation

import (
	"context"
	"errors"

	domain "courtside/internal/domain/participation"
)

// ErrNotFound is returned when no matching participation exists.
var ErrNotFound = errors.New("participation not found")

// Store persists Participation state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Participation, error)
	Save(ctx context.Context, value domain.Participation) error
	ListByActivity(ctx context.Context, activityID string) ([]domain.Participation, error)
	// GetActiveByActivityAndUser returns the user's non-cancelled
	// participation on the activity, or ErrNotFound.
	GetActiveByActivityAndUser(ctx context.Context, activityID, userID string) (domain.Participation, error)
	// CountConfirmedByUserOnDate counts the user's confirmed participations
	// on activities whose window falls on the given calendar day, excluding
	// the named activity (pass "" to exclude nothing). Backs the
	// one-confirmed-booking-per-day rule.
	CountConfirmedByUserOnDate(ctx context.Context, userID, date, excludeActivityID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Participation, error)
}
