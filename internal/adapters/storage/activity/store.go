package activity

import (
	"context"
	"errors"
	"time"

	domain "courtside/internal/domain/activity"
)

// ErrNotFound is returned when no activity exists for the given id.
var ErrNotFound = errors.New("activity not found")

// Store persists Activity state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Activity, error)
	Save(ctx context.Context, value domain.Activity) error
	Delete(ctx context.Context, id string) error
	ListByClubAndDate(ctx context.Context, clubID string, date string) ([]domain.Activity, error)
	// ListPastEmptyIDs returns ids of activities that ended before the cutoff
	// and have no participation rows at all (the housekeeping sweep).
	ListPastEmptyIDs(ctx context.Context, before time.Time) ([]string, error)
}
