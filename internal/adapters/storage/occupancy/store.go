package occupancy

import (
	"context"

	domain "courtside/internal/domain/occupancy"
)

// Store persists ResourceOccupancy rows.
//
// The store does no overlap math: it returns rows per resource and the
// calendar service applies the half-open window check. Interval logic lives
// in exactly one place.
type Store interface {
	Save(ctx context.Context, value domain.Occupancy) error
	ListByResource(ctx context.Context, resourceID string) ([]domain.Occupancy, error)
	ListByActivity(ctx context.Context, activityID string) ([]domain.Occupancy, error)
	// DeleteByActivity removes all occupancy rows for the activity; deleting
	// zero rows is not an error.
	DeleteByActivity(ctx context.Context, activityID string) error
}
