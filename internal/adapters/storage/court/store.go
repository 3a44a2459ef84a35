package court

import (
	"context"
	"errors"

	domain "courtside/internal/domain/court"
)

// ErrNotFound is returned when no court exists for the given id.
var ErrNotFound = errors.New("court not found")

// Store persists the court registry.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Court, error)
	Save(ctx context.Context, value domain.Court) error
	// ListByClub returns the club's courts ordered by ascending number, the
	// stable iteration order for assignment.
	ListByClub(ctx context.Context, clubID string) ([]domain.Court, error)
}
