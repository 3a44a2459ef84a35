// Package calendar owns resource availability. All interval logic funnels
// through here: stores return raw occupancy rows and the calendar applies the
// half-open overlap check, so no other package re-implements it.
package calendar

import (
	"context"
	"errors"
	"log/slog"

	courtstore "courtside/internal/adapters/storage/court"
	occstore "courtside/internal/adapters/storage/occupancy"
	"courtside/internal/application/keylock"
	"courtside/internal/domain/occupancy"
)

// ErrResourceConflict is returned when a resource is already occupied for an
// overlapping window, or when no court in the club is free.
var ErrResourceConflict = errors.New("resource occupied for overlapping window")

// Calendar checks and books resource windows with per-resource serialization.
type Calendar struct {
	Occupancies occstore.Store
	Courts      courtstore.Store
	Locks       *keylock.Manager

	GenerateID func() string
}

// New creates a Calendar with the given stores and lock manager.
func New(occ occstore.Store, courts courtstore.Store, locks *keylock.Manager, generateID func() string) *Calendar {
	return &Calendar{Occupancies: occ, Courts: courts, Locks: locks, GenerateID: generateID}
}

// IsAvailable reports whether the resource has no occupancy overlapping the
// window. It takes no lock; callers needing check-then-book atomicity use
// Assign or AssignFirstAvailable.
func (c *Calendar) IsAvailable(ctx context.Context, resourceID string, window occupancy.Window) (bool, error) {
	rows, err := c.Occupancies.ListByResource(ctx, resourceID)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.Window.Overlaps(window) {
			return false, nil
		}
	}
	return true, nil
}

// Assign books one resource for the window under the resource lock.
// PRE: window is valid, resourceID and activityID are non-empty
// POST: On nil error an occupancy row exists for the resource and window.
// Returns ErrResourceConflict when the window is already taken.
func (c *Calendar) Assign(ctx context.Context, resourceID string, kind occupancy.Kind, activityID string, window occupancy.Window) error {
	release, err := c.Locks.Acquire(ctx, keylock.ResourceKey(resourceID))
	if err != nil {
		return err
	}
	defer release()

	return c.assignLocked(ctx, resourceID, kind, activityID, window)
}

// assignLocked checks and inserts while the caller holds the resource lock.
func (c *Calendar) assignLocked(ctx context.Context, resourceID string, kind occupancy.Kind, activityID string, window occupancy.Window) error {
	free, err := c.IsAvailable(ctx, resourceID, window)
	if err != nil {
		return err
	}
	if !free {
		return ErrResourceConflict
	}

	row := occupancy.Occupancy{
		ID:         c.GenerateID(),
		ResourceID: resourceID,
		Kind:       kind,
		ActivityID: activityID,
		Window:     window,
	}
	if err := row.Validate(); err != nil {
		return err
	}
	if err := c.Occupancies.Save(ctx, row); err != nil {
		return err
	}

	slog.Info("calendar_assign",
		"resource_id", resourceID,
		"kind", string(kind),
		"activity_id", activityID,
		"start", window.Start,
		"end", window.End)
	return nil
}

// AssignFirstAvailable books the instructor plus the lowest-numbered free
// court of the club for the window, as one logical step.
//
// The instructor lock is held across the whole court scan so the instructor
// check and both inserts cannot interleave with a competing assignment. Court
// locks are taken one at a time in ascending court number, which keeps lock
// acquisition ordered and deadlock free.
//
// POST: On nil error both an instructor and a court occupancy row exist and
// the chosen court id is returned. Returns ErrResourceConflict when the
// instructor is busy or no court is free.
func (c *Calendar) AssignFirstAvailable(ctx context.Context, clubID, instructorID, activityID string, window occupancy.Window) (string, error) {
	releaseInstructor, err := c.Locks.Acquire(ctx, keylock.ResourceKey(instructorID))
	if err != nil {
		return "", err
	}
	defer releaseInstructor()

	free, err := c.IsAvailable(ctx, instructorID, window)
	if err != nil {
		return "", err
	}
	if !free {
		return "", ErrResourceConflict
	}

	courts, err := c.Courts.ListByClub(ctx, clubID)
	if err != nil {
		return "", err
	}

	for _, crt := range courts {
		courtID, err := c.tryCourt(ctx, crt.ID, activityID, window)
		if errors.Is(err, ErrResourceConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := c.assignLocked(ctx, instructorID, occupancy.KindInstructor, activityID, window); err != nil {
			// Roll the court booking back so a failed instructor insert
			// does not leave a half-assigned activity.
			if delErr := c.Occupancies.DeleteByActivity(ctx, activityID); delErr != nil {
				slog.Error("calendar_rollback_failed", "activity_id", activityID, "error", delErr)
			}
			return "", err
		}
		return courtID, nil
	}

	return "", ErrResourceConflict
}

// tryCourt books one court under its lock, returning ErrResourceConflict
// when the window is taken.
func (c *Calendar) tryCourt(ctx context.Context, courtID, activityID string, window occupancy.Window) (string, error) {
	release, err := c.Locks.Acquire(ctx, keylock.ResourceKey(courtID))
	if err != nil {
		return "", err
	}
	defer release()

	if err := c.assignLocked(ctx, courtID, occupancy.KindCourt, activityID, window); err != nil {
		return "", err
	}
	return courtID, nil
}

// Release frees every occupancy held by the activity. Releasing an activity
// that holds nothing is a no-op, so the call is safe to repeat.
func (c *Calendar) Release(ctx context.Context, activityID string) error {
	if err := c.Occupancies.DeleteByActivity(ctx, activityID); err != nil {
		return err
	}
	slog.Info("calendar_release", "activity_id", activityID)
	return nil
}
