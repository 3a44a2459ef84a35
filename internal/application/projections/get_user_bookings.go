package projections

import (
	"context"
	"time"

	"courtside/internal/domain/participation"
)

// UserBookingsStore defines the participation store interface for the
// per-user bookings view.
type UserBookingsStore interface {
	ListByUser(ctx context.Context, userID string) ([]participation.Participation, error)
}

// UserBookingsDeps holds dependencies for the bookings projection.
type UserBookingsDeps struct {
	ParticipationStore UserBookingsStore
}

// BookingView is one participation from the caller's point of view.
type BookingView struct {
	ParticipationID string     `json:"participation_id"`
	ActivityID      string     `json:"activity_id"`
	OptionSize      int        `json:"option_size"`
	BlockedAmount   int64      `json:"blocked_amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	WasConfirmed    bool       `json:"was_confirmed"`
	CreatedAt       time.Time  `json:"created_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

// QueryUserBookings returns all of the user's participations, newest first.
// PRE: userID is non-empty
// POST: Returns every participation including cancelled ones
func QueryUserBookings(ctx context.Context, userID string, deps UserBookingsDeps) ([]BookingView, error) {
	parts, err := deps.ParticipationStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]BookingView, 0, len(parts))
	for _, p := range parts {
		v := BookingView{
			ParticipationID: p.ID,
			ActivityID:      p.ActivityID,
			OptionSize:      p.OptionSize,
			BlockedAmount:   p.BlockedAmount,
			Currency:        string(p.Currency),
			Status:          string(p.Status),
			WasConfirmed:    p.WasConfirmed,
			CreatedAt:       p.CreatedAt,
		}
		if !p.CancelledAt.IsZero() {
			t := p.CancelledAt
			v.CancelledAt = &t
		}
		views = append(views, v)
	}
	return views, nil
}
