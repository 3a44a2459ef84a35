// Package orchestrators hosts the engine's use cases. Each Execute function
// takes an Input and a Deps struct, holds the activity lock for exactly one
// logical step, and returns a Result plus a sentinel error the HTTP layer
// maps to a status code.
package orchestrators

import (
	"context"
	"errors"
	"time"

	"courtside/internal/adapters/events"
	"courtside/internal/application/ledgerops"
	activitydomain "courtside/internal/domain/activity"
	courtdomain "courtside/internal/domain/court"
	"courtside/internal/domain/ledger"
	"courtside/internal/domain/occupancy"
	participationdomain "courtside/internal/domain/participation"
)

// Sentinel errors returned by the engine use cases.
var (
	ErrActivityNotFound       = errors.New("activity not found")
	ErrActivityClosed         = errors.New("activity is closed to new bookings")
	ErrActivityFull           = errors.New("activity is at max players")
	ErrUnknownOptionSize      = errors.New("activity has no such option size")
	ErrDuplicateParticipation = errors.New("user already participates in activity")
	ErrDailyLimitExceeded     = errors.New("user already has a confirmed booking that day")
	ErrNoActiveParticipation  = errors.New("user has no active participation in activity")
	ErrNoRecycledVacancy      = errors.New("activity has no recycled vacancy for sale")
	ErrInsufficientPoints     = errors.New("insufficient available points")
)

// ActivityStore is the activity persistence the orchestrators need.
type ActivityStore interface {
	GetByID(ctx context.Context, id string) (activitydomain.Activity, error)
	Save(ctx context.Context, value activitydomain.Activity) error
	Delete(ctx context.Context, id string) error
	ListPastEmptyIDs(ctx context.Context, before time.Time) ([]string, error)
}

// ParticipationStore is the participation persistence the orchestrators need.
type ParticipationStore interface {
	GetByID(ctx context.Context, id string) (participationdomain.Participation, error)
	Save(ctx context.Context, value participationdomain.Participation) error
	ListByActivity(ctx context.Context, activityID string) ([]participationdomain.Participation, error)
	GetActiveByActivityAndUser(ctx context.Context, activityID, userID string) (participationdomain.Participation, error)
	CountConfirmedByUserOnDate(ctx context.Context, userID, date, excludeActivityID string) (int, error)
}

// CourtStore is the court registry persistence the seeding orchestrator needs.
type CourtStore interface {
	Save(ctx context.Context, value courtdomain.Court) error
	ListByClub(ctx context.Context, clubID string) ([]courtdomain.Court, error)
}

// LedgerService is the balance ledger surface the orchestrators drive.
type LedgerService interface {
	Block(ctx context.Context, userID string, currency ledger.Currency, amount int64, ref ledgerops.Ref) error
	Unblock(ctx context.Context, userID string, currency ledger.Currency, amount int64, ref ledgerops.Ref) error
	Settle(ctx context.Context, userID string, currency ledger.Currency, amount int64, ref ledgerops.Ref) error
	Credit(ctx context.Context, userID string, currency ledger.Currency, amount int64, ref ledgerops.Ref) error
	GrantCompensation(ctx context.Context, userID string, moneyAmount int64, ref ledgerops.Ref) (int64, error)
}

// CalendarService books and frees court and instructor windows.
type CalendarService interface {
	AssignFirstAvailable(ctx context.Context, clubID, instructorID, activityID string, window occupancy.Window) (string, error)
	Release(ctx context.Context, activityID string) error
}

// EventPublisher emits booking lifecycle events, best effort.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event events.Event) error
}

// Ledger transaction concepts written by the engine.
const (
	ConceptBooking       = "booking"
	ConceptPointsBooking = "points_booking"
	ConceptTopUp         = "topup"
)
