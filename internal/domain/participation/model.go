package participation

import (
	"errors"
	"time"

	"courtside/internal/domain/ledger"
)

// Status is the lifecycle state of a participation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

// Participation is one user's booking on one activity under a chosen option
// size. BlockedAmount is the hold taken when the participation was created;
// it is settled on confirmation or released on cancellation.
type Participation struct {
	ID            string
	ActivityID    string
	UserID        string
	OptionSize    int
	Status        Status
	BlockedAmount int64
	Currency      ledger.Currency
	WasConfirmed  bool // historical: participation reached CONFIRMED at some point
	IsRecycled    bool // cancelled after confirmation; its vacancy sells for points only
	CreatedAt     time.Time
	CancelledAt   time.Time
}

// Validate checks if the Participation has valid data.
// PRE: Participation struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (p *Participation) Validate() error {
	if p.ActivityID == "" {
		return errors.New("participation must reference an activity")
	}
	if p.UserID == "" {
		return errors.New("participation must belong to a user")
	}
	if p.OptionSize <= 0 {
		return errors.New("participation option size must be positive")
	}
	if !p.Status.Valid() {
		return errors.New("participation has unknown status")
	}
	if p.BlockedAmount < 0 {
		return errors.New("participation blocked amount must not be negative")
	}
	if !p.Currency.Valid() {
		return errors.New("participation has unknown currency")
	}
	if p.IsRecycled && p.Status != StatusCancelled {
		return errors.New("recycled participation must be cancelled")
	}
	return nil
}

// IsActive reports whether the participation still occupies a slot
// (anything not cancelled).
func (p *Participation) IsActive() bool {
	return p.Status != StatusCancelled
}
