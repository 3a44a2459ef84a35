// Package events publishes booking lifecycle notifications to a message
// broker so downstream consumers (notifications, reporting) can react without
// being wired into the booking path.
package events

import (
	"context"
	"time"
)

// Routing keys for published events.
const (
	KeyActivityConfirmed = "activity.confirmed"
	KeyActivityReleased  = "activity.released"
	KeyParticipantJoined = "participant.joined"
	KeyParticipantLeft   = "participant.left"
)

// Event is the envelope published for every booking lifecycle change.
type Event struct {
	ActivityID      string    `json:"activity_id"`
	ParticipationID string    `json:"participation_id,omitempty"`
	UserID          string    `json:"user_id,omitempty"`
	CourtID         string    `json:"court_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher delivers booking events. Publishing is best effort: the booking
// engine treats publish failures as log-worthy, never as reasons to abort a
// committed state change.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}
