package events

import (
	"context"
	"log/slog"
)

// NoopPublisher logs events instead of delivering them. Used in development
// and tests where no broker is running.
type NoopPublisher struct{}

// NewNoopPublisher creates a NoopPublisher.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Publish logs the event but does not deliver it.
func (p *NoopPublisher) Publish(_ context.Context, key string, event Event) error {
	slog.Info("noop_event_publish", "key", key, "activity_id", event.ActivityID, "user_id", event.UserID)
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error { return nil }
