// Package keylock provides named mutual-exclusion locks with a bounded
// acquisition wait. Engine steps lock the activity key for the duration of
// one logical step; ledger operations lock the account+currency key. Callers
// that cannot acquire a key within the timeout get ErrBusy and may retry,
// since no partial mutation has happened.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when a lock cannot be acquired within the bounded wait.
var ErrBusy = errors.New("resource busy, retry")

// DefaultWait is the default bounded acquisition wait.
const DefaultWait = 3 * time.Second

type entry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// Manager hands out per-key locks. Keys are created on demand and removed
// once no goroutine holds or waits on them.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

// NewManager creates a Manager with the given bounded wait.
// PRE: wait > 0, or 0 for DefaultWait
// POST: Returns a ready Manager
func NewManager(wait time.Duration) *Manager {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Manager{entries: make(map[string]*entry), wait: wait}
}

// ActivityKey returns the lock key serializing all operations on one activity.
func ActivityKey(activityID string) string { return "activity:" + activityID }

// AccountKey returns the lock key serializing ledger operations for one
// user+currency pair.
func AccountKey(userID, currency string) string { return "account:" + userID + ":" + currency }

// ResourceKey returns the lock key serializing the availability check and
// occupancy insert for one physical resource (court or instructor).
func ResourceKey(resourceID string) string { return "resource:" + resourceID }

// Acquire takes the lock for key, waiting at most the manager's bounded wait.
// PRE: key is non-empty
// POST: On nil error the caller holds the lock and must call the returned
// release function exactly once. Returns ErrBusy on timeout, ctx.Err() on
// context cancellation.
func (m *Manager) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	timer := time.NewTimer(m.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			m.put(key, e)
		}, nil
	case <-timer.C:
		m.put(key, e)
		return nil, ErrBusy
	case <-ctx.Done():
		m.put(key, e)
		return nil, ctx.Err()
	}
}

// put drops one reference and deletes the entry when unused.
func (m *Manager) put(key string, e *entry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}
