package occupancy

import (
	"errors"
	"time"
)

// Kind distinguishes which physical resource an occupancy row reserves.
type Kind string

const (
	KindCourt      Kind = "court"
	KindInstructor Kind = "instructor"
)

// Window is a half-open [Start, End) time interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect.
// This is the only interval-overlap math in the codebase; every caller that
// needs conflict detection goes through the calendar, which uses this.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Validate checks that the window is well-formed.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return errors.New("window start and end must be set")
	}
	if !w.End.After(w.Start) {
		return errors.New("window end must be after start")
	}
	return nil
}

// Date returns the calendar day of the window start in YYYY-MM-DD (UTC).
func (w Window) Date() string {
	return w.Start.UTC().Format("2006-01-02")
}

// Occupancy reserves one resource for one activity over a window.
// Created when a resource is assigned, deleted when the activity is released.
type Occupancy struct {
	ID         string
	ResourceID string
	Kind       Kind
	ActivityID string
	Window     Window
}

// Validate checks required fields and the window.
// PRE: Occupancy struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (o Occupancy) Validate() error {
	if o.ResourceID == "" {
		return errors.New("occupancy must reference a resource")
	}
	if o.Kind != KindCourt && o.Kind != KindInstructor {
		return errors.New("occupancy has unknown resource kind")
	}
	if o.ActivityID == "" {
		return errors.New("occupancy must reference an activity")
	}
	return o.Window.Validate()
}
