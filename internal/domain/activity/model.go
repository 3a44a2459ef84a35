package activity

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"courtside/internal/domain/occupancy"
)

// Option is one group-size variant competing to fill the activity, with its
// total price in money minor units.
type Option struct {
	Size  int
	Price int64
}

// Activity is a bookable class or match occurrence. CourtID empty means the
// activity is still a proposal; non-empty means a court has been assigned and
// the winning option is confirmed.
type Activity struct {
	ID                 string
	ClubID             string
	InstructorID       string
	CourtID            string
	Start              time.Time
	End                time.Time
	Options            []Option
	MaxPlayers         int
	HasRecycledVacancy bool
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Option sizes are positive and unique, prices non-negative
func (a *Activity) Validate() error {
	if a.ClubID == "" {
		return errors.New("activity must belong to a club")
	}
	if a.InstructorID == "" {
		return errors.New("activity must have an instructor")
	}
	if err := a.Window().Validate(); err != nil {
		return err
	}
	if len(a.Options) == 0 {
		return errors.New("activity must have at least one option size")
	}
	seen := make(map[int]bool, len(a.Options))
	for _, opt := range a.Options {
		if opt.Size <= 0 {
			return fmt.Errorf("option size must be positive, got %d", opt.Size)
		}
		if opt.Price < 0 {
			return fmt.Errorf("option price must not be negative, got %d", opt.Price)
		}
		if seen[opt.Size] {
			return fmt.Errorf("duplicate option size %d", opt.Size)
		}
		seen[opt.Size] = true
	}
	if a.MaxPlayers <= 0 {
		return errors.New("activity must have a positive max players")
	}
	return nil
}

// IsConfirmed reports whether a court has been assigned.
func (a *Activity) IsConfirmed() bool {
	return a.CourtID != ""
}

// Window returns the activity's time window.
func (a *Activity) Window() occupancy.Window {
	return occupancy.Window{Start: a.Start, End: a.End}
}

// Date returns the calendar day of the activity in YYYY-MM-DD (UTC), the key
// for the one-confirmed-booking-per-day rule.
func (a *Activity) Date() string {
	return a.Window().Date()
}

// OptionPrice returns the total price for the given option size.
func (a *Activity) OptionPrice(size int) (int64, error) {
	for _, opt := range a.Options {
		if opt.Size == size {
			return opt.Price, nil
		}
	}
	return 0, fmt.Errorf("activity has no option of size %d", size)
}

// HasOption reports whether the given size is a configured option.
func (a *Activity) HasOption(size int) bool {
	_, err := a.OptionPrice(size)
	return err == nil
}

// SortedSizes returns the option sizes in ascending order. Race evaluation
// iterates this order: the smallest satisfied group size wins.
func (a *Activity) SortedSizes() []int {
	sizes := make([]int, 0, len(a.Options))
	for _, opt := range a.Options {
		sizes = append(sizes, opt.Size)
	}
	sort.Ints(sizes)
	return sizes
}
