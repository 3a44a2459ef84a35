package court

import "errors"

// Court is a physical playable court belonging to a club. Number gives the
// stable assignment order: the lowest-numbered available court wins.
type Court struct {
	ID     string
	ClubID string
	Number int
	Name   string
}

// Validate checks if the Court has valid data.
// POST: Returns error if validation fails, nil otherwise
func (c *Court) Validate() error {
	if c.ClubID == "" {
		return errors.New("court must belong to a club")
	}
	if c.Number <= 0 {
		return errors.New("court number must be positive")
	}
	return nil
}
