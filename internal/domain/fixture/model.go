package fixture

import (
	"fmt"
	"time"
)

// Fixture represents one scheduled match of a round.
type Fixture struct {
	ID         string
	Round      int
	HomeTeamID string
	AwayTeamID string
	KickoffAt  time.Time
	Played     bool
}

func (f Fixture) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("fixture id is required")
	}
	if f.Round <= 0 {
		return fmt.Errorf("fixture round must be greater than zero")
	}
	if f.HomeTeamID == "" || f.AwayTeamID == "" {
		return fmt.Errorf("fixture team ids are required")
	}
	if f.HomeTeamID == f.AwayTeamID {
		return fmt.Errorf("fixture cannot pair a team with itself")
	}

	return nil
}

// Round describes the matchday being played.
type Round struct {
	Number   int
	Season   int
	Fixtures []Fixture
}

// Unplayed returns the fixtures of the round that still need simulating.
func (r Round) Unplayed() []Fixture {
	out := make([]Fixture, 0, len(r.Fixtures))
	for _, f := range r.Fixtures {
		if !f.Played {
			out = append(out, f)
		}
	}
	return out
}
