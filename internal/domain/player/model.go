package player

import "fmt"

// Position represents the position group a player is registered for.
type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

// Player is one squad member of a club in the save.
type Player struct {
	ID       string
	TeamID   string
	Name     string
	Position Position
	Rating   int
	Fitness  int
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.TeamID == "" {
		return fmt.Errorf("player team id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("invalid player position: %s", p.Position)
	}
	if p.Rating < 0 || p.Rating > 100 {
		return fmt.Errorf("player rating must be between 0 and 100")
	}

	return nil
}

// CountByPosition tallies a squad per position group.
func CountByPosition(players []Player) map[Position]int {
	out := make(map[Position]int, len(AllPositions))
	for _, p := range players {
		out[p.Position]++
	}
	return out
}
