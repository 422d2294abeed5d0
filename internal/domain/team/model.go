package team

import (
	"fmt"

	"github.com/pitchside/matchday/internal/domain/player"
)

// Team is one club in the save, carrying its full registered squad.
type Team struct {
	ID      string
	Name    string
	Short   string
	Players []player.Player
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	for _, p := range t.Players {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("team %s: %w", t.ID, err)
		}
	}

	return nil
}

// PlayerByID looks a player up in the squad.
func (t Team) PlayerByID(id string) (player.Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return player.Player{}, false
}
