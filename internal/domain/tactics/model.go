package tactics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pitchside/matchday/internal/domain/player"
)

// Formation identifies an outfield shape, e.g. "4-4-2" or "3-5-2".
// The goalkeeper slot is implicit.
type Formation string

const LineupSize = 11

// Posture is the team's overall approach for the match.
type Posture string

const (
	PostureDefensive Posture = "defensive"
	PostureBalanced  Posture = "balanced"
	PostureAttacking Posture = "attacking"
)

var AllPostures = map[Posture]struct{}{
	PostureDefensive: {},
	PostureBalanced:  {},
	PostureAttacking: {},
}

// Tactics is the full match setup for one side.
type Tactics struct {
	Formation   Formation
	Posture     Posture
	Lineup      []string
	Substitutes []string
}

func (t Tactics) Validate() error {
	if _, err := t.Formation.Requirement(); err != nil {
		return err
	}
	if _, ok := AllPostures[t.Posture]; !ok {
		return fmt.Errorf("invalid posture: %s", t.Posture)
	}
	if len(t.Lineup) > LineupSize {
		return fmt.Errorf("lineup cannot exceed %d players", LineupSize)
	}
	seen := make(map[string]struct{}, len(t.Lineup)+len(t.Substitutes))
	for _, id := range append(append([]string(nil), t.Lineup...), t.Substitutes...) {
		if id == "" {
			return fmt.Errorf("lineup player id cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate player id in tactics: %s", id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

// Clone deep-copies the mutable slices so callers can publish snapshots.
func (t Tactics) Clone() Tactics {
	out := t
	out.Lineup = append([]string(nil), t.Lineup...)
	out.Substitutes = append([]string(nil), t.Substitutes...)
	return out
}

// Requirement is the per-position headcount a formation demands.
type Requirement struct {
	Goalkeepers int
	Defenders   int
	Midfielders int
	Forwards    int
}

// Requirement parses the formation string into position counts.
func (f Formation) Requirement() (Requirement, error) {
	parts := strings.Split(strings.TrimSpace(string(f)), "-")
	if len(parts) != 3 {
		return Requirement{}, fmt.Errorf("invalid formation %q: expected D-M-F", f)
	}

	counts := make([]int, 0, 3)
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return Requirement{}, fmt.Errorf("invalid formation %q: bad group %q", f, part)
		}
		counts = append(counts, n)
		total += n
	}
	if total != LineupSize-1 {
		return Requirement{}, fmt.Errorf("invalid formation %q: outfield total is %d, want %d", f, total, LineupSize-1)
	}

	return Requirement{
		Goalkeepers: 1,
		Defenders:   counts[0],
		Midfielders: counts[1],
		Forwards:    counts[2],
	}, nil
}

// ByPosition returns the requirement as a position map.
func (r Requirement) ByPosition() map[player.Position]int {
	return map[player.Position]int{
		player.PositionGoalkeeper: r.Goalkeepers,
		player.PositionDefender:   r.Defenders,
		player.PositionMidfielder: r.Midfielders,
		player.PositionForward:    r.Forwards,
	}
}

// Selection is an auto-picked starting eleven plus bench for a formation.
type Selection struct {
	Lineup      []string
	Substitutes []string
}

// Eligibility reports whether a squad can field a formation and, when it
// cannot, how many players are missing per position group.
type Eligibility struct {
	Eligible  bool
	Required  map[player.Position]int
	Available map[player.Position]int
	Missing   map[player.Position]int
}
