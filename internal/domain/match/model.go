package match

import (
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
)

// Phase is the engine-level lifecycle of one simulated match.
type Phase string

const (
	PhaseFirstHalf  Phase = "first_half"
	PhaseHalfTime   Phase = "half_time"
	PhaseSecondHalf Phase = "second_half"
	PhaseFullTime   Phase = "full_time"
)

// Side addresses one of the two teams of a fixture.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// EventType classifies entries of a match's event sequence.
type EventType string

const (
	EventKickoff       EventType = "kickoff"
	EventGoal          EventType = "goal"
	EventOwnGoal       EventType = "own_goal"
	EventPenaltyScored EventType = "penalty_scored"
	EventPenaltyMissed EventType = "penalty_missed"
	EventYellowCard    EventType = "yellow_card"
	EventRedCard       EventType = "red_card"
	EventSubstitution  EventType = "substitution"
	EventInjury        EventType = "injury"
	EventChance        EventType = "chance"
	EventHalfTime      EventType = "half_time"
	EventFullTime      EventType = "full_time"
)

// persistableEvents is the set of event types worth sending to the backend.
// Phase markers and commentary-only events stay client side.
var persistableEvents = map[EventType]struct{}{
	EventGoal:          {},
	EventOwnGoal:       {},
	EventPenaltyScored: {},
	EventPenaltyMissed: {},
	EventYellowCard:    {},
	EventRedCard:       {},
	EventSubstitution:  {},
	EventInjury:        {},
}

// Event is one entry of the append-only match event sequence.
// For substitutions PlayerID is the player coming on and RelatedPlayerID
// the player going off.
type Event struct {
	Minute          int
	Type            EventType
	Side            Side
	PlayerID        string
	RelatedPlayerID string
	Note            string
}

// Persistable reports whether the event belongs in the outbound result payload.
func (e Event) Persistable() bool {
	_, ok := persistableEvents[e.Type]
	return ok
}

// SideState is the live, mutable per-team slice of a match.
type SideState struct {
	TeamID            string
	Lineup            []string
	Substitutes       []string
	Tactics           tactics.Tactics
	SubstitutionsUsed int
}

// State is the mutable inner state of one live match. It is owned by the
// session controller while the match runs and read-only afterwards.
type State struct {
	Minute     int
	Phase      Phase
	HomeScore  int
	AwayScore  int
	Attendance int
	Home       SideState
	Away       SideState
	Events     []Event
}

// LiveMatch is one concurrently simulated fixture of the round.
type LiveMatch struct {
	FixtureID string
	HomeTeam  team.Team
	AwayTeam  team.Team
	State     State
}

// SideFor maps a team id onto home/away for this match.
func (m *LiveMatch) SideFor(teamID string) (Side, bool) {
	switch teamID {
	case m.State.Home.TeamID:
		return SideHome, true
	case m.State.Away.TeamID:
		return SideAway, true
	default:
		return "", false
	}
}

// SideState returns the mutable per-team state for a side.
func (s *State) SideState(side Side) *SideState {
	if side == SideAway {
		return &s.Away
	}
	return &s.Home
}

// Snapshot produces a copy of the match with every mutable container
// duplicated. Downstream consumers that detect change by identity must see
// fresh slices after each tick, so this is correctness, not an optimization.
func (m *LiveMatch) Snapshot() *LiveMatch {
	out := *m
	out.State.Home = m.State.Home.snapshot()
	out.State.Away = m.State.Away.snapshot()
	out.State.Events = append([]Event(nil), m.State.Events...)
	return &out
}

func (s SideState) snapshot() SideState {
	out := s
	out.Lineup = append([]string(nil), s.Lineup...)
	out.Substitutes = append([]string(nil), s.Substitutes...)
	out.Tactics = s.Tactics.Clone()
	return out
}

// Result is the immutable terminal record of one fixture. LineupPlayerIDs
// and SubstitutionMinutes are only populated for the player's own fixture.
type Result struct {
	FixtureID           string
	HomeTeamID          string
	AwayTeamID          string
	HomeScore           int
	AwayScore           int
	Attendance          int
	Events              []Event
	LineupPlayerIDs     []string
	SubstitutionMinutes map[string]int
}
