package usecase

import (
	"context"

	"github.com/pitchside/matchday/internal/domain/fixture"
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/player"
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
)

// CreateEngineSessionInput carries everything the engine needs to build the
// live state for one round: every unplayed fixture, the clubs involved, and
// the tactics of the player's club.
type CreateEngineSessionInput struct {
	Fixtures     []fixture.Fixture
	Teams        map[string]team.Team
	PlayerTeamID string
	Tactics      tactics.Tactics
	Round        fixture.Round
}

// EngineSession is the engine's view of one round in play.
type EngineSession struct {
	Matches []*match.LiveMatch
	// PlayerIndex addresses the player's own fixture inside Matches,
	// -1 when the player has no fixture this round.
	PlayerIndex int
}

// MatchEngine is the boundary to the external simulation library. The
// session controller drives it but never reimplements it: event generation,
// ratings and attendance live behind this interface.
type MatchEngine interface {
	CreateSession(ctx context.Context, input CreateEngineSessionInput) (EngineSession, error)

	// AdvanceAllByOneMinute advances every live match by exactly one
	// simulated minute, mutating the states in place.
	AdvanceAllByOneMinute(matches []*match.LiveMatch)

	// ToResult converts a finished or in-progress match into its terminal
	// result record (without lineup reconstruction, see the finalizer).
	ToResult(m *match.LiveMatch) match.Result

	// ResumeSecondHalf flips half_time to second_half in place. Calling it
	// on a match already past half-time is a no-op.
	ResumeSecondHalf(state *match.State)

	// ApplySubstitution swaps players on one side in place. Invalid ids or
	// an exhausted substitution budget make it a silent no-op.
	ApplySubstitution(state *match.State, side match.Side, outID, inID string)

	SelectBestLineup(t team.Team, formation tactics.Formation) (tactics.Selection, error)
	CheckFormationEligibility(formation tactics.Formation, players []player.Player) tactics.Eligibility
}
