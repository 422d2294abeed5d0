package usecase

import (
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/sourcegraph/conc/iter"
)

// FinalizeResults converts terminal live state into immutable result
// records. Every fixture keeps score, attendance and its persistable events;
// only the player's own fixture additionally gets the reconstructed kickoff
// lineup and the substitution-minute map used for form updates.
func FinalizeResults(engine MatchEngine, matches []*match.LiveMatch, playerIdx int, ownTeamID string) []match.Result {
	results := iter.Map(matches, func(m **match.LiveMatch) match.Result {
		result := engine.ToResult(*m)
		result.Events = filterPersistable(result.Events)
		return result
	})

	if playerIdx >= 0 && playerIdx < len(matches) {
		own := matches[playerIdx]
		if side, ok := own.SideFor(ownTeamID); ok {
			results[playerIdx].LineupPlayerIDs = ReconstructInitialLineup(own, side)
			results[playerIdx].SubstitutionMinutes = SubstitutionMinutes(results[playerIdx].Events)
		}
	}

	return results
}

// ReconstructInitialLineup undoes the substitutions of one side in reverse
// chronological order: replacing each player who came on with the player who
// went off, at the same position, yields the lineup that kicked off.
func ReconstructInitialLineup(m *match.LiveMatch, side match.Side) []string {
	lineup := append([]string(nil), m.State.SideState(side).Lineup...)

	events := m.State.Events
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Type != match.EventSubstitution || e.Side != side {
			continue
		}
		for pos, id := range lineup {
			if id == e.PlayerID {
				lineup[pos] = e.RelatedPlayerID
				break
			}
		}
	}

	return lineup
}

// SubstitutionMinutes maps every substituted player, both the one who came
// on and the one who went off, to the minute of the swap.
func SubstitutionMinutes(events []match.Event) map[string]int {
	out := make(map[string]int)
	for _, e := range events {
		if e.Type != match.EventSubstitution {
			continue
		}
		if e.PlayerID != "" {
			out[e.PlayerID] = e.Minute
		}
		if e.RelatedPlayerID != "" {
			out[e.RelatedPlayerID] = e.Minute
		}
	}
	return out
}

func filterPersistable(events []match.Event) []match.Event {
	out := make([]match.Event, 0, len(events))
	for _, e := range events {
		if e.Persistable() {
			out = append(out, e)
		}
	}
	return out
}
