package gamebackend

import (
	"strings"

	"github.com/pitchside/matchday/internal/domain/fixture"
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/player"
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
)

// matchdayEnvelope is the response of GET /save/{saveId}/matchday.
type matchdayEnvelope struct {
	Round        roundPayload    `json:"round"`
	Teams        []teamPayload   `json:"teams"`
	PlayerTeamID string          `json:"playerTeamId"`
	Tactics      *tacticsPayload `json:"tactics"`
}

type roundPayload struct {
	Number   int              `json:"number"`
	Season   int              `json:"season"`
	Fixtures []fixturePayload `json:"fixtures"`
}

type fixturePayload struct {
	ID         string `json:"id"`
	Round      int    `json:"round"`
	HomeTeamID string `json:"homeTeamId"`
	AwayTeamID string `json:"awayTeamId"`
	KickoffAt  string `json:"kickoffAt"`
	Played     bool   `json:"played"`
}

type teamPayload struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Short   string          `json:"short"`
	Players []playerPayload `json:"players"`
}

type playerPayload struct {
	ID       string `json:"id"`
	TeamID   string `json:"teamId"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Rating   int    `json:"rating"`
	Fitness  int    `json:"fitness"`
}

type tacticsPayload struct {
	Formation   string   `json:"formation"`
	Posture     string   `json:"posture"`
	Lineup      []string `json:"lineup"`
	Substitutes []string `json:"substitutes"`
}

// completeRequest is the body of POST /match/{saveId}/complete.
type completeRequest struct {
	Results []resultPayload `json:"results"`
}

type completeResponse struct {
	SeasonComplete bool `json:"seasonComplete"`
}

type resultPayload struct {
	FixtureID           string         `json:"fixtureId"`
	HomeTeamID          string         `json:"homeTeamId"`
	AwayTeamID          string         `json:"awayTeamId"`
	HomeScore           int            `json:"homeScore"`
	AwayScore           int            `json:"awayScore"`
	Attendance          int            `json:"attendance"`
	Events              []eventPayload `json:"events"`
	LineupPlayerIDs     []string       `json:"lineupPlayerIds,omitempty"`
	SubstitutionMinutes map[string]int `json:"substitutionMinutes,omitempty"`
}

type eventPayload struct {
	Minute          int    `json:"minute"`
	Type            string `json:"type"`
	Side            string `json:"side,omitempty"`
	PlayerID        string `json:"playerId,omitempty"`
	RelatedPlayerID string `json:"relatedPlayerId,omitempty"`
	Note            string `json:"note,omitempty"`
}

func mapMatchdayEnvelope(envelope matchdayEnvelope) MatchdayBundle {
	bundle := MatchdayBundle{
		PlayerTeamID: strings.TrimSpace(envelope.PlayerTeamID),
		Teams:        make(map[string]team.Team, len(envelope.Teams)),
	}

	bundle.Round = fixture.Round{
		Number:   envelope.Round.Number,
		Season:   envelope.Round.Season,
		Fixtures: make([]fixture.Fixture, 0, len(envelope.Round.Fixtures)),
	}
	for _, item := range envelope.Round.Fixtures {
		row := fixture.Fixture{
			ID:         strings.TrimSpace(item.ID),
			Round:      item.Round,
			HomeTeamID: strings.TrimSpace(item.HomeTeamID),
			AwayTeamID: strings.TrimSpace(item.AwayTeamID),
			Played:     item.Played,
		}
		if parsed := parseBackendDateTime(item.KickoffAt); parsed != nil {
			row.KickoffAt = *parsed
		}
		bundle.Round.Fixtures = append(bundle.Round.Fixtures, row)
	}

	for _, item := range envelope.Teams {
		club := team.Team{
			ID:      strings.TrimSpace(item.ID),
			Name:    strings.TrimSpace(item.Name),
			Short:   strings.TrimSpace(item.Short),
			Players: make([]player.Player, 0, len(item.Players)),
		}
		for _, p := range item.Players {
			club.Players = append(club.Players, player.Player{
				ID:       strings.TrimSpace(p.ID),
				TeamID:   strings.TrimSpace(p.TeamID),
				Name:     strings.TrimSpace(p.Name),
				Position: player.Position(strings.ToUpper(strings.TrimSpace(p.Position))),
				Rating:   p.Rating,
				Fitness:  p.Fitness,
			})
		}
		if club.ID == "" {
			continue
		}
		bundle.Teams[club.ID] = club
	}

	if envelope.Tactics != nil {
		bundle.Tactics = tactics.Tactics{
			Formation:   tactics.Formation(strings.TrimSpace(envelope.Tactics.Formation)),
			Posture:     tactics.Posture(strings.TrimSpace(envelope.Tactics.Posture)),
			Lineup:      append([]string(nil), envelope.Tactics.Lineup...),
			Substitutes: append([]string(nil), envelope.Tactics.Substitutes...),
		}
	}

	return bundle
}

func mapResults(results []match.Result) []resultPayload {
	out := make([]resultPayload, 0, len(results))
	for _, item := range results {
		row := resultPayload{
			FixtureID:           item.FixtureID,
			HomeTeamID:          item.HomeTeamID,
			AwayTeamID:          item.AwayTeamID,
			HomeScore:           item.HomeScore,
			AwayScore:           item.AwayScore,
			Attendance:          item.Attendance,
			Events:              make([]eventPayload, 0, len(item.Events)),
			SubstitutionMinutes: item.SubstitutionMinutes,
		}
		if len(item.LineupPlayerIDs) > 0 {
			row.LineupPlayerIDs = append([]string(nil), item.LineupPlayerIDs...)
		}
		for _, e := range item.Events {
			row.Events = append(row.Events, eventPayload{
				Minute:          e.Minute,
				Type:            string(e.Type),
				Side:            string(e.Side),
				PlayerID:        e.PlayerID,
				RelatedPlayerID: e.RelatedPlayerID,
				Note:            e.Note,
			})
		}
		out = append(out, row)
	}
	return out
}

func mapTactics(t tactics.Tactics) tacticsPayload {
	return tacticsPayload{
		Formation:   string(t.Formation),
		Posture:     string(t.Posture),
		Lineup:      append([]string(nil), t.Lineup...),
		Substitutes: append([]string(nil), t.Substitutes...),
	}
}
