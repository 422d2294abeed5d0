// Package simengine is a self-contained, deterministic match simulation used
// when no external engine build is wired in. Given the same seed and inputs it
// replays the same round event for event.
package simengine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"

	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/player"
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
	"github.com/pitchside/matchday/internal/usecase"
)

const (
	halfTimeMinute     = 45
	fullTimeMinute     = 90
	substitutionBudget = 3
	defaultFormation   = tactics.Formation("4-4-2")

	baseChancePerMinute = 0.085
	goalConversion      = 0.30
	yellowCardChance    = 0.018
	redCardChance       = 0.0015
	injuryChance        = 0.004
)

// positionOrder fixes the GK-to-FWD slot order of generated lineups.
var positionOrder = []player.Position{
	player.PositionGoalkeeper,
	player.PositionDefender,
	player.PositionMidfielder,
	player.PositionForward,
}

type Config struct {
	Seed int64
}

// Engine implements usecase.MatchEngine with a minute-by-minute probabilistic
// model. Each fixture gets its own random stream derived from the base seed
// and the fixture id, so fixtures are independent of each other and of
// iteration order.
type Engine struct {
	seed int64

	mu   sync.Mutex
	rngs map[string]*rand.Rand
}

func New(cfg Config) *Engine {
	return &Engine{
		seed: cfg.Seed,
		rngs: make(map[string]*rand.Rand),
	}
}

func (e *Engine) CreateSession(_ context.Context, input usecase.CreateEngineSessionInput) (usecase.EngineSession, error) {
	session := usecase.EngineSession{PlayerIndex: -1}

	for i, f := range input.Fixtures {
		home, ok := input.Teams[f.HomeTeamID]
		if !ok {
			return usecase.EngineSession{}, fmt.Errorf("no squad for team %s", f.HomeTeamID)
		}
		away, ok := input.Teams[f.AwayTeamID]
		if !ok {
			return usecase.EngineSession{}, fmt.Errorf("no squad for team %s", f.AwayTeamID)
		}

		rng := e.rngFor(f.ID)

		homeSide, err := e.buildSide(home, defaultFormation)
		if err != nil {
			return usecase.EngineSession{}, fmt.Errorf("build home side for %s: %w", f.ID, err)
		}
		awaySide, err := e.buildSide(away, defaultFormation)
		if err != nil {
			return usecase.EngineSession{}, fmt.Errorf("build away side for %s: %w", f.ID, err)
		}

		m := &match.LiveMatch{
			FixtureID: f.ID,
			HomeTeam:  home,
			AwayTeam:  away,
			State: match.State{
				Phase:      match.PhaseFirstHalf,
				Attendance: 12_000 + rng.Intn(28_000),
				Home:       homeSide,
				Away:       awaySide,
				Events:     []match.Event{{Minute: 0, Type: match.EventKickoff}},
			},
		}

		if f.HomeTeamID == input.PlayerTeamID || f.AwayTeamID == input.PlayerTeamID {
			session.PlayerIndex = i
			side := m.State.SideState(match.SideHome)
			if f.AwayTeamID == input.PlayerTeamID {
				side = m.State.SideState(match.SideAway)
			}
			e.applyPlayerTactics(side, input.Tactics)
		}

		session.Matches = append(session.Matches, m)
	}

	return session, nil
}

func (e *Engine) applyPlayerTactics(side *match.SideState, t tactics.Tactics) {
	side.Tactics = t.Clone()
	if len(t.Lineup) == tactics.LineupSize {
		side.Lineup = append([]string(nil), t.Lineup...)
		side.Substitutes = append([]string(nil), t.Substitutes...)
	}
}

func (e *Engine) buildSide(club team.Team, formation tactics.Formation) (match.SideState, error) {
	selection, err := e.SelectBestLineup(club, formation)
	if err != nil {
		return match.SideState{}, err
	}
	return match.SideState{
		TeamID:      club.ID,
		Lineup:      selection.Lineup,
		Substitutes: selection.Substitutes,
		Tactics:     tactics.Tactics{Formation: formation, Posture: tactics.PostureBalanced},
	}, nil
}

func (e *Engine) AdvanceAllByOneMinute(matches []*match.LiveMatch) {
	for _, m := range matches {
		e.advanceOne(m)
	}
}

func (e *Engine) advanceOne(m *match.LiveMatch) {
	st := &m.State
	if st.Phase != match.PhaseFirstHalf && st.Phase != match.PhaseSecondHalf {
		return
	}

	st.Minute++
	rng := e.rngFor(m.FixtureID)

	homeStrength := sideStrength(m.HomeTeam, st.Home)
	awayStrength := sideStrength(m.AwayTeam, st.Away)
	e.simulateMinute(rng, st, match.SideHome, homeStrength, awayStrength)
	e.simulateMinute(rng, st, match.SideAway, awayStrength, homeStrength)

	if st.Minute == halfTimeMinute && st.Phase == match.PhaseFirstHalf {
		st.Phase = match.PhaseHalfTime
		st.Events = append(st.Events, match.Event{Minute: st.Minute, Type: match.EventHalfTime})
	}
	if st.Minute >= fullTimeMinute && st.Phase == match.PhaseSecondHalf {
		st.Phase = match.PhaseFullTime
		st.Events = append(st.Events, match.Event{Minute: st.Minute, Type: match.EventFullTime})
	}
}

func (e *Engine) simulateMinute(rng *rand.Rand, st *match.State, side match.Side, attack, defense float64) {
	sideState := st.SideState(side)
	attack *= postureAttackFactor(sideState.Tactics.Posture)

	if rng.Float64() < baseChancePerMinute*attack/defense {
		scorer := randomOutfielder(rng, sideState.Lineup)
		if rng.Float64() < goalConversion {
			st.Events = append(st.Events, match.Event{
				Minute:   st.Minute,
				Type:     match.EventGoal,
				Side:     side,
				PlayerID: scorer,
			})
			if side == match.SideHome {
				st.HomeScore++
			} else {
				st.AwayScore++
			}
		} else {
			st.Events = append(st.Events, match.Event{
				Minute:   st.Minute,
				Type:     match.EventChance,
				Side:     side,
				PlayerID: scorer,
			})
		}
	}

	if rng.Float64() < yellowCardChance {
		st.Events = append(st.Events, match.Event{
			Minute:   st.Minute,
			Type:     match.EventYellowCard,
			Side:     side,
			PlayerID: randomOutfielder(rng, sideState.Lineup),
		})
	}
	if rng.Float64() < redCardChance {
		st.Events = append(st.Events, match.Event{
			Minute:   st.Minute,
			Type:     match.EventRedCard,
			Side:     side,
			PlayerID: randomOutfielder(rng, sideState.Lineup),
		})
	}
	if rng.Float64() < injuryChance {
		st.Events = append(st.Events, match.Event{
			Minute:   st.Minute,
			Type:     match.EventInjury,
			Side:     side,
			PlayerID: randomOutfielder(rng, sideState.Lineup),
		})
	}
}

func (e *Engine) ToResult(m *match.LiveMatch) match.Result {
	return match.Result{
		FixtureID:  m.FixtureID,
		HomeTeamID: m.State.Home.TeamID,
		AwayTeamID: m.State.Away.TeamID,
		HomeScore:  m.State.HomeScore,
		AwayScore:  m.State.AwayScore,
		Attendance: m.State.Attendance,
		Events:     append([]match.Event(nil), m.State.Events...),
	}
}

func (e *Engine) ResumeSecondHalf(state *match.State) {
	if state.Phase == match.PhaseHalfTime {
		state.Phase = match.PhaseSecondHalf
	}
}

func (e *Engine) ApplySubstitution(state *match.State, side match.Side, outID, inID string) {
	st := state.SideState(side)
	if st.SubstitutionsUsed >= substitutionBudget {
		return
	}

	outIdx := indexOf(st.Lineup, outID)
	inIdx := indexOf(st.Substitutes, inID)
	if outIdx < 0 || inIdx < 0 {
		return
	}

	st.Lineup[outIdx] = inID
	st.Substitutes = append(st.Substitutes[:inIdx], st.Substitutes[inIdx+1:]...)
	st.SubstitutionsUsed++
	state.Events = append(state.Events, match.Event{
		Minute:          state.Minute,
		Type:            match.EventSubstitution,
		Side:            side,
		PlayerID:        inID,
		RelatedPlayerID: outID,
	})
}

// SelectBestLineup picks the highest-scoring players per position group,
// weighting rating by current fitness.
func (e *Engine) SelectBestLineup(club team.Team, formation tactics.Formation) (tactics.Selection, error) {
	req, err := formation.Requirement()
	if err != nil {
		return tactics.Selection{}, err
	}

	grouped := make(map[player.Position][]player.Player)
	for _, p := range club.Players {
		grouped[p.Position] = append(grouped[p.Position], p)
	}
	for pos := range grouped {
		group := grouped[pos]
		sort.SliceStable(group, func(i, j int) bool {
			return effectiveRating(group[i]) > effectiveRating(group[j])
		})
	}

	lineup := make([]string, 0, tactics.LineupSize)
	picked := make(map[string]struct{}, tactics.LineupSize)
	required := req.ByPosition()
	for _, pos := range positionOrder {
		want := required[pos]
		if len(grouped[pos]) < want {
			return tactics.Selection{}, fmt.Errorf("squad %s cannot field %s: need %d %s, have %d",
				club.ID, formation, want, pos, len(grouped[pos]))
		}
		for _, p := range grouped[pos][:want] {
			lineup = append(lineup, p.ID)
			picked[p.ID] = struct{}{}
		}
	}

	bench := make([]string, 0, len(club.Players)-len(lineup))
	for _, p := range club.Players {
		if _, ok := picked[p.ID]; !ok {
			bench = append(bench, p.ID)
		}
	}

	return tactics.Selection{Lineup: lineup, Substitutes: bench}, nil
}

func (e *Engine) CheckFormationEligibility(formation tactics.Formation, players []player.Player) tactics.Eligibility {
	req, err := formation.Requirement()
	if err != nil {
		return tactics.Eligibility{Eligible: false}
	}

	required := req.ByPosition()
	available := player.CountByPosition(players)
	missing := make(map[player.Position]int)
	eligible := true
	for pos, want := range required {
		if available[pos] < want {
			missing[pos] = want - available[pos]
			eligible = false
		}
	}

	return tactics.Eligibility{
		Eligible:  eligible,
		Required:  required,
		Available: available,
		Missing:   missing,
	}
}

func (e *Engine) rngFor(fixtureID string) *rand.Rand {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rng, ok := e.rngs[fixtureID]; ok {
		return rng
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(fixtureID))
	rng := rand.New(rand.NewSource(e.seed ^ int64(h.Sum64())))
	e.rngs[fixtureID] = rng
	return rng
}

func sideStrength(club team.Team, side match.SideState) float64 {
	if len(side.Lineup) == 0 {
		return 1
	}
	byID := make(map[string]player.Player, len(club.Players))
	for _, p := range club.Players {
		byID[p.ID] = p
	}

	total := 0.0
	counted := 0
	for _, id := range side.Lineup {
		p, ok := byID[id]
		if !ok {
			continue
		}
		total += effectiveRating(p)
		counted++
	}
	if counted == 0 {
		return 1
	}
	// Normalized around a league-average rating of 70.
	return (total / float64(counted)) / 70.0
}

func effectiveRating(p player.Player) float64 {
	fitness := p.Fitness
	if fitness <= 0 {
		fitness = 100
	}
	return float64(p.Rating) * (0.5 + 0.5*float64(fitness)/100.0)
}

func postureAttackFactor(posture tactics.Posture) float64 {
	switch posture {
	case tactics.PostureDefensive:
		return 0.85
	case tactics.PostureAttacking:
		return 1.15
	default:
		return 1
	}
}

// randomOutfielder draws a lineup player other than the keeper. Slot 0
// always holds the goalkeeper: positionOrder puts the keeper first and
// substitutions swap in place, so the invariant survives lineup changes
// and shortened lineups alike.
func randomOutfielder(rng *rand.Rand, lineup []string) string {
	if len(lineup) == 0 {
		return ""
	}
	start := 0
	if len(lineup) > 1 {
		start = 1
	}
	return lineup[start+rng.Intn(len(lineup)-start)]
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
