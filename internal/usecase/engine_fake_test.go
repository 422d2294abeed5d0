package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/player"
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
)

// scriptedEvent is injected into a fixture when its minute comes up.
type scriptedEvent struct {
	Minute int
	Event  match.Event
}

// fakeEngine is a deterministic, scriptable stand-in for the external
// simulation library. Halves end at fixed minutes and everything else only
// happens when a test scripts it.
type fakeEngine struct {
	halfTimeMinute int
	fullTimeMinute int
	subBudget      int

	scripts map[string][]scriptedEvent

	resumeCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		halfTimeMinute: 45,
		fullTimeMinute: 90,
		subBudget:      3,
		scripts:        make(map[string][]scriptedEvent),
	}
}

func (e *fakeEngine) scriptEvent(fixtureID string, minute int, event match.Event) {
	event.Minute = minute
	e.scripts[fixtureID] = append(e.scripts[fixtureID], scriptedEvent{Minute: minute, Event: event})
}

func (e *fakeEngine) CreateSession(_ context.Context, input CreateEngineSessionInput) (EngineSession, error) {
	session := EngineSession{PlayerIndex: -1}
	for i, f := range input.Fixtures {
		home := input.Teams[f.HomeTeamID]
		away := input.Teams[f.AwayTeamID]

		m := &match.LiveMatch{
			FixtureID: f.ID,
			HomeTeam:  home,
			AwayTeam:  away,
			State: match.State{
				Phase:      match.PhaseFirstHalf,
				Attendance: 20_000,
				Home:       newFakeSide(home),
				Away:       newFakeSide(away),
			},
		}

		if f.HomeTeamID == input.PlayerTeamID || f.AwayTeamID == input.PlayerTeamID {
			session.PlayerIndex = i
			side := m.State.SideState(match.SideHome)
			if f.AwayTeamID == input.PlayerTeamID {
				side = m.State.SideState(match.SideAway)
			}
			side.Tactics = input.Tactics.Clone()
			if len(input.Tactics.Lineup) > 0 {
				side.Lineup = append([]string(nil), input.Tactics.Lineup...)
				side.Substitutes = append([]string(nil), input.Tactics.Substitutes...)
			}
		}

		session.Matches = append(session.Matches, m)
	}
	return session, nil
}

func newFakeSide(club team.Team) match.SideState {
	ids := make([]string, 0, len(club.Players))
	for _, p := range club.Players {
		ids = append(ids, p.ID)
	}
	side := match.SideState{TeamID: club.ID}
	if len(ids) > tactics.LineupSize {
		side.Lineup = append([]string(nil), ids[:tactics.LineupSize]...)
		side.Substitutes = append([]string(nil), ids[tactics.LineupSize:]...)
	} else {
		side.Lineup = append([]string(nil), ids...)
	}
	return side
}

func (e *fakeEngine) AdvanceAllByOneMinute(matches []*match.LiveMatch) {
	for _, m := range matches {
		st := &m.State
		if st.Phase == match.PhaseHalfTime || st.Phase == match.PhaseFullTime {
			continue
		}
		st.Minute++

		for _, scripted := range e.scripts[m.FixtureID] {
			if scripted.Minute != st.Minute {
				continue
			}
			ev := scripted.Event
			st.Events = append(st.Events, ev)
			switch ev.Type {
			case match.EventGoal, match.EventPenaltyScored:
				if ev.Side == match.SideHome {
					st.HomeScore++
				} else {
					st.AwayScore++
				}
			case match.EventOwnGoal:
				if ev.Side == match.SideHome {
					st.AwayScore++
				} else {
					st.HomeScore++
				}
			}
		}

		if st.Minute == e.halfTimeMinute && st.Phase == match.PhaseFirstHalf {
			st.Phase = match.PhaseHalfTime
			st.Events = append(st.Events, match.Event{Minute: st.Minute, Type: match.EventHalfTime})
		}
		if st.Minute >= e.fullTimeMinute && st.Phase == match.PhaseSecondHalf {
			st.Phase = match.PhaseFullTime
			st.Events = append(st.Events, match.Event{Minute: st.Minute, Type: match.EventFullTime})
		}
	}
}

func (e *fakeEngine) ToResult(m *match.LiveMatch) match.Result {
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

func (e *fakeEngine) ResumeSecondHalf(state *match.State) {
	e.resumeCalls++
	if state.Phase == match.PhaseHalfTime {
		state.Phase = match.PhaseSecondHalf
	}
}

func (e *fakeEngine) ApplySubstitution(state *match.State, side match.Side, outID, inID string) {
	st := state.SideState(side)
	if st.SubstitutionsUsed >= e.subBudget {
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

func (e *fakeEngine) SelectBestLineup(club team.Team, formation tactics.Formation) (tactics.Selection, error) {
	req, err := formation.Requirement()
	if err != nil {
		return tactics.Selection{}, err
	}

	grouped := make(map[player.Position][]player.Player)
	for _, p := range club.Players {
		grouped[p.Position] = append(grouped[p.Position], p)
	}
	for pos := range grouped {
		sort.SliceStable(grouped[pos], func(i, j int) bool {
			return grouped[pos][i].Rating > grouped[pos][j].Rating
		})
	}

	var lineup []string
	picked := make(map[string]struct{})
	for pos, want := range req.ByPosition() {
		if len(grouped[pos]) < want {
			return tactics.Selection{}, fmt.Errorf("not enough %s players for %s", pos, formation)
		}
		for _, p := range grouped[pos][:want] {
			lineup = append(lineup, p.ID)
			picked[p.ID] = struct{}{}
		}
	}

	var bench []string
	for _, p := range club.Players {
		if _, ok := picked[p.ID]; !ok {
			bench = append(bench, p.ID)
		}
	}

	return tactics.Selection{Lineup: lineup, Substitutes: bench}, nil
}

func (e *fakeEngine) CheckFormationEligibility(formation tactics.Formation, players []player.Player) tactics.Eligibility {
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

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// fakeResultStore records persistence calls.
type fakeResultStore struct {
	mu             sync.Mutex
	completed      [][]match.Result
	completeErr    error
	seasonComplete bool

	tacticsSaved chan tactics.Tactics
	tacticsErr   error
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{tacticsSaved: make(chan tactics.Tactics, 4)}
}

func (s *fakeResultStore) CompleteMatches(_ context.Context, _ string, results []match.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return false, s.completeErr
	}
	s.completed = append(s.completed, results)
	return s.seasonComplete, nil
}

func (s *fakeResultStore) SaveTactics(_ context.Context, _ string, _ string, t tactics.Tactics) error {
	if s.tacticsErr != nil {
		return s.tacticsErr
	}
	s.tacticsSaved <- t
	return nil
}

// fakePrefs is an in-memory speed preference store.
type fakePrefs struct {
	mu    sync.Mutex
	speed int
	saved chan int
}

func newFakePrefs(speed int) *fakePrefs {
	return &fakePrefs{speed: speed, saved: make(chan int, 4)}
}

func (p *fakePrefs) PlaybackSpeed() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.speed < MinPlaybackSpeed || p.speed > MaxPlaybackSpeed {
		return 0, false
	}
	return p.speed, true
}

func (p *fakePrefs) SetPlaybackSpeed(speed int) {
	p.mu.Lock()
	p.speed = speed
	p.mu.Unlock()
	p.saved <- speed
}
