package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/tactics"
)

func TestOpenSubstitutions_RequiresPausedMatch(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(10)

	if err := f.svc.OpenSubstitutions(); !errors.Is(err, ErrSessionPhase) {
		t.Fatalf("expected ErrSessionPhase while running, got %v", err)
	}

	f.svc.Pause()
	if err := f.svc.OpenSubstitutions(); err != nil {
		t.Fatalf("open substitutions while paused: %v", err)
	}
	if f.svc.Phase() != SessionSubstitutions {
		t.Fatalf("expected substitutions phase, got %s", f.svc.Phase())
	}
}

func TestCloseSubstitutions_ReturnsToLive(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(10)
	f.svc.Pause()

	if err := f.svc.OpenSubstitutions(); err != nil {
		t.Fatalf("open substitutions: %v", err)
	}
	f.svc.CloseSubstitutions()

	if f.svc.Phase() != SessionLive {
		t.Fatalf("expected live phase, got %s", f.svc.Phase())
	}
	// The user paused before opening the overlay; closing it keeps the pause.
	if !f.svc.Snapshot().Paused {
		t.Fatalf("closing the overlay must not unpause a user pause")
	}
}

func TestCloseSubstitutions_AtHalfTimeStartsSecondHalf(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(45)

	if err := f.svc.OpenSubstitutions(); err != nil {
		t.Fatalf("open substitutions at half-time: %v", err)
	}
	f.svc.CloseSubstitutions()

	snap := f.svc.Snapshot()
	if snap.MatchPhase != match.PhaseSecondHalf {
		t.Fatalf("expected second_half after closing the overlay, got %s", snap.MatchPhase)
	}
	if snap.Paused {
		t.Fatalf("driver must run after the half-time restart")
	}
}

func TestRequestSubstitution_SwapsPlayers(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(20)
	f.svc.Pause()
	if err := f.svc.OpenSubstitutions(); err != nil {
		t.Fatalf("open substitutions: %v", err)
	}

	before := f.svc.Snapshot()
	side := before.Matches[before.PlayerIndex].State.Home
	out := side.Lineup[5]
	in := side.Substitutes[0]

	if err := f.svc.RequestSubstitution(out, in); err != nil {
		t.Fatalf("substitution: %v", err)
	}

	after := f.svc.Snapshot().Matches[before.PlayerIndex].State.Home
	if after.Lineup[5] != in {
		t.Fatalf("player %s did not come on, lineup slot holds %s", in, after.Lineup[5])
	}
	if after.SubstitutionsUsed != 1 {
		t.Fatalf("expected 1 substitution used, got %d", after.SubstitutionsUsed)
	}

	events := f.svc.Snapshot().Matches[before.PlayerIndex].State.Events
	last := events[len(events)-1]
	if last.Type != match.EventSubstitution || last.PlayerID != in || last.RelatedPlayerID != out {
		t.Fatalf("unexpected substitution event: %+v", last)
	}
}

func TestRequestSubstitution_InvalidIDsAreNoOps(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(20)
	f.svc.Pause()

	before := f.svc.Snapshot()
	if err := f.svc.RequestSubstitution("nobody", "also-nobody"); err != nil {
		t.Fatalf("invalid substitution must not error: %v", err)
	}

	after := f.svc.Snapshot()
	side := after.Matches[after.PlayerIndex].State.Home
	if side.SubstitutionsUsed != 0 {
		t.Fatalf("invalid ids consumed a substitution")
	}
	if len(after.Matches[after.PlayerIndex].State.Events) != len(before.Matches[before.PlayerIndex].State.Events) {
		t.Fatalf("invalid substitution appended an event")
	}
}

func TestRequestSubstitution_BudgetExhausted(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(20)
	f.svc.Pause()

	snap := f.svc.Snapshot()
	side := snap.Matches[snap.PlayerIndex].State.Home
	for i := 0; i < 3; i++ {
		if err := f.svc.RequestSubstitution(side.Lineup[i+1], side.Substitutes[i]); err != nil {
			t.Fatalf("substitution %d: %v", i+1, err)
		}
	}

	current := f.svc.Snapshot()
	lineupBefore := append([]string(nil), current.Matches[current.PlayerIndex].State.Home.Lineup...)
	bench := current.Matches[current.PlayerIndex].State.Home.Substitutes
	if err := f.svc.RequestSubstitution(lineupBefore[0], bench[0]); err != nil {
		t.Fatalf("over-budget substitution must not error: %v", err)
	}

	after := f.svc.Snapshot().Matches[current.PlayerIndex].State.Home
	if after.SubstitutionsUsed != 3 {
		t.Fatalf("budget exceeded: %d substitutions used", after.SubstitutionsUsed)
	}
	if after.Lineup[0] != lineupBefore[0] {
		t.Fatalf("over-budget substitution changed the lineup")
	}
}

func TestChangeTactics_RejectsMalformedInput(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(10)
	f.svc.Pause()

	cases := []TacticsChangeInput{
		{Formation: "", Posture: "balanced"},
		{Formation: "4-4-2", Posture: "reckless"},
		{Formation: "4-4", Posture: "balanced"},
		{Formation: "4-4-3", Posture: "balanced"},
	}
	for _, input := range cases {
		if err := f.svc.ChangeTactics(t.Context(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestChangeTactics_RequiresPausedMatch(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(10)

	err := f.svc.ChangeTactics(t.Context(), TacticsChangeInput{Formation: "4-3-3", Posture: "attacking"})
	if !errors.Is(err, ErrSessionPhase) {
		t.Fatalf("expected ErrSessionPhase while running, got %v", err)
	}
}

func TestChangeTactics_IneligibleFormationLeavesStateUntouched(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(10)
	f.svc.Pause()

	before := f.svc.Snapshot()
	sideBefore := before.Matches[before.PlayerIndex].State.Home

	// The seeded squad carries five defenders; a six-defender shape is valid
	// syntax but cannot be fielded.
	err := f.svc.ChangeTactics(t.Context(), TacticsChangeInput{Formation: "6-3-1", Posture: "defensive"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unfieldable formation, got %v", err)
	}

	after := f.svc.Snapshot()
	sideAfter := after.Matches[after.PlayerIndex].State.Home
	if sideAfter.Tactics.Formation != sideBefore.Tactics.Formation {
		t.Fatalf("rejected change altered the formation: %s", sideAfter.Tactics.Formation)
	}
	for i, id := range sideAfter.Lineup {
		if id != sideBefore.Lineup[i] {
			t.Fatalf("rejected change altered the lineup at slot %d", i)
		}
	}
}

func TestChangeTactics_AppliesAndPersists(t *testing.T) {
	f := newSessionFixture(t)
	f.advanceMinutes(10)
	f.svc.Pause()

	err := f.svc.ChangeTactics(t.Context(), TacticsChangeInput{Formation: "4-3-3", Posture: "attacking"})
	if err != nil {
		t.Fatalf("change tactics: %v", err)
	}

	snap := f.svc.Snapshot()
	side := snap.Matches[snap.PlayerIndex].State.Home
	if side.Tactics.Formation != "4-3-3" || side.Tactics.Posture != tactics.PostureAttacking {
		t.Fatalf("tactics not applied: %+v", side.Tactics)
	}
	if len(side.Lineup) != tactics.LineupSize {
		t.Fatalf("re-selected lineup has %d players", len(side.Lineup))
	}

	select {
	case saved := <-f.store.tacticsSaved:
		if saved.Formation != "4-3-3" {
			t.Fatalf("persisted formation %s, want 4-3-3", saved.Formation)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("tactics change was never persisted")
	}
}

func TestChangeTactics_PersistFailureDoesNotSurface(t *testing.T) {
	f := newSessionFixture(t)
	f.store.tacticsErr = errors.New("backend down")
	f.advanceMinutes(10)
	f.svc.Pause()

	err := f.svc.ChangeTactics(t.Context(), TacticsChangeInput{Formation: "4-3-3", Posture: "balanced"})
	if err != nil {
		t.Fatalf("persistence failure must not fail the command: %v", err)
	}

	snap := f.svc.Snapshot()
	if got := snap.Matches[snap.PlayerIndex].State.Home.Tactics.Formation; got != "4-3-3" {
		t.Fatalf("tactics not applied despite failed save: %s", got)
	}
}
