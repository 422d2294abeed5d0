package usecase

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/tactics"
)

var commandValidator = validator.New()

// TacticsChangeInput is a mid-match formation/posture change request.
type TacticsChangeInput struct {
	Formation string `validate:"required"`
	Posture   string `validate:"required,oneof=defensive balanced attacking"`
}

// OpenSubstitutions raises the substitutions overlay. It is only reachable
// while the match is paused or at half-time; the driver is already stopped
// by whichever of the two got us here.
func (s *MatchSessionService) OpenSubstitutions() error {
	s.mu.Lock()
	if s.phase != SessionLive {
		s.mu.Unlock()
		return fmt.Errorf("%w: substitutions require a live session", ErrSessionPhase)
	}
	if !s.clock.Paused() {
		s.mu.Unlock()
		return fmt.Errorf("%w: substitutions require a paused match or half-time", ErrSessionPhase)
	}
	s.phase = SessionSubstitutions
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
	return nil
}

// CloseSubstitutions drops back to live. Closing the overlay at half-time
// implicitly kicks off the second half.
func (s *MatchSessionService) CloseSubstitutions() {
	s.mu.Lock()
	if s.phase != SessionSubstitutions {
		s.mu.Unlock()
		return
	}
	s.phase = SessionLive
	if s.playerMatchLocked().State.Phase == match.PhaseHalfTime {
		s.resumeSecondHalfLocked()
	}
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
}

// RequestSubstitution routes a substitution for the player's side to the
// engine primitive. The engine treats invalid ids or an exhausted budget as
// a silent no-op; the command layer only resolves which side is managed.
func (s *MatchSessionService) RequestSubstitution(outID, inID string) error {
	s.mu.Lock()
	if s.phase != SessionLive && s.phase != SessionSubstitutions {
		s.mu.Unlock()
		return fmt.Errorf("%w: no match in progress", ErrSessionPhase)
	}

	own := s.playerMatchLocked()
	side, ok := own.SideFor(s.ownTeam)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: managed team %s is not part of the live fixture", ErrMissingData, s.ownTeam)
	}

	s.engine.ApplySubstitution(&own.State, side, outID, inID)
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
	return nil
}

// ChangeTactics applies a formation/posture change for the player's side.
// Only allowed while paused or at half-time. The formation is re-validated
// against the squad's positional composition; an ineligible request leaves
// the prior tactics and lineup untouched. On acceptance the lineup is
// re-selected for the new shape and the tactics are persisted asynchronously.
func (s *MatchSessionService) ChangeTactics(ctx context.Context, input TacticsChangeInput) error {
	if err := commandValidator.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	formation := tactics.Formation(input.Formation)
	if _, err := formation.Requirement(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	if s.phase != SessionLive && s.phase != SessionSubstitutions {
		s.mu.Unlock()
		return fmt.Errorf("%w: no match in progress", ErrSessionPhase)
	}
	if !s.clock.Paused() {
		s.mu.Unlock()
		return fmt.Errorf("%w: tactics changes require a paused match or half-time", ErrSessionPhase)
	}

	own := s.playerMatchLocked()
	side, ok := own.SideFor(s.ownTeam)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: managed team %s is not part of the live fixture", ErrMissingData, s.ownTeam)
	}

	club := own.HomeTeam
	if side == match.SideAway {
		club = own.AwayTeam
	}

	eligibility := s.engine.CheckFormationEligibility(formation, club.Players)
	if !eligibility.Eligible {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "formation rejected, squad cannot field it",
			"formation", input.Formation,
			"missing", eligibility.Missing,
		)
		return fmt.Errorf("%w: squad cannot field formation %s", ErrInvalidInput, input.Formation)
	}

	selection, err := s.engine.SelectBestLineup(club, formation)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("select lineup for formation %s: %w", input.Formation, err)
	}

	updated := tactics.Tactics{
		Formation:   formation,
		Posture:     tactics.Posture(input.Posture),
		Lineup:      selection.Lineup,
		Substitutes: selection.Substitutes,
	}

	sideState := own.State.SideState(side)
	sideState.Tactics = updated
	sideState.Lineup = append([]string(nil), selection.Lineup...)
	sideState.Substitutes = append([]string(nil), selection.Substitutes...)

	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	// Persist off the session goroutine; failures are logged, never
	// surfaced to live play.
	persisted := updated.Clone()
	if err := s.pool.Submit(func() {
		if err := s.store.SaveTactics(context.Background(), s.saveID, club.ID, persisted); err != nil {
			s.logger.Warn("persist tactics failed",
				"team_id", club.ID,
				"formation", string(persisted.Formation),
				"error", err,
			)
		}
	}); err != nil {
		s.logger.Warn("persist tactics skipped", "error", err)
	}

	emit(listener, snap)
	return nil
}
