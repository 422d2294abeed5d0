package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitchside/matchday/internal/domain/fixture"
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
	"github.com/pitchside/matchday/internal/platform/logging"
)

// SessionPhase is the screen-level state of a live-match session, distinct
// from the per-match engine phase.
type SessionPhase string

const (
	SessionPreMatch      SessionPhase = "pre_match"
	SessionLive          SessionPhase = "live"
	SessionSubstitutions SessionPhase = "substitutions"
	SessionPostMatch     SessionPhase = "post_match"
)

const persistencePoolSize = 2

// ResultStore is the persistence boundary of a finished round.
type ResultStore interface {
	CompleteMatches(ctx context.Context, saveID string, results []match.Result) (seasonComplete bool, err error)
	SaveTactics(ctx context.Context, saveID, teamID string, t tactics.Tactics) error
}

// SpeedPreferences restores and stores the last-used playback speed.
// Implementations are best effort; absence is not an error.
type SpeedPreferences interface {
	PlaybackSpeed() (int, bool)
	SetPlaybackSpeed(speed int)
}

// SessionSnapshot is the immutable view published to the UI after every
// mutation of the live match set.
type SessionSnapshot struct {
	Phase             SessionPhase
	Paused            bool
	Speed             int
	Minute            int
	SecondsIntoMinute int
	MatchPhase        match.Phase
	Matches           []*match.LiveMatch
	PlayerIndex       int
	Results           []match.Result
	SeasonComplete    bool
}

// StartSessionInput is the data required to move from pre_match to live.
type StartSessionInput struct {
	Round   fixture.Round
	Teams   map[string]team.Team
	Tactics tactics.Tactics
}

// MatchSessionService owns one match session end to end: it gates the clock
// driver, dispatches minute ticks into the engine, applies mid-match
// commands and finalizes results. The session is strictly forward:
// pre_match -> live -> {substitutions} -> post_match.
type MatchSessionService struct {
	engine  MatchEngine
	store   ResultStore
	prefs   SpeedPreferences
	clock   *ClockDriver
	logger  *logging.Logger
	pool    *ants.Pool
	saveID  string
	ownTeam string

	mu             sync.Mutex
	phase          SessionPhase
	matches        []*match.LiveMatch
	playerIdx      int
	results        []match.Result
	seasonComplete bool
	timer          *time.Timer
	onSnapshot     func(SessionSnapshot)
}

func NewMatchSessionService(
	engine MatchEngine,
	store ResultStore,
	prefs SpeedPreferences,
	clock *ClockDriver,
	logger *logging.Logger,
	saveID string,
	playerTeamID string,
) (*MatchSessionService, error) {
	if engine == nil {
		return nil, fmt.Errorf("match engine is required")
	}
	if store == nil {
		return nil, fmt.Errorf("result store is required")
	}
	if clock == nil {
		clock = NewClockDriver(ClockConfig{})
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(persistencePoolSize)
	if err != nil {
		return nil, fmt.Errorf("create persistence pool: %w", err)
	}

	return &MatchSessionService{
		engine:    engine,
		store:     store,
		prefs:     prefs,
		clock:     clock,
		logger:    logger,
		pool:      pool,
		saveID:    saveID,
		ownTeam:   playerTeamID,
		phase:     SessionPreMatch,
		playerIdx: -1,
	}, nil
}

// SetSnapshotListener registers the callback receiving fresh snapshots.
// Must be called before Start.
func (s *MatchSessionService) SetSnapshotListener(fn func(SessionSnapshot)) {
	s.mu.Lock()
	s.onSnapshot = fn
	s.mu.Unlock()
}

// Start validates the round data, builds the live match set through the
// engine and transitions pre_match -> live. Missing fixture, squad or
// tactics data is fatal to the session (ErrMissingData).
func (s *MatchSessionService) Start(ctx context.Context, input StartSessionInput) error {
	unplayed := input.Round.Unplayed()
	if len(unplayed) == 0 {
		return fmt.Errorf("%w: no unplayed fixture in round %d", ErrMissingData, input.Round.Number)
	}
	for _, f := range unplayed {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMissingData, err)
		}
		for _, teamID := range []string{f.HomeTeamID, f.AwayTeamID} {
			club, ok := input.Teams[teamID]
			if !ok || len(club.Players) == 0 {
				return fmt.Errorf("%w: no squad data for team %s", ErrMissingData, teamID)
			}
		}
	}
	if err := input.Tactics.Validate(); err != nil {
		return fmt.Errorf("%w: tactics: %v", ErrMissingData, err)
	}

	session, err := s.engine.CreateSession(ctx, CreateEngineSessionInput{
		Fixtures:     unplayed,
		Teams:        input.Teams,
		PlayerTeamID: s.ownTeam,
		Tactics:      input.Tactics,
		Round:        input.Round,
	})
	if err != nil {
		return fmt.Errorf("create engine session: %w", err)
	}
	if session.PlayerIndex < 0 || session.PlayerIndex >= len(session.Matches) {
		return fmt.Errorf("%w: player team %s has no fixture this round", ErrMissingData, s.ownTeam)
	}

	s.mu.Lock()
	if s.phase != SessionPreMatch {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already started", ErrSessionPhase)
	}
	s.matches = session.Matches
	s.playerIdx = session.PlayerIndex
	s.phase = SessionLive

	if s.prefs != nil {
		if speed, ok := s.prefs.PlaybackSpeed(); ok {
			s.clock.SetMultiplier(speed)
		}
	}

	s.clock.Resume()
	s.clock.Reset()
	s.armTimerLocked()
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "live session started",
		"round", input.Round.Number,
		"fixtures", len(session.Matches),
		"speed", s.clock.Multiplier(),
	)
	emit(listener, snap)
	return nil
}

// tick is the timer callback: one poll of the clock driver, N sequential
// one-minute engine steps, one snapshot publish, then re-arm. The timer is
// only re-armed after the mutation completes, so ticks never overlap.
func (s *MatchSessionService) tick() {
	s.mu.Lock()

	if s.phase != SessionLive || s.clock.Paused() {
		s.timer = nil
		s.mu.Unlock()
		return
	}

	ticks := s.clock.Poll()
	advanced := false
	for i := 0; i < ticks; i++ {
		// One engine call per simulated minute, never batched, so all
		// fixtures of the round stay in lockstep.
		s.engine.AdvanceAllByOneMinute(s.matches)
		advanced = true

		phase := s.playerMatchLocked().State.Phase
		if phase == match.PhaseHalfTime {
			s.clock.Pause()
			break
		}
		if phase == match.PhaseFullTime {
			s.finishLocked()
			break
		}
	}

	if s.phase == SessionLive && !s.clock.Paused() {
		s.armTimerLocked()
	} else {
		s.timer = nil
	}

	var snap SessionSnapshot
	var listener func(SessionSnapshot)
	if advanced {
		snap, listener = s.snapshotLocked()
	}
	s.mu.Unlock()

	if advanced {
		emit(listener, snap)
	}
}

// finishLocked converts the whole live match set into immutable results and
// transitions to post_match. Persistence happens separately in SubmitResults
// so a failed save can be retried without touching the results.
func (s *MatchSessionService) finishLocked() {
	s.clock.Pause()
	s.stopTimerLocked()
	s.results = FinalizeResults(s.engine, s.matches, s.playerIdx, s.ownTeam)
	s.phase = SessionPostMatch
	s.logger.Info("round finished",
		"fixtures", len(s.results),
		"player_fixture", s.results[s.playerIdx].FixtureID,
	)
}

// SubmitResults persists the finished round. On failure the session stays in
// post_match with its results intact so the caller can retry.
func (s *MatchSessionService) SubmitResults(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.phase != SessionPostMatch {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: results are only available in post_match", ErrSessionPhase)
	}
	results := s.results
	s.mu.Unlock()

	seasonComplete, err := s.store.CompleteMatches(ctx, s.saveID, results)
	if err != nil {
		s.logger.ErrorContext(ctx, "persist round results failed", "error", err)
		return false, fmt.Errorf("persist round results: %w", err)
	}

	s.mu.Lock()
	s.seasonComplete = seasonComplete
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
	return seasonComplete, nil
}

// Pause suspends the clock driver and disarms the poll timer.
func (s *MatchSessionService) Pause() {
	s.mu.Lock()
	if s.phase != SessionLive {
		s.mu.Unlock()
		return
	}
	s.clock.Pause()
	s.stopTimerLocked()
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
}

// Resume continues play after a user pause. Resuming out of half-time goes
// through ResumeSecondHalf instead.
func (s *MatchSessionService) Resume() {
	s.mu.Lock()
	if s.phase != SessionLive || !s.clock.Paused() {
		s.mu.Unlock()
		return
	}
	if s.playerMatchLocked().State.Phase == match.PhaseHalfTime {
		s.resumeSecondHalfLocked()
	} else {
		s.clock.Resume()
		s.armTimerLocked()
	}
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
}

// ResumeSecondHalf flips every fixture of the round from half_time to
// second_half and restarts the driver with a clean accumulator.
func (s *MatchSessionService) ResumeSecondHalf() {
	s.mu.Lock()
	if s.phase != SessionLive || s.playerMatchLocked().State.Phase != match.PhaseHalfTime {
		s.mu.Unlock()
		return
	}
	s.resumeSecondHalfLocked()
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
}

func (s *MatchSessionService) resumeSecondHalfLocked() {
	for _, m := range s.matches {
		s.engine.ResumeSecondHalf(&m.State)
	}
	s.clock.Resume()
	s.clock.Reset()
	s.armTimerLocked()
}

// SetSpeed changes the playback multiplier and stores it as the preferred
// speed without blocking the session.
func (s *MatchSessionService) SetSpeed(multiplier int) {
	s.clock.SetMultiplier(multiplier)
	applied := s.clock.Multiplier()

	if s.prefs != nil {
		if err := s.pool.Submit(func() {
			s.prefs.SetPlaybackSpeed(applied)
		}); err != nil {
			s.logger.Warn("store playback speed skipped", "error", err)
		}
	}

	s.mu.Lock()
	snap, listener := s.snapshotLocked()
	s.mu.Unlock()

	emit(listener, snap)
}

func (s *MatchSessionService) Phase() SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns the current immutable view of the session.
func (s *MatchSessionService) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _ := s.snapshotLocked()
	return snap
}

// Close disarms the timer and releases the persistence pool. The session
// cannot be restarted afterwards.
func (s *MatchSessionService) Close() {
	s.mu.Lock()
	s.clock.Pause()
	s.stopTimerLocked()
	s.mu.Unlock()
	s.pool.Release()
}

func (s *MatchSessionService) playerMatchLocked() *match.LiveMatch {
	return s.matches[s.playerIdx]
}

func (s *MatchSessionService) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.clock.PollInterval(), s.tick)
}

func (s *MatchSessionService) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// snapshotLocked deep-copies every mutable container so consumers that
// detect change by identity always observe a fresh value.
func (s *MatchSessionService) snapshotLocked() (SessionSnapshot, func(SessionSnapshot)) {
	snap := SessionSnapshot{
		Phase:             s.phase,
		Paused:            s.clock.Paused(),
		Speed:             s.clock.Multiplier(),
		SecondsIntoMinute: s.clock.SecondsIntoMinute(),
		PlayerIndex:       s.playerIdx,
		SeasonComplete:    s.seasonComplete,
	}
	if len(s.matches) > 0 {
		snap.Matches = make([]*match.LiveMatch, len(s.matches))
		for i, m := range s.matches {
			snap.Matches[i] = m.Snapshot()
		}
		own := s.playerMatchLocked()
		snap.Minute = own.State.Minute
		snap.MatchPhase = own.State.Phase
	}
	if len(s.results) > 0 {
		snap.Results = append([]match.Result(nil), s.results...)
	}
	return snap, s.onSnapshot
}

func emit(listener func(SessionSnapshot), snap SessionSnapshot) {
	if listener != nil {
		listener(snap)
	}
}
