package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pitchside/matchday/external/gamebackend"
	"github.com/pitchside/matchday/external/simengine"
	"github.com/pitchside/matchday/internal/config"
	"github.com/pitchside/matchday/internal/platform/id"
	"github.com/pitchside/matchday/internal/platform/logging"
	"github.com/pitchside/matchday/internal/platform/prefs"
	"github.com/pitchside/matchday/internal/platform/resilience"
	"github.com/pitchside/matchday/internal/usecase"
)

// App owns the wired matchday session stack: the backend client, the match
// engine, the clock driver and the session service on top of them.
type App struct {
	Config  config.Config
	Logger  *logging.Logger
	Backend *gamebackend.Client
	Session *usecase.MatchSessionService
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SaveID == "" {
		return nil, fmt.Errorf("SAVE_ID is required")
	}
	if cfg.PlayerTeamID == "" {
		return nil, fmt.Errorf("PLAYER_TEAM_ID is required")
	}

	// Every run gets its own correlation id so logs of overlapping sessions
	// against the same save can be told apart.
	sessionID, err := id.NewRandomGenerator().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	logger = logger.With("session_id", sessionID)

	backend := gamebackend.NewClient(gamebackend.ClientConfig{
		BaseURL:    cfg.BackendBaseURL,
		Token:      cfg.BackendToken,
		Timeout:    cfg.BackendTimeout,
		MaxRetries: cfg.BackendMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.BackendCircuitEnabled,
			FailureThreshold: cfg.BackendCircuitFailureCount,
			OpenTimeout:      cfg.BackendCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.BackendCircuitHalfOpenMaxReq,
		},
	})

	engine := simengine.New(simengine.Config{Seed: cfg.EngineSeed})

	var speedPrefs usecase.SpeedPreferences
	if cfg.PrefsEnabled {
		path := cfg.PrefsPath
		if path == "" {
			path = prefs.DefaultPath()
		}
		speedPrefs = prefs.NewStore(path, logger)
	}

	clock := usecase.NewClockDriver(usecase.ClockConfig{
		PollInterval:         cfg.ClockPollInterval,
		SecondsPerMinuteTick: cfg.ClockSecondsPerMinuteTick,
		MaxCatchupTicks:      cfg.ClockMaxCatchupTicks,
	})
	clock.SetMultiplier(cfg.ClockDefaultSpeed)

	session, err := usecase.NewMatchSessionService(
		engine,
		backend,
		speedPrefs,
		clock,
		logger,
		cfg.SaveID,
		cfg.PlayerTeamID,
	)
	if err != nil {
		return nil, fmt.Errorf("build session service: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Session: session,
	}, nil
}

// StartRound fetches the matchday bundle for the configured save and starts
// the live session with it.
func (a *App) StartRound(ctx context.Context) error {
	bundle, err := a.Backend.FetchMatchday(ctx, a.Config.SaveID)
	if err != nil {
		return fmt.Errorf("fetch matchday bundle: %w", err)
	}
	if bundle.PlayerTeamID != "" && bundle.PlayerTeamID != a.Config.PlayerTeamID {
		a.Logger.WarnContext(ctx, "configured player team differs from save",
			"configured", a.Config.PlayerTeamID,
			"save", bundle.PlayerTeamID,
		)
	}

	return a.Session.Start(ctx, usecase.StartSessionInput{
		Round:   bundle.Round,
		Teams:   bundle.Teams,
		Tactics: bundle.Tactics,
	})
}

// SubmitResults persists the finished round, retrying transient backend
// failures with a linear backoff.
func (a *App) SubmitResults(ctx context.Context, attempts int) (bool, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		seasonComplete, err := a.Session.SubmitResults(ctx)
		if err == nil {
			return seasonComplete, nil
		}
		lastErr = err
		a.Logger.WarnContext(ctx, "submit results failed",
			"attempt", attempt,
			"attempts", attempts,
			"error", err,
		)

		if attempt == attempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * 2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return false, lastErr
}

// Close releases the session resources.
func (a *App) Close() {
	a.Session.Close()
}
