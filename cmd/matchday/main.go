// Command matchday runs one live round headlessly: it fetches the round
// bundle for a save, plays every fixture minute by minute in real time,
// auto-restarts the second half and persists the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pitchside/matchday/internal/app"
	"github.com/pitchside/matchday/internal/config"
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/observability"
	"github.com/pitchside/matchday/internal/platform/logging"
	"github.com/pitchside/matchday/internal/usecase"
)

const submitAttempts = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof", "error", err)
		os.Exit(1)
	}
	defer func() { _ = observability.StopPprofServer(pprofSrv, logger, 5*time.Second) }()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	defer func() { _ = stopProfiler() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("matchday run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	// The listener drives the headless flow: it logs progress and
	// auto-restarts the second half, since no UI is attached to do it.
	done := make(chan struct{})
	var finishOnce sync.Once
	application.Session.SetSnapshotListener(func(snap usecase.SessionSnapshot) {
		logger.Debug("snapshot",
			"phase", string(snap.Phase),
			"minute", snap.Minute,
			"match_phase", string(snap.MatchPhase),
		)

		switch {
		case snap.Phase == usecase.SessionPostMatch:
			finishOnce.Do(func() { close(done) })
		case snap.MatchPhase == match.PhaseHalfTime && snap.Paused:
			logger.Info("half-time, restarting second half")
			go application.Session.ResumeSecondHalf()
		}
	})

	if err := application.StartRound(ctx); err != nil {
		return err
	}
	logger.InfoContext(ctx, "round started",
		"save_id", cfg.SaveID,
		"player_team", cfg.PlayerTeamID,
		"speed", cfg.ClockDefaultSpeed,
	)

	select {
	case <-ctx.Done():
		logger.Info("interrupted, abandoning round")
		return ctx.Err()
	case <-done:
	}

	seasonComplete, err := application.SubmitResults(ctx, submitAttempts)
	if err != nil {
		return err
	}

	snap := application.Session.Snapshot()
	own := snap.Results[snap.PlayerIndex]
	logger.InfoContext(ctx, "round complete",
		"fixture_id", own.FixtureID,
		"score", fmt.Sprintf("%d-%d", own.HomeScore, own.AwayScore),
		"season_complete", seasonComplete,
	)
	return nil
}
