package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClockPollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected ClockPollInterval: %s", cfg.ClockPollInterval)
	}
	if cfg.ClockSecondsPerMinuteTick != 60 {
		t.Fatalf("unexpected ClockSecondsPerMinuteTick: %v", cfg.ClockSecondsPerMinuteTick)
	}
	if cfg.ClockMaxCatchupTicks != 5 {
		t.Fatalf("unexpected ClockMaxCatchupTicks: %d", cfg.ClockMaxCatchupTicks)
	}
	if cfg.ClockDefaultSpeed != 1 {
		t.Fatalf("unexpected ClockDefaultSpeed: %d", cfg.ClockDefaultSpeed)
	}
	if !cfg.PrefsEnabled {
		t.Fatalf("expected PrefsEnabled=true by default")
	}
	if cfg.BackendMaxRetries != 2 {
		t.Fatalf("unexpected BackendMaxRetries: %d", cfg.BackendMaxRetries)
	}
}

func TestLoad_ClockValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("CLOCK_DEFAULT_SPEED", "4")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for CLOCK_DEFAULT_SPEED out of range")
	}
}

func TestLoad_ClockOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("CLOCK_POLL_INTERVAL", "100ms")
	t.Setenv("CLOCK_SECONDS_PER_MINUTE_TICK", "30")
	t.Setenv("CLOCK_MAX_CATCHUP_TICKS", "10")
	t.Setenv("CLOCK_DEFAULT_SPEED", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClockPollInterval != 100*time.Millisecond {
		t.Fatalf("unexpected ClockPollInterval: %s", cfg.ClockPollInterval)
	}
	if cfg.ClockSecondsPerMinuteTick != 30 {
		t.Fatalf("unexpected ClockSecondsPerMinuteTick: %v", cfg.ClockSecondsPerMinuteTick)
	}
	if cfg.ClockMaxCatchupTicks != 10 {
		t.Fatalf("unexpected ClockMaxCatchupTicks: %d", cfg.ClockMaxCatchupTicks)
	}
	if cfg.ClockDefaultSpeed != 3 {
		t.Fatalf("unexpected ClockDefaultSpeed: %d", cfg.ClockDefaultSpeed)
	}
}

func TestLoad_PyroscopeRequiresServerWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without server address")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_BackendParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("BACKEND_BASE_URL", "https://saves.example.com")
	t.Setenv("BACKEND_TOKEN", "token-123")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("BACKEND_MAX_RETRIES", "1")
	t.Setenv("SAVE_ID", "save-9")
	t.Setenv("PLAYER_TEAM_ID", "alb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BackendBaseURL != "https://saves.example.com" {
		t.Fatalf("unexpected BackendBaseURL: %q", cfg.BackendBaseURL)
	}
	if cfg.BackendToken != "token-123" {
		t.Fatalf("unexpected BackendToken")
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Fatalf("unexpected BackendTimeout: %s", cfg.BackendTimeout)
	}
	if cfg.SaveID != "save-9" || cfg.PlayerTeamID != "alb" {
		t.Fatalf("unexpected save identity: %q/%q", cfg.SaveID, cfg.PlayerTeamID)
	}
}
