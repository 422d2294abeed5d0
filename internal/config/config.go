package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pitchside/matchday/internal/platform/logging"
)

// Config stores runtime configuration for the matchday client.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	SaveID       string
	PlayerTeamID string

	BackendBaseURL               string
	BackendToken                 string
	BackendTimeout               time.Duration
	BackendMaxRetries            int
	BackendCircuitEnabled        bool
	BackendCircuitFailureCount   int
	BackendCircuitOpenTimeout    time.Duration
	BackendCircuitHalfOpenMaxReq int

	ClockPollInterval         time.Duration
	ClockSecondsPerMinuteTick int
	ClockMaxCatchupTicks      int
	ClockDefaultSpeed         int

	PrefsEnabled bool
	PrefsPath    string

	EngineSeed int64

	PprofEnabled bool
	PprofAddr    string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	UptraceEnabled bool
	UptraceDSN     string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	backendTimeout, err := time.ParseDuration(getEnv("BACKEND_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BACKEND_TIMEOUT: %w", err)
	}
	if backendTimeout <= 0 {
		return Config{}, fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	backendMaxRetries, err := getEnvAsInt("BACKEND_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse BACKEND_MAX_RETRIES: %w", err)
	}
	if backendMaxRetries < 0 {
		return Config{}, fmt.Errorf("BACKEND_MAX_RETRIES must be >= 0")
	}
	backendCircuitEnabled, err := strconv.ParseBool(getEnv("BACKEND_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BACKEND_CIRCUIT_ENABLED: %w", err)
	}
	backendCircuitFailureCount, err := getEnvAsInt("BACKEND_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse BACKEND_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if backendCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("BACKEND_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	backendCircuitOpenTimeout, err := time.ParseDuration(getEnv("BACKEND_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BACKEND_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if backendCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("BACKEND_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	backendCircuitHalfOpenMaxReq, err := getEnvAsInt("BACKEND_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse BACKEND_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if backendCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("BACKEND_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	clockPollInterval, err := time.ParseDuration(getEnv("CLOCK_POLL_INTERVAL", "250ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLOCK_POLL_INTERVAL: %w", err)
	}
	if clockPollInterval <= 0 {
		return Config{}, fmt.Errorf("CLOCK_POLL_INTERVAL must be > 0")
	}
	clockSecondsPerTick, err := getEnvAsInt("CLOCK_SECONDS_PER_MINUTE_TICK", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLOCK_SECONDS_PER_MINUTE_TICK: %w", err)
	}
	if clockSecondsPerTick <= 0 {
		return Config{}, fmt.Errorf("CLOCK_SECONDS_PER_MINUTE_TICK must be > 0")
	}
	clockMaxCatchupTicks, err := getEnvAsInt("CLOCK_MAX_CATCHUP_TICKS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLOCK_MAX_CATCHUP_TICKS: %w", err)
	}
	if clockMaxCatchupTicks < 1 {
		return Config{}, fmt.Errorf("CLOCK_MAX_CATCHUP_TICKS must be >= 1")
	}
	clockDefaultSpeed, err := getEnvAsInt("CLOCK_DEFAULT_SPEED", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLOCK_DEFAULT_SPEED: %w", err)
	}
	if clockDefaultSpeed < 1 || clockDefaultSpeed > 3 {
		return Config{}, fmt.Errorf("CLOCK_DEFAULT_SPEED must be between 1 and 3")
	}

	prefsEnabled, err := strconv.ParseBool(getEnv("PREFS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PREFS_ENABLED: %w", err)
	}

	engineSeed, err := getEnvAsInt64("ENGINE_SEED", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse ENGINE_SEED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "matchday-client"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		SaveID:       strings.TrimSpace(getEnv("SAVE_ID", "")),
		PlayerTeamID: strings.TrimSpace(getEnv("PLAYER_TEAM_ID", "")),

		BackendBaseURL:               strings.TrimSpace(getEnv("BACKEND_BASE_URL", "http://localhost:8080")),
		BackendToken:                 strings.TrimSpace(getEnv("BACKEND_TOKEN", "")),
		BackendTimeout:               backendTimeout,
		BackendMaxRetries:            backendMaxRetries,
		BackendCircuitEnabled:        backendCircuitEnabled,
		BackendCircuitFailureCount:   backendCircuitFailureCount,
		BackendCircuitOpenTimeout:    backendCircuitOpenTimeout,
		BackendCircuitHalfOpenMaxReq: backendCircuitHalfOpenMaxReq,

		ClockPollInterval:         clockPollInterval,
		ClockSecondsPerMinuteTick: clockSecondsPerTick,
		ClockMaxCatchupTicks:      clockMaxCatchupTicks,
		ClockDefaultSpeed:         clockDefaultSpeed,

		PrefsEnabled: prefsEnabled,
		PrefsPath:    strings.TrimSpace(getEnv("PREFS_PATH", "")),

		EngineSeed: engineSeed,

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case EnvDev, EnvStage, EnvProd:
		return v, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
