package gamebackend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/pitchside/matchday/internal/domain/fixture"
	"github.com/pitchside/matchday/internal/domain/match"
	"github.com/pitchside/matchday/internal/domain/tactics"
	"github.com/pitchside/matchday/internal/domain/team"
	"github.com/pitchside/matchday/internal/platform/logging"
	"github.com/pitchside/matchday/internal/platform/resilience"
	"github.com/pitchside/matchday/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout     = 15 * time.Second
	maxResponseBody    = 4 << 20
	backendDateLayout  = "2006-01-02 15:04:05"
	backendDateLayout2 = time.RFC3339
)

var errBackendTransient = crerr.New("game backend transient failure")

// MatchdayBundle is everything the client needs to start a round: the
// unplayed fixtures, full squads for every participating team and the
// player's saved tactics.
type MatchdayBundle struct {
	Round        fixture.Round
	Teams        map[string]team.Team
	PlayerTeamID string
	Tactics      tactics.Tactics
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the save-game backend. It implements usecase.ResultStore.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	breakerCfg := cfg.CircuitBreaker.Normalized()

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchMatchday loads the round bundle for a save. Concurrent callers for the
// same save share one in-flight request.
func (c *Client) FetchMatchday(ctx context.Context, saveID string) (MatchdayBundle, error) {
	if strings.TrimSpace(saveID) == "" {
		return MatchdayBundle{}, fmt.Errorf("%w: save id is required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/save/%s/matchday", url.PathEscape(saveID))
	out, err, _ := c.flight.Do(path, func() (any, error) {
		var envelope matchdayEnvelope
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &envelope); err != nil {
			return MatchdayBundle{}, err
		}
		return mapMatchdayEnvelope(envelope), nil
	})
	if err != nil {
		return MatchdayBundle{}, fmt.Errorf("fetch matchday save_id=%s: %w", saveID, err)
	}

	bundle, ok := out.(MatchdayBundle)
	if !ok {
		return MatchdayBundle{}, fmt.Errorf("unexpected response payload type %T", out)
	}
	return bundle, nil
}

// CompleteMatches persists the finished round and reports whether the season
// is over. The backend treats the call as idempotent per round, so the caller
// is free to retry after a failure.
func (c *Client) CompleteMatches(ctx context.Context, saveID string, results []match.Result) (bool, error) {
	if strings.TrimSpace(saveID) == "" {
		return false, fmt.Errorf("%w: save id is required", usecase.ErrInvalidInput)
	}
	if len(results) == 0 {
		return false, fmt.Errorf("%w: no results to persist", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/match/%s/complete", url.PathEscape(saveID))
	body := completeRequest{Results: mapResults(results)}

	var response completeResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &response); err != nil {
		return false, fmt.Errorf("complete matches save_id=%s: %w", saveID, err)
	}
	return response.SeasonComplete, nil
}

// SaveTactics stores the player's current match setup on the save.
func (c *Client) SaveTactics(ctx context.Context, saveID, teamID string, t tactics.Tactics) error {
	if strings.TrimSpace(saveID) == "" || strings.TrimSpace(teamID) == "" {
		return fmt.Errorf("%w: save id and team id are required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/save/%s/tactics/%s", url.PathEscape(saveID), url.PathEscape(teamID))
	if err := c.doJSON(ctx, http.MethodPut, path, mapTactics(t), nil); err != nil {
		return fmt.Errorf("save tactics save_id=%s team_id=%s: %w", saveID, teamID, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "game backend circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: game backend is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	var encoded []byte
	if body != nil {
		// The body is encoded once into a pooled buffer and replayed from
		// there on every retry attempt.
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		if err := sonic.ConfigDefault.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		encoded = buf.Bytes()
	}

	raw, err := c.executeRequest(ctx, method, c.baseURL+path, encoded)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errBackendTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return err
	}

	if target == nil || len(raw) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode backend payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if body != nil {
			req.Header.Set("content-type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errBackendTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errBackendTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: backend status=%d body=%s", usecase.ErrNotFound, resp.StatusCode, abbreviateBody(raw))
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: backend status=%d body=%s", errBackendTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("backend status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("backend request failed")
	}
	c.logger.WarnContext(ctx, "game backend request failed", "method", method, "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	value := strings.TrimSpace(string(raw))
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

func parseBackendDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	for _, layout := range []string{backendDateLayout2, backendDateLayout} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
