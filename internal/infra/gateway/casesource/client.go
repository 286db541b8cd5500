// Package casesource reads case snapshots from the case-management system
// over its REST API.
package casesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

const (
	requestTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second

	// breaker trips after this many consecutive failures
	breakerThreshold = 5
	breakerOpenFor   = 30 * time.Second
)

// ErrSourceUnavailable is returned while the circuit breaker is open
var ErrSourceUnavailable = errors.New("case source unavailable")

// Config configures the client
type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	// InitialBackoff is the first wait after a 429; it doubles per retry
	InitialBackoff time.Duration
}

// Client is an HTTP client for the case-management API. It implements
// casefile.SnapshotSource and distribution.ClaimSource.
type Client struct {
	apiKey         string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	httpClient     *http.Client
	breaker        *gobreaker.CircuitBreaker
	logger         *logger.Logger
}

var (
	_ casefile.SnapshotSource  = (*Client)(nil)
	_ distribution.ClaimSource = (*Client)(nil)
)

// NewClient creates a new case-source client
func NewClient(cfg Config, log *logger.Logger) *Client {
	log = log.WithField("component", "case_source")

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = defaultBackoff
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "case_source",
		MaxRequests: 1,
		Timeout:     breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		// an unknown case is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, casefile.ErrCaseNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		maxRetries:     maxRetries,
		initialBackoff: initial,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		breaker: breaker,
		logger:  log,
	}
}

// LoadSnapshot fetches everything the reports of a case are computed from
func (c *Client) LoadSnapshot(ctx context.Context, caseID uuid.UUID) (*casefile.Snapshot, error) {
	fetchStart := time.Now()

	var snap casefile.Snapshot
	if err := c.getJSON(ctx, fmt.Sprintf("%s/cases/%s/snapshot", c.baseURL, caseID), &snap); err != nil {
		return nil, fmt.Errorf("LoadSnapshot failed: %w", err)
	}

	if snap.Case.ID != caseID {
		return nil, fmt.Errorf("%w: snapshot is for case %s, requested %s", casefile.ErrInvalidSnapshot, snap.Case.ID, caseID)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	c.logger.Info("snapshot fetched",
		"case_id", caseID.String(),
		"entries", len(snap.Entries),
		"transactions", len(snap.Transactions),
		"claims", len(snap.Claims),
		"duration_ms", time.Since(fetchStart).Milliseconds(),
	)
	return &snap, nil
}

// ListClaims fetches the current claims of a case
func (c *Client) ListClaims(ctx context.Context, caseID uuid.UUID) ([]distribution.Claim, error) {
	var claims []distribution.Claim
	if err := c.getJSON(ctx, fmt.Sprintf("%s/cases/%s/claims", c.baseURL, caseID), &claims); err != nil {
		return nil, fmt.Errorf("ListClaims failed: %w", err)
	}
	return claims, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, http.MethodGet, reqURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("failed to decode case source response: %w", err)
	}
	return nil
}

// doRequest performs an authenticated request, retrying 429 responses with
// exponential backoff up to maxRetries times.
func (c *Client) doRequest(ctx context.Context, method, reqURL string) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	var (
		body    []byte
		attempt int
	)
	operation := func() error {
		defer func() { attempt++ }()
		c.logger.Debug("API request", "method", method, "url", reqURL, "attempt", attempt)
		attemptStart := time.Now()

		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to execute request: %w", err))
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return backoff.Permanent(fmt.Errorf("failed to read response body: %w", readErr))
		}

		switch resp.StatusCode {
		case http.StatusOK:
			c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(attemptStart).Milliseconds())
			body = data
			return nil
		case http.StatusNotFound:
			return backoff.Permanent(casefile.ErrCaseNotFound)
		case http.StatusTooManyRequests:
			c.logger.Warn("rate limited", "attempt", attempt)
			return &RateLimitError{
				RetryAfter: c.initialBackoff << attempt,
				Message:    "case source rate limit exceeded",
			}
		default:
			c.logger.Error("API error", "status_code", resp.StatusCode)
			return backoff.Permanent(fmt.Errorf("case source API error: status %d, body: %s", resp.StatusCode, string(data)))
		}
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
	if err != nil {
		if IsRateLimitError(err) {
			c.logger.Error("rate limit exhausted", "attempts", attempt)
		}
		return nil, err
	}
	return body, nil
}

// RateLimitError represents a rate limit error from the case source
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is (or wraps) a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
