// Package nbastats is the adapter for the stats.nba.com JSON API. Every
// endpoint returns domain types; the provider's tabular resultSets shape
// stays inside this package.
package nbastats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"hoopsight/internal/config"
	"hoopsight/internal/errors"
	"hoopsight/internal/retry"
)

const baseURL = "https://stats.nba.com/stats"

// The provider throttles and blocks clients that present a constant
// browser signature. Each request picks one of these at random.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:124.0) Gecko/20100101 Firefox/124.0",
}

// Client talks to the stats provider with retries, jittered backoff, and a
// circuit breaker so a blocked or degraded provider fails fast instead of
// hammering.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	policy     retry.Policy
	logger     *logrus.Logger
	baseURL    string
}

// NewClient builds a provider client from fetch settings.
func NewClient(cfg config.FetchConfig, logger *logrus.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nba-stats-api",
		MaxRequests: 3,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     logger,
		baseURL:    baseURL,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    cfg.MaxDelay,
			JitterFrac:  cfg.JitterFrac,
			Retryable: func(err error) bool {
				// An open breaker means the provider is down; retrying
				// inside the same call only burns the attempt budget.
				return err != gobreaker.ErrOpenState && err != gobreaker.ErrTooManyRequests
			},
		},
	}
}

// response is the provider's generic envelope: every endpoint returns one
// or more named tables, each a header list plus untyped rows.
type response struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// get fetches one endpoint and decodes the envelope. Retries wrap the
// breaker so a trip aborts the whole call chain promptly.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*response, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	var decoded *response
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		result, execErr := c.breaker.Execute(func() (any, error) {
			return c.fetch(ctx, reqURL)
		})
		if execErr != nil {
			c.logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"error":    execErr.Error(),
			}).Warn("Provider request failed")
			return execErr
		}
		decoded = result.(*response)
		return nil
	})
	if err != nil {
		return nil, errors.ExternalServiceError("nba-stats", err)
	}
	return decoded, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &decoded, nil
}

// table finds a named result set, falling back to the first table when the
// endpoint returns only one.
func (r *response) table(name string) (*resultSet, error) {
	for i := range r.ResultSets {
		if r.ResultSets[i].Name == name {
			return &r.ResultSets[i], nil
		}
	}
	if name == "" && len(r.ResultSets) > 0 {
		return &r.ResultSets[0], nil
	}
	return nil, errors.SchemaDrift(fmt.Sprintf("result set %q absent from response", name))
}

// column resolves a logical column to the first matching candidate header.
// No match is schema drift and carries the full header list.
func (rs *resultSet) column(candidates ...string) (int, error) {
	for _, cand := range candidates {
		for i, h := range rs.Headers {
			if h == cand {
				return i, nil
			}
		}
	}
	return 0, errors.SchemaDrift(fmt.Sprintf(
		"no column for any of %s; available columns: %s",
		strings.Join(candidates, ", "),
		strings.Join(rs.Headers, ", "),
	))
}

// Cell readers. The provider emits nulls freely; absent numerics become
// NaN so downstream math degrades instead of silently reading zeros.

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		return math.NaN()
	default:
		return math.NaN()
	}
}

func asInt(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
