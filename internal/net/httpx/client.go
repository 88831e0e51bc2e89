// Package httpx is the shared outbound HTTP layer: per-call timeout,
// exponential-backoff retry for transient failures, and a per-provider
// circuit breaker so a dead upstream stops consuming the retry budget.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Config tunes the shared client. Zero values fall back to defaults.
type Config struct {
	RequestTimeout time.Duration // per-attempt timeout
	MaxAttempts    int           // total attempts including the first
	BackoffBase    time.Duration // delay before the first retry
	BackoffFactor  float64       // multiplier per retry
	UserAgent      string
}

// DefaultConfig matches the pipeline's provider contract: 15s per call,
// three attempts, 1s base backoff doubling per retry.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 15 * time.Second,
		MaxAttempts:    3,
		BackoffBase:    time.Second,
		BackoffFactor:  2.0,
		UserAgent:      "rugscan/1.0",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = def.BackoffBase
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	return c
}

// Client performs resilient JSON GETs on behalf of providers.
type Client struct {
	http     *http.Client
	config   Config
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a client with the given config.
func NewClient(config Config) *Client {
	config = config.withDefaults()
	return &Client{
		// No client-level timeout: each attempt carries its own
		// context deadline so retries get a fresh budget.
		http:     &http.Client{},
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// GetJSON fetches url and decodes the body into out. Failures surface as
// *NetworkError; transient ones are retried with exponential backoff up
// to the attempt cap. A non-429 4xx propagates without retry.
func (c *Client) GetJSON(ctx context.Context, provider, url string, out any) error {
	breaker := c.breaker(provider)

	_, err := breaker.Execute(func() (any, error) {
		return nil, c.getWithRetry(ctx, provider, url, out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &NetworkError{Provider: provider, URL: url, Err: err}
		}
		return err
	}
	return nil
}

func (c *Client) getWithRetry(ctx context.Context, provider, url string, out any) error {
	delay := c.config.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Debug().
				Str("provider", provider).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("retrying provider request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &NetworkError{Provider: provider, URL: url, Timeout: true, Err: ctx.Err()}
			}
			delay = time.Duration(float64(delay) * c.config.BackoffFactor)
		}

		err := c.getOnce(ctx, provider, url, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var ne *NetworkError
		if errors.As(err, &ne) && !ne.Retryable() {
			return err
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, provider, url string, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{Provider: provider, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded
		return &NetworkError{Provider: provider, URL: url, Timeout: timeout, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &NetworkError{Provider: provider, URL: url, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Provider: provider, URL: url,
			Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) breaker(provider string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[provider]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit state changed")
		},
	})
	c.breakers[provider] = b
	return b
}
