// Package ratelimit provides a token-bucket rate limiter for outbound
// HTTP+Script connector calls (spec.md 4.3), adapted from the service
// layer's infrastructure/ratelimit package.
package ratelimit

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config controls steady-state rate and burst allowance.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns sensible defaults for a single external endpoint.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 50, Burst: 100}
}

// Limiter wraps golang.org/x/time/rate.Limiter.
type Limiter struct {
	limiter *rate.Limiter
}

// New constructs a Limiter.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
}

// Allow reports whether a request may proceed immediately.
func (l *Limiter) Allow() bool { return l.limiter.Allow() }

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error { return l.limiter.Wait(ctx) }

// Client wraps an *http.Client with rate limiting applied before every Do.
type Client struct {
	http    *http.Client
	limiter *Limiter
}

// NewClient constructs a rate-limited HTTP client.
func NewClient(client *http.Client, cfg Config) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: client, limiter: New(cfg)}
}

// Do waits for a token (bounded by the request's context) then issues req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.http.Do(req)
}
