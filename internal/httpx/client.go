// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpx provides the retrying HTTP client shared by the
// Tool-Protocol client, the A2A client, and the LLM client: exponential
// backoff with jitter, a bounded attempt budget, and context-aware
// cancellation.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Strategy decides whether (and how) a failed attempt should be retried.
type Strategy int

const (
	NoRetry Strategy = iota
	Retry
)

// StrategyFunc classifies a response status code / transport error into a
// Strategy. The default treats network errors and 5xx/429 as retryable.
type StrategyFunc func(statusCode int, err error) Strategy

// Client wraps *http.Client with bounded exponential-backoff retry.
type Client struct {
	HTTP       *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64 // fraction of delay, e.g. 0.2 for ±20%
	Strategy   StrategyFunc
	Logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }
func WithMaxRetries(n int) Option          { return func(c *Client) { c.MaxRetries = n } }
func WithBaseDelay(d time.Duration) Option { return func(c *Client) { c.BaseDelay = d } }
func WithMaxDelay(d time.Duration) Option  { return func(c *Client) { c.MaxDelay = d } }
func WithJitter(frac float64) Option       { return func(c *Client) { c.Jitter = frac } }
func WithStrategy(f StrategyFunc) Option   { return func(c *Client) { c.Strategy = f } }
func WithLogger(l *slog.Logger) Option     { return func(c *Client) { c.Logger = l } }

// New creates a Client. Defaults match the Tool-Protocol retry contract:
// base 200ms, factor 2, jitter ±20%, at most 3 attempts total (2 retries).
func New(opts ...Option) *Client {
	c := &Client{
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Jitter:     0.2,
		Strategy:   DefaultStrategy,
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultStrategy retries network errors and 429/5xx responses.
func DefaultStrategy(statusCode int, err error) Strategy {
	if err != nil {
		return Retry
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return Retry
	case statusCode >= 500:
		return Retry
	default:
		return NoRetry
	}
}

// Do executes req with retry. The request's context governs overall
// cancellation; each retry re-sends the (replayable) body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: read request body: %w", err)
		}
		req.Body.Close()
	}

	var lastErr error
	var lastResp *http.Response
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.HTTP.Do(req)
		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		strategy := c.Strategy(statusCode, err)

		if err == nil && strategy == NoRetry {
			return resp, nil
		}
		if err == nil && statusCode > 0 && statusCode < 300 {
			return resp, nil
		}

		lastErr = err
		lastResp = resp
		if strategy == NoRetry || attempt >= c.MaxRetries {
			break
		}

		delay := c.delay(attempt)
		c.Logger.Log(req.Context(), slog.LevelWarn, "http retry",
			"component", "httpx", "url", req.URL.String(), "attempt", attempt+1,
			"max_attempts", c.MaxRetries+1, "delay", delay, "status", statusCode)

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		return lastResp, fmt.Errorf("httpx: request failed after %d attempts: %w", c.MaxRetries+1, lastErr)
	}
	return lastResp, fmt.Errorf("httpx: request failed after %d attempts: status %d", c.MaxRetries+1, lastResp.StatusCode)
}

func (c *Client) delay(attempt int) time.Duration {
	base := float64(c.BaseDelay) * math.Pow(2, float64(attempt))
	jitter := (rand.Float64()*2 - 1) * c.Jitter * base
	d := time.Duration(base + jitter)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// DoContext is a convenience for callers building a request from scratch.
func (c *Client) DoContext(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
