// Package anilist is a rate-limited AniList GraphQL client.
package anilist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
	"github.com/inkshelfapp/inkshelf-server/internal/ratelimit"
)

// Source is the stable identifier used in events and quarantine reasons.
const Source = "anilist"

const (
	defaultBaseURL = "https://graphql.anilist.co"
	defaultLimit   = 10

	httpTimeout = 30 * time.Second
)

// Config holds the client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a rate-limited AniList API client. All calls go through a
// single POST endpoint carrying a GraphQL document.
type Client struct {
	http    *http.Client
	limiter *ratelimit.TokenBucket
	cfg     Config
	retry   metadata.RetryPolicy
	logger  *slog.Logger
}

// New creates a new AniList client. A nil limiter disables waiting.
func New(cfg Config, limiter *ratelimit.TokenBucket, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = metadata.DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = metadata.DefaultMaxRetries
	}

	return &Client{
		http: &http.Client{
			Timeout: httpTimeout,
		},
		limiter: limiter,
		cfg:     cfg,
		retry: metadata.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
		},
		logger: logger,
	}
}

// doRequest executes one rate-limited GraphQL POST and maps the response
// status. GraphQL-level errors are handled by the caller, which sees the
// raw body on any 200.
func (c *Client) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", metadata.UserAgent)

	c.logger.Debug("anilist request", "bytes", len(payload))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, metadata.Transient(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, metadata.Transient(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, metadata.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		// Without Retry-After the exponential step applies, not the
		// fixed REST fallback.
		after := metadata.RetryAfterSeconds(resp.Header.Get("Retry-After"), 0)
		return nil, metadata.TransientAfter(metadata.ErrRateLimited, after)
	case resp.StatusCode >= 500:
		return nil, metadata.Transient(metadata.ErrServer)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
