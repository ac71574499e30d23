// Package mal is a rate-limited MyAnimeList API client.
package mal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
	"github.com/inkshelfapp/inkshelf-server/internal/ratelimit"
)

// Source is the stable identifier used in events and quarantine reasons.
const Source = "mal"

const (
	defaultBaseURL = "https://api.myanimelist.net/v2"
	defaultLimit   = 10

	httpTimeout = 30 * time.Second
)

// searchFields trims the manga payload to the columns the pipeline maps.
const searchFields = "id,title,alternative_titles,synopsis,genres,authors{first_name,last_name},start_date,media_type,main_picture"

// Config holds the client settings.
type Config struct {
	BaseURL    string
	ClientID   string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a rate-limited MyAnimeList API client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.TokenBucket
	cfg     Config
	retry   metadata.RetryPolicy
	logger  *slog.Logger
}

// New creates a new MyAnimeList client. A nil limiter disables waiting.
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

// Available reports whether the client holds an API client id. The manga
// endpoints reject anonymous requests, so without one the source is
// skipped.
func (c *Client) Available() bool {
	return c.cfg.ClientID != ""
}

// doRequest executes one rate-limited GET and maps the response status.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if !c.Available() {
		return nil, metadata.ErrAuth
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", metadata.UserAgent)
	req.Header.Set("X-MAL-CLIENT-ID", c.cfg.ClientID)

	c.logger.Debug("mal request", "path", path)

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
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		// A rejected client id will stay rejected; do not retry.
		return nil, metadata.ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		after := metadata.RetryAfterSeconds(resp.Header.Get("Retry-After"), time.Minute)
		return nil, metadata.TransientAfter(metadata.ErrRateLimited, after)
	case resp.StatusCode >= 500:
		return nil, metadata.Transient(metadata.ErrServer)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
