// Package googlebooks is a rate-limited Google Books volumes API client.
package googlebooks

import (
	"context"
	"errors"
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
const Source = "googlebooks"

const (
	defaultBaseURL = "https://www.googleapis.com/books/v1"
	defaultLimit   = 10

	// DefaultTimeout is shorter than the shared default; the volumes API
	// answers fast or not at all.
	DefaultTimeout = 5 * time.Second

	httpTimeout = 30 * time.Second
)

// ErrAPIKey reports a rejected or exhausted API key. The message is
// persisted verbatim into quarantine reasons, so it stays stable.
var ErrAPIKey = errors.New("API key invalid or quota exceeded")

// Config holds the client settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a rate-limited Google Books API client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.TokenBucket
	cfg     Config
	retry   metadata.RetryPolicy
	logger  *slog.Logger
}

// New creates a new Google Books client. A nil limiter disables waiting.
func New(cfg Config, limiter *ratelimit.TokenBucket, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
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

// Available reports whether the client holds an API key. The volumes API
// rejects anonymous search, so without a key the source is skipped.
func (c *Client) Available() bool {
	return c.cfg.APIKey != ""
}

// doRequest executes one rate-limited GET and maps the response status.
// The API key is appended here so callers and logs never see it.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if !c.Available() {
		return nil, ErrAPIKey
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	query.Set("key", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", metadata.UserAgent)

	c.logger.Debug("googlebooks request", "path", path)

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
	case resp.StatusCode == http.StatusForbidden:
		// Bad key or exhausted quota. Retrying burns quota for nothing.
		return nil, ErrAPIKey
	case resp.StatusCode == http.StatusTooManyRequests:
		after := metadata.RetryAfterSeconds(resp.Header.Get("Retry-After"), time.Minute)
		return nil, metadata.TransientAfter(metadata.ErrRateLimited, after)
	case resp.StatusCode >= 500:
		return nil, metadata.Transient(metadata.ErrServer)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
