// Package openlibrary is a rate-limited OpenLibrary search client.
package openlibrary

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
const Source = "openlibrary"

const (
	defaultBaseURL      = "https://openlibrary.org"
	defaultCoverBaseURL = "https://covers.openlibrary.org"
	defaultLimit        = 10

	// httpTimeout is a hard cap; the per-attempt deadline comes from
	// Config.Timeout via the retry loop.
	httpTimeout = 30 * time.Second
)

// searchFields keeps the search payload to the columns the pipeline maps.
const searchFields = "key,title,author_name,first_publish_year,isbn,publisher,language,subject,cover_i"

// Config holds the client settings.
type Config struct {
	BaseURL      string
	CoverBaseURL string
	Timeout      time.Duration
	MaxRetries   int
}

// Client is a rate-limited OpenLibrary API client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.TokenBucket
	cfg     Config
	retry   metadata.RetryPolicy
	logger  *slog.Logger
}

// New creates a new OpenLibrary client. A nil limiter disables waiting.
func New(cfg Config, limiter *ratelimit.TokenBucket, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CoverBaseURL == "" {
		cfg.CoverBaseURL = defaultCoverBaseURL
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

// CoverURL builds the large cover image URL for a doc, or "" when the doc
// carries no cover reference.
func (c *Client) CoverURL(doc *Doc) string {
	if doc == nil || doc.CoverID <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/b/id/%d-L.jpg", c.cfg.CoverBaseURL, doc.CoverID)
}

// doRequest executes one rate-limited GET and maps the response status.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
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

	c.logger.Debug("openlibrary request", "path", path)

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
		after := metadata.RetryAfterSeconds(resp.Header.Get("Retry-After"), time.Minute)
		return nil, metadata.TransientAfter(metadata.ErrRateLimited, after)
	case resp.StatusCode >= 500:
		return nil, metadata.Transient(metadata.ErrServer)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
