// Package metadata holds what the external source clients share: sentinel
// errors, the retry loop, and HTML stripping for descriptions.
//
// Each source lives in its own subpackage (openlibrary, googlebooks,
// anilist, mal, mangadex) with the same shape: a Client carrying an HTTP
// client, a rate-limit bucket, a Config, and a logger; Search methods
// returning raw API rows; and mapping helpers from raw rows to
// domain.Metadata.
package metadata

import (
	"errors"
	"time"
)

// UserAgent identifies outbound requests. Several sources (OpenLibrary,
// MangaDex) ask for a contactable User-Agent.
const UserAgent = "InkShelf/1.0 (+https://github.com/inkshelfapp/inkshelf-server)"

// Defaults shared by the clients. Individual clients override where their
// API demands it.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
)

// Sentinel errors for source API operations. Clients map HTTP statuses
// onto these; adapters translate them into attempt records.
var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited by server")
	ErrAuth        = errors.New("authentication rejected")
	ErrForbidden   = errors.New("forbidden")
	ErrServer      = errors.New("server error")

	// ErrTimeout is returned when every attempt ran out of its deadline.
	// Its message is persisted verbatim in quarantine reasons.
	ErrTimeout = errors.New("API timeout")
)

// RetryableError marks an attempt error as transient so the retry loop
// tries again. RetryAfter, when positive, overrides the exponential step
// (server-provided Retry-After).
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable with exponential backoff.
func Transient(err error) error {
	return &RetryableError{Err: err}
}

// TransientAfter wraps err as retryable with an explicit wait before the
// next attempt.
func TransientAfter(err error, after time.Duration) error {
	return &RetryableError{Err: err, RetryAfter: after}
}
