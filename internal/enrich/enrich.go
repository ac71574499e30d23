// Package enrich runs the metadata pipeline for ingested books: local
// archive extraction, then a fallback chain of external sources that
// fills the gaps. The orchestrator owns the pending → enriched|quarantine
// transition; adapters never overwrite a field the book already has.
package enrich

import (
	"context"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
)

// Attempt records one source's try at enriching a book. Error carries the
// stable message used in quarantine reason synthesis.
type Attempt struct {
	Source        string
	Error         string
	FieldsUpdated []string
	Success       bool
}

// SourceAttempt is the slice element handed to Quarantine; it mirrors
// Attempt without the update bookkeeping.
type SourceAttempt struct {
	Source  string
	Error   string
	Success bool
}

// Outcome is the final pipeline result for one book.
type Outcome struct {
	Status        domain.BookStatus
	Source        string
	FailureReason string
}

// sourceAdapter is one external source wired into a fallback chain.
type sourceAdapter interface {
	Source() string
	Enrich(ctx context.Context, book *domain.Book) Attempt
}

// chainResult aggregates a chain run. Attempts lists every source tried,
// in order, including the successful one.
type chainResult struct {
	Source        string
	FieldsUpdated []string
	Attempts      []Attempt
	Success       bool
}

// chain tries its adapters in order until one succeeds.
type chain struct {
	adapters []sourceAdapter
}

// available reports whether the chain has any source to try. A chain with
// zero constructible sources is "unavailable": the orchestrator then lets
// local extraction alone count as enrichment.
func (c *chain) available() bool {
	return len(c.adapters) > 0
}

func (c *chain) run(ctx context.Context, book *domain.Book) chainResult {
	var result chainResult
	for _, adapter := range c.adapters {
		attempt := adapter.Enrich(ctx, book)
		result.Attempts = append(result.Attempts, attempt)
		if attempt.Success {
			result.Success = true
			result.Source = attempt.Source
			result.FieldsUpdated = attempt.FieldsUpdated
			return result
		}
	}
	return result
}

// attemptRecords converts chain attempts for quarantine synthesis.
func attemptRecords(attempts []Attempt) []SourceAttempt {
	if len(attempts) == 0 {
		return nil
	}
	records := make([]SourceAttempt, len(attempts))
	for i, a := range attempts {
		records[i] = SourceAttempt{Source: a.Source, Error: a.Error, Success: a.Success}
	}
	return records
}
