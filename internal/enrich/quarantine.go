package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/googlebooks"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mal"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mangadex"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
)

// DisplayName maps a source identifier to the name shown in failure
// reasons. Unknown identifiers pass through.
func DisplayName(source string) string {
	switch source {
	case openlibrary.Source:
		return "OpenLibrary"
	case googlebooks.Source:
		return "Google Books"
	case anilist.Source:
		return "AniList"
	case mal.Source:
		return "MyAnimeList"
	case mangadex.Source:
		return "MangaDex"
	}
	return source
}

// SynthesizeReason builds a quarantine failure_reason out of the attempts
// a chain made. The strings are stable: operators filter their quarantine
// view on them.
func SynthesizeReason(attempts []SourceAttempt) string {
	if len(attempts) == 0 {
		return "No enrichment sources available"
	}

	timeoutMsg := metadata.ErrTimeout.Error()
	allTimedOut := true
	for _, a := range attempts {
		if a.Error != timeoutMsg {
			allTimedOut = false
			break
		}
	}
	if allTimedOut {
		names := make([]string, len(attempts))
		for i, a := range attempts {
			names[i] = DisplayName(a.Source)
		}
		return fmt.Sprintf("API timeout on all sources (%s)", strings.Join(names, ", "))
	}

	parts := make([]string, len(attempts))
	for i, a := range attempts {
		msg := a.Error
		if msg == "" {
			msg = "Unknown error"
		}
		parts[i] = a.Source + ": " + msg
	}
	return strings.Join(parts, ". ")
}

// Quarantine moves a book into the quarantine state with the given reason
// and broadcasts enrichment.failed. The transition is one-way; nothing in
// the pipeline moves a book back out.
func (o *Orchestrator) Quarantine(ctx context.Context, bookID int64, reason string, attempted []SourceAttempt) error {
	book, err := o.core.store.UpdateBook(ctx, bookID, domain.QuarantinePatch(reason))
	if err != nil {
		return fmt.Errorf("quarantine book %d: %w", bookID, err)
	}

	sources := make([]string, len(attempted))
	for i, a := range attempted {
		sources[i] = a.Source
	}
	o.core.emitter.Emit(events.NewEnrichmentFailedEvent(bookID, reason, string(book.ContentType), sources))
	o.core.logger.Warn("book quarantined",
		"book_id", bookID,
		"reason", reason,
		"sources_attempted", sources,
	)
	return nil
}
