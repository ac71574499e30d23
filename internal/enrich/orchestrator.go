package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/media/covers"
	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/googlebooks"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mal"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mangadex"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
)

// Deps bundles everything the orchestrator wires together. Nil clients
// are left out of their chain; Google Books and MyAnimeList additionally
// drop out when their credentials are missing.
type Deps struct {
	Store       *store.Store
	Emitter     events.Emitter
	Images      *images.Storage
	Processor   *images.Processor
	Covers      *covers.Downloader
	OpenLibrary *openlibrary.Client
	GoogleBooks *googlebooks.Client
	AniList     *anilist.Client
	MAL         *mal.Client
	MangaDex    *mangadex.Client
	Logger      *slog.Logger
}

// Orchestrator drives a book through local extraction and the external
// source chain for its content type, and settles it in the enriched or
// quarantine state.
type Orchestrator struct {
	core      *adapterCore
	extractor *localExtractor
	ebook     chain
	manga     chain
	logger    *slog.Logger
}

func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	core := &adapterCore{
		store:   deps.Store,
		emitter: deps.Emitter,
		covers:  deps.Covers,
		images:  deps.Images,
		logger:  logger,
	}
	o := &Orchestrator{
		core:      core,
		extractor: &localExtractor{adapterCore: core, processor: deps.Processor},
		logger:    logger,
	}

	if deps.OpenLibrary != nil {
		o.ebook.adapters = append(o.ebook.adapters, &openLibraryAdapter{adapterCore: core, client: deps.OpenLibrary})
	}
	if deps.GoogleBooks != nil && deps.GoogleBooks.Available() {
		o.ebook.adapters = append(o.ebook.adapters, &googleBooksAdapter{adapterCore: core, client: deps.GoogleBooks})
	}
	if deps.AniList != nil {
		o.manga.adapters = append(o.manga.adapters, &aniListAdapter{adapterCore: core, client: deps.AniList})
	}
	if deps.MAL != nil && deps.MAL.Available() {
		o.manga.adapters = append(o.manga.adapters, &malAdapter{adapterCore: core, client: deps.MAL})
	}
	if deps.MangaDex != nil {
		o.manga.adapters = append(o.manga.adapters, &mangaDexAdapter{adapterCore: core, client: deps.MangaDex})
	}
	return o
}

func (o *Orchestrator) chainFor(contentType domain.ContentType) *chain {
	if contentType == domain.ContentTypeManga {
		return &o.manga
	}
	return &o.ebook
}

// Enrich runs the full pipeline for one pending book. Books already past
// pending are returned untouched. A panic anywhere in the pipeline
// quarantines the book with the panic message as reason.
func (o *Orchestrator) Enrich(ctx context.Context, bookID int64) (outcome *Outcome, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		reason := fmt.Sprintf("panic: %v", r)
		o.logger.Error("enrichment panicked", "book_id", bookID, "panic", r)
		if qerr := o.Quarantine(ctx, bookID, reason, nil); qerr != nil {
			o.logger.Error("quarantine after panic failed", "book_id", bookID, "error", qerr)
		}
		outcome = &Outcome{Status: domain.StatusQuarantine, FailureReason: reason}
		err = nil
	}()

	book, err := o.core.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("load book %d: %w", bookID, err)
	}
	if !book.IsPending() {
		o.logger.Debug("enrichment skipped, book not pending",
			"book_id", bookID,
			"status", book.Status,
		)
		return &Outcome{Status: book.Status}, nil
	}

	o.core.emitter.Emit(events.NewEnrichmentStartedEvent(book.ID, book.Filename, string(book.ContentType)))
	startStep := events.StepPipelineStarted
	if book.ContentType == domain.ContentTypeManga {
		startStep = events.StepMangaPipelineStarted
	}
	o.core.progress(book.ID, startStep, nil)

	localOK := o.extractor.Extract(ctx, book)

	// Reload so the chain sees what extraction filled in and leaves those
	// fields alone.
	book, err = o.core.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("reload book %d: %w", bookID, err)
	}

	ch := o.chainFor(book.ContentType)
	if !ch.available() {
		return o.settleWithoutSources(ctx, book, localOK)
	}

	result := ch.run(ctx, book)
	if result.Success {
		title := book.DisplayTitle()
		if updated, err := o.core.store.GetBook(ctx, bookID); err == nil {
			title = updated.DisplayTitle()
		}
		o.core.emitter.Emit(events.NewEnrichmentCompletedEvent(bookID, title, result.Source))
		o.logger.Info("book enriched",
			"book_id", bookID,
			"source", result.Source,
			"fields_updated", result.FieldsUpdated,
		)
		return &Outcome{Status: domain.StatusEnriched, Source: result.Source}, nil
	}

	attempts := attemptRecords(result.Attempts)
	reason := SynthesizeReason(attempts)
	if err := o.Quarantine(ctx, bookID, reason, attempts); err != nil {
		return nil, err
	}
	return &Outcome{Status: domain.StatusQuarantine, FailureReason: reason}, nil
}

// settleWithoutSources finishes a book whose chain has no adapters at
// all. Local extraction alone is then good enough to count as enriched.
func (o *Orchestrator) settleWithoutSources(ctx context.Context, book *domain.Book, localOK bool) (*Outcome, error) {
	if localOK {
		if _, err := o.core.store.UpdateBook(ctx, book.ID, domain.StatusPatch(domain.StatusEnriched)); err != nil {
			return nil, fmt.Errorf("mark enriched %d: %w", book.ID, err)
		}
		o.core.emitter.Emit(events.NewEnrichmentCompletedEvent(book.ID, book.DisplayTitle(), ""))
		o.logger.Info("book enriched from file metadata only", "book_id", book.ID)
		return &Outcome{Status: domain.StatusEnriched, Source: localSource}, nil
	}

	reason := SynthesizeReason(nil)
	if err := o.Quarantine(ctx, book.ID, reason, nil); err != nil {
		return nil, err
	}
	return &Outcome{Status: domain.StatusQuarantine, FailureReason: reason}, nil
}
