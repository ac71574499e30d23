// Package processor turns detected files into pending library rows and
// launches the enrichment pipeline for each accepted one.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/enrich"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
	"github.com/inkshelfapp/inkshelf-server/internal/util"
	"github.com/inkshelfapp/inkshelf-server/internal/watcher"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile/comic"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile/epub"
)

// Action is the outcome class of one Process call.
type Action string

// Process outcomes.
const (
	// ActionCreated means a pending row was created and the pipeline launched.
	ActionCreated Action = "created"
	// ActionSkipped means the file is already known (or already being
	// processed) and nothing changed.
	ActionSkipped Action = "skipped"
	// ActionFailed means validation or persistence rejected the file; no row
	// was created.
	ActionFailed Action = "failed"
)

// Result reports what Process did with one detected file. Reason is set for
// skipped and failed outcomes; for validation failures it carries the
// validator's reason verbatim.
type Result struct {
	Action Action
	Reason string
	BookID int64
}

// Enricher runs the extract-and-enrich pipeline for a created book. The
// orchestrator in internal/enrich satisfies this.
type Enricher interface {
	Enrich(ctx context.Context, bookID int64) (*enrich.Outcome, error)
}

// Processor is the entry point for every detected file, whether it came from
// the watcher or from a scan.
//
// Processing is idempotent: re-detections of a known path are skipped, and a
// per-path in-flight guard keeps two concurrent calls on the same path from
// double-creating a row.
type Processor struct {
	store    *store.Store
	enricher Enricher
	emitter  events.Emitter
	logger   *slog.Logger

	// inflight holds a mutex per file path. TryLock, never Lock: a second
	// event for a path mid-process is dropped, not queued.
	inflight *SyncMap[string, *sync.Mutex]

	wg sync.WaitGroup
}

// New creates a Processor.
func New(st *store.Store, enricher Enricher, emitter events.Emitter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:    st,
		enricher: enricher,
		emitter:  emitter,
		logger:   logger,
		inflight: NewSyncMap[string, *sync.Mutex](),
	}
}

// Process handles one detected file:
//
//  1. Dedupe by file path; known paths are skipped with no side effects.
//  2. Validate the archive structure for its extension; failures return the
//     validator reason and create nothing.
//  3. Create a pending row with a title derived from the filename.
//  4. Launch the enrichment pipeline in the background; its failures are
//     reported through events and persisted status, never through Process.
//  5. Emit file.detected.
func (p *Processor) Process(ctx context.Context, event watcher.Event) Result {
	p.logger.Debug("processing file event",
		"type", event.Type.String(),
		"path", event.Path,
	)

	// Library deletion is out of pipeline scope; rows are never removed on
	// file removal.
	if event.Type == watcher.EventRemoved {
		return Result{Action: ActionSkipped, Reason: "removals are not processed"}
	}

	lock := p.pathLock(event.Path)
	if !lock.TryLock() {
		p.logger.Debug("file already being processed, skipping", "path", event.Path)
		return Result{Action: ActionSkipped, Reason: "already being processed"}
	}
	defer lock.Unlock()

	exists, err := p.store.BookExistsByPath(ctx, event.Path)
	if err != nil {
		p.logger.Error("library lookup failed", "path", event.Path, "error", err)
		return Result{Action: ActionFailed, Reason: fmt.Sprintf("library lookup: %v", err)}
	}
	if exists {
		p.logger.Debug("file already in library, skipping", "path", event.Path)
		return Result{Action: ActionSkipped, Reason: "already in library"}
	}

	validation, err := validateFile(event.Path)
	if err != nil {
		p.logger.Error("validation error", "path", event.Path, "error", err)
		return Result{Action: ActionFailed, Reason: fmt.Sprintf("validate: %v", err)}
	}
	if !validation.Valid {
		p.logger.Info("file failed validation",
			"path", event.Path,
			"reason", validation.Reason,
		)
		return Result{Action: ActionFailed, Reason: validation.Reason}
	}

	title := util.TitleFromFilename(event.Path)
	book, ok := domain.NewBook(event.Path, title)
	if !ok {
		return Result{Action: ActionFailed, Reason: unsupportedReason(event.Path)}
	}

	if err := p.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrBookExists) {
			p.logger.Debug("file already in library, skipping", "path", event.Path)
			return Result{Action: ActionSkipped, Reason: "already in library"}
		}
		p.logger.Error("failed to create book", "path", event.Path, "error", err)
		return Result{Action: ActionFailed, Reason: fmt.Sprintf("create book: %v", err)}
	}

	p.launchPipeline(ctx, book.ID)

	p.emitter.Emit(events.NewFileDetectedEvent(book.ID, book.Filename, string(book.ContentType)))
	p.logger.Info("book created",
		"bookId", book.ID,
		"title", title,
		"contentType", string(book.ContentType),
	)

	return Result{Action: ActionCreated, BookID: book.ID}
}

// Wait blocks until every background pipeline launched by Process has
// finished. Called on shutdown, and by tests that assert pipeline effects.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// launchPipeline starts enrichment for a freshly created book. The pipeline
// outlives the event that triggered it, so it detaches from the caller's
// cancellation.
func (p *Processor) launchPipeline(ctx context.Context, bookID int64) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.enricher.Enrich(ctx, bookID); err != nil {
			p.logger.Error("background enrichment failed", "bookId", bookID, "error", err)
		}
	}()
}

// pathLock gets or creates the in-flight mutex for a path. LoadOrStore
// settles the race when two goroutines see the same new path at once.
func (p *Processor) pathLock(path string) *sync.Mutex {
	if lock, ok := p.inflight.Load(path); ok {
		return lock
	}
	actual, _ := p.inflight.LoadOrStore(path, &sync.Mutex{})
	return actual
}

// validateFile runs the structural validator for the file's extension.
func validateFile(path string) (*bookfile.Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return epub.Validate(path)
	case ".cbz":
		return comic.ValidateCBZ(path)
	case ".cbr":
		return comic.ValidateCBR(path)
	default:
		return bookfile.Invalid(unsupportedReason(path)), nil
	}
}

// unsupportedReason names the rejected extension. The watcher and scanner
// filter extensions up front, so this only fires on direct Process calls.
func unsupportedReason(path string) string {
	return "Unsupported file extension: " + filepath.Ext(path)
}
