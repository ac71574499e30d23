// Package scanner walks the library root on demand and feeds files the
// store does not know yet to the processor. It applies the same filters as
// the watcher, so a scan and live watching agree on what counts.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	domainerrors "github.com/inkshelfapp/inkshelf-server/internal/errors"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/id"
	"github.com/inkshelfapp/inkshelf-server/internal/processor"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
	"github.com/inkshelfapp/inkshelf-server/internal/watcher"
)

// Report summarizes one finished scan. It mirrors the scan.completed
// payload; Duration is wall-clock time.
type Report struct {
	FilesFound     int
	FilesProcessed int
	FilesSkipped   int
	Errors         int
	Duration       time.Duration
}

// Scanner performs one-shot traversals of the library root. Scans never
// overlap: a second Scan while one runs fails with ErrScanInProgress.
type Scanner struct {
	store     *store.Store
	processor *processor.Processor
	emitter   events.Emitter
	logger    *slog.Logger

	root string
	opts watcher.Options

	mu       sync.Mutex
	scanning bool
}

// New creates a Scanner rooted at the watch directory. The watcher Options
// decide which files count, exactly as they do for live detection.
func New(st *store.Store, proc *processor.Processor, emitter events.Emitter, root string, opts watcher.Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:     st,
		processor: proc,
		emitter:   emitter,
		logger:    logger,
		root:      root,
		opts:      opts.WithDefaults(),
	}
}

// Scan walks the root once, skips files already in the library, and hands
// the rest to the processor sequentially. The terminal scan.completed event
// carries the same counters as the returned Report.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	if !s.tryLock() {
		return nil, domainerrors.ErrScanInProgress
	}
	defer s.unlock()

	session, err := id.Generate("scan")
	if err != nil {
		return nil, fmt.Errorf("generate scan id: %w", err)
	}
	log := s.logger.With("scanId", session)

	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("scan root not accessible: %w", err)
	}

	start := time.Now()
	log.Info("scan started", "root", s.root)

	report := &Report{}

	paths, walkErrors := s.collect(ctx, log)
	report.FilesFound = len(paths)
	report.Errors = walkErrors

	known, err := s.store.PathsKnown(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("check known paths: %w", err)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if known[path] {
			log.Debug("already in library, skipping", "path", path)
			report.FilesSkipped++
			continue
		}

		result := s.processor.Process(ctx, watcher.Event{Type: watcher.EventAdded, Path: path})
		switch result.Action {
		case processor.ActionCreated:
			report.FilesProcessed++
		case processor.ActionSkipped:
			report.FilesSkipped++
		case processor.ActionFailed:
			log.Warn("file rejected during scan", "path", path, "reason", result.Reason)
			report.Errors++
		}
	}

	report.Duration = time.Since(start)

	s.emitter.Emit(events.NewScanCompletedEvent(
		report.FilesFound,
		report.FilesProcessed,
		report.FilesSkipped,
		report.Errors,
		report.Duration,
	))

	log.Info("scan completed",
		"filesFound", report.FilesFound,
		"filesProcessed", report.FilesProcessed,
		"filesSkipped", report.FilesSkipped,
		"errors", report.Errors,
		"duration", report.Duration,
	)

	return report, nil
}

// collect walks the root and returns every supported file path in walk
// order, plus the number of directory read errors hit on the way.
func (s *Scanner) collect(ctx context.Context, log *slog.Logger) ([]string, int) {
	var paths []string
	errorCount := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// Unreadable entries are logged and skipped; the scan goes on.
			log.Warn("walk error", "path", path, "error", err)
			errorCount++
			return nil
		}

		if s.opts.ShouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !s.opts.AllowedFile(path) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		log.Warn("walk aborted", "error", err)
	}

	return paths, errorCount
}

// tryLock claims the scan lock. False means a scan is already running.
func (s *Scanner) tryLock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return false
	}
	s.scanning = true
	return true
}

// unlock releases the scan lock. Deferred in Scan, so every exit path,
// panics included, releases it.
func (s *Scanner) unlock() {
	s.mu.Lock()
	s.scanning = false
	s.mu.Unlock()
}
