package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/config"
	"github.com/inkshelfapp/inkshelf-server/internal/enrich"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/internal/media/covers"
	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/googlebooks"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mal"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mangadex"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
	"github.com/inkshelfapp/inkshelf-server/internal/processor"
	"github.com/inkshelfapp/inkshelf-server/internal/scanner"
	"github.com/inkshelfapp/inkshelf-server/internal/watcher"
)

// ProvideOrchestrator provides the enrichment orchestrator.
func ProvideOrchestrator(i do.Injector) (*enrich.Orchestrator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	imageStorage := do.MustInvoke[*images.Storage](i)
	imageProcessor := do.MustInvoke[*images.Processor](i)
	coverDownloader := do.MustInvoke[*covers.Downloader](i)
	log := do.MustInvoke[*logger.Logger](i)

	return enrich.New(enrich.Deps{
		Store:       storeHandle.Store,
		Emitter:     busHandle.Bus,
		Images:      imageStorage,
		Processor:   imageProcessor,
		Covers:      coverDownloader,
		OpenLibrary: do.MustInvoke[*openlibrary.Client](i),
		GoogleBooks: do.MustInvoke[*googlebooks.Client](i),
		AniList:     do.MustInvoke[*anilist.Client](i),
		MAL:         do.MustInvoke[*mal.Client](i),
		MangaDex:    do.MustInvoke[*mangadex.Client](i),
		Logger:      log.Logger,
	}), nil
}

// ProcessorHandle wraps the processor so shutdown drains in-flight enrichment.
type ProcessorHandle struct {
	*processor.Processor
}

// Shutdown implements do.Shutdownable.
func (h *ProcessorHandle) Shutdown() error {
	h.Wait()
	return nil
}

// ProvideProcessor provides the file event processor.
func ProvideProcessor(i do.Injector) (*ProcessorHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	orchestrator := do.MustInvoke[*enrich.Orchestrator](i)
	log := do.MustInvoke[*logger.Logger](i)

	proc := processor.New(storeHandle.Store, orchestrator, busHandle.Bus, log.Logger)

	return &ProcessorHandle{Processor: proc}, nil
}

// ProvideScanner provides the on-demand library scanner.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	procHandle := do.MustInvoke[*ProcessorHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	s := scanner.New(storeHandle.Store, procHandle.Processor, busHandle.Bus,
		cfg.Library.WatchDir, watcherOptions(cfg), log.Logger)

	return s, nil
}

// FileWatcherHandle wraps the file watcher with shutdown capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher provides the file system watcher feeding the processor.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	procHandle := do.MustInvoke[*ProcessorHandle](i)

	w, err := watcher.New(log.Logger, watcherOptions(cfg))
	if err != nil {
		return nil, err
	}

	if err := w.Watch(cfg.Library.WatchDir); err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	// Feed settled file events to the processor
	go func() {
		for {
			select {
			case event := <-w.Events():
				result := procHandle.Process(ctx, event)
				if result.Action == processor.ActionFailed {
					log.Warn("file rejected",
						"path", event.Path,
						"reason", result.Reason,
					)
				}
			case err := <-w.Errors():
				log.Warn("file watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("File watcher started", "path", cfg.Library.WatchDir)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}

// RunStartupScan reconciles the library against the store once at boot.
// Should be called after all dependencies are wired.
func RunStartupScan(i do.Injector) {
	fileScanner := do.MustInvoke[*scanner.Scanner](i)
	log := do.MustInvoke[*logger.Logger](i)

	log.Info("Running startup scan")

	if _, err := fileScanner.Scan(context.Background()); err != nil {
		log.Error("Startup scan failed", "error", err)
	}
}

// watcherOptions builds the shared filter options, so live watching and
// scans agree on what counts as a library file.
func watcherOptions(cfg *config.Config) watcher.Options {
	return watcher.Options{
		SettleDelay:  cfg.Watcher.SettleDelay(),
		IgnoreHidden: true,
	}
}
