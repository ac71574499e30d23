// Package di provides dependency injection configuration for the InkShelf server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/config"
	"github.com/inkshelfapp/inkshelf-server/internal/di/providers"
	"github.com/inkshelfapp/inkshelf-server/internal/enrich"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/internal/media/covers"
	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/googlebooks"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mal"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mangadex"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
	"github.com/inkshelfapp/inkshelf-server/internal/ratelimit"
	"github.com/inkshelfapp/inkshelf-server/internal/scanner"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Events and persistence
	do.Provide(injector, providers.ProvideBus)
	do.Provide(injector, providers.ProvideStore)

	// Media layer
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideImageProcessor)
	do.Provide(injector, providers.ProvideCoverDownloader)

	// External metadata sources
	do.Provide(injector, providers.ProvideRateLimits)
	do.Provide(injector, providers.ProvideOpenLibraryClient)
	do.Provide(injector, providers.ProvideGoogleBooksClient)
	do.Provide(injector, providers.ProvideAniListClient)
	do.Provide(injector, providers.ProvideMALClient)
	do.Provide(injector, providers.ProvideMangaDexClient)

	// Ingestion pipeline
	do.Provide(injector, providers.ProvideOrchestrator)
	do.Provide(injector, providers.ProvideProcessor)
	do.Provide(injector, providers.ProvideScanner)
	do.Provide(injector, providers.ProvideFileWatcher)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.BusHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*images.Processor](injector)
	_ = do.MustInvoke[*covers.Downloader](injector)

	// External metadata sources
	_ = do.MustInvoke[*ratelimit.Registry](injector)
	_ = do.MustInvoke[*openlibrary.Client](injector)
	_ = do.MustInvoke[*googlebooks.Client](injector)
	_ = do.MustInvoke[*anilist.Client](injector)
	_ = do.MustInvoke[*mal.Client](injector)
	_ = do.MustInvoke[*mangadex.Client](injector)

	// Ingestion pipeline
	_ = do.MustInvoke[*enrich.Orchestrator](injector)
	_ = do.MustInvoke[*providers.ProcessorHandle](injector)
	_ = do.MustInvoke[*scanner.Scanner](injector)
	_ = do.MustInvoke[*providers.FileWatcherHandle](injector)

	// Reconcile the library on disk with the store once the watcher is up
	cfg := do.MustInvoke[*config.Config](injector)
	if cfg.Scanner.ScanOnStart {
		go providers.RunStartupScan(injector)
	}

	return nil
}
