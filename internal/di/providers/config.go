// Package providers contains dependency injection providers for the InkShelf server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/config"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting InkShelf Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"watch_dir", cfg.Library.WatchDir,
		"data_dir", cfg.Storage.DataDir,
	)

	return log, nil
}
