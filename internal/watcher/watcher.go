// Package watcher detects finished files landing in the library root. Two
// backends share the same settling and filtering rules: Linux inotify for
// production, an fsnotify fallback everywhere else.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

// Watcher monitors a directory tree for new library files.
type Watcher struct {
	backend WatcherBackend
	logger  *slog.Logger
}

// New creates a file watcher with the best backend for the platform:
// inotify with IN_CLOSE_WRITE on Linux, fsnotify elsewhere.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	var backend WatcherBackend
	var err error

	if runtime.GOOS == "linux" {
		backend, err = newLinuxBackend(logger, opts)
		logger.Info("using Linux inotify backend with IN_CLOSE_WRITE")
	} else {
		backend, err = newFallbackBackend(logger, opts)
		logger.Info("using fsnotify fallback backend", "platform", runtime.GOOS)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	return &Watcher{
		backend: backend,
		logger:  logger,
	}, nil
}

// Watch adds a path to be monitored. Directories are watched recursively.
func (w *Watcher) Watch(path string) error {
	return w.backend.Watch(path)
}

// Start begins watching for events. Blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving file system events.
func (w *Watcher) Events() <-chan Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
