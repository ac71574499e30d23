//go:build !linux

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fallbackBackend implements WatcherBackend using fsnotify. Write and create
// notifications feed the settler, which emits the detection once the file
// stops growing.
type fallbackBackend struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher
	settler *settler

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// newFallbackBackend creates a fallback backend using fsnotify.
func newFallbackBackend(logger *slog.Logger, opts Options) (*fallbackBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	b := &fallbackBackend{
		logger:  logger,
		opts:    opts,
		watcher: watcher,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}
	b.settler = newSettler(opts.SettleDelay, b.emitEvent, logger)
	return b, nil
}

// Watch adds a path to be monitored.
func (b *fallbackBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return b.watchDir(path)
	}
	return b.watchFile(path)
}

// watchDir recursively watches a directory.
func (b *fallbackBackend) watchDir(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			b.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}

		if b.opts.ShouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := b.watcher.Add(p); err != nil {
			b.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}

		b.logger.Debug("added watch", "path", p)
		return nil
	})
}

// watchFile watches a single file by watching its parent directory.
func (b *fallbackBackend) watchFile(path string) error {
	return b.watcher.Add(filepath.Dir(path))
}

// Start begins watching for events. Blocks until the context is cancelled.
func (b *fallbackBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// processEvents pumps fsnotify notifications into the settler.
func (b *fallbackBackend) processEvents(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleFsnotifyEvent(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			select {
			case b.errors <- err:
			case <-b.done:
			}
		}
	}
}

// handleFsnotifyEvent routes one fsnotify notification.
func (b *fallbackBackend) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name

	if b.opts.ShouldIgnore(path) {
		return
	}

	// A new directory needs a watch of its own before files land in it.
	if event.Op&fsnotify.Create != 0 {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if err := b.watchDir(path); err != nil {
				b.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if event.Op&fsnotify.Remove != 0 {
		b.settler.cancel(path)
		if b.opts.AllowedFile(path) {
			b.emitEvent(Event{Type: EventRemoved, Path: path})
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		if !b.opts.AllowedFile(path) {
			return
		}
		b.settler.observe(path)
	}
}

// emitEvent sends an event to the events channel.
func (b *fallbackBackend) emitEvent(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}

// Events returns the events channel.
func (b *fallbackBackend) Events() <-chan Event {
	return b.events
}

// Errors returns the errors channel.
func (b *fallbackBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher. The settler is drained before the channels close
// so no timer callback can send on a closed channel.
func (b *fallbackBackend) Stop() error {
	close(b.done)

	b.watcher.Close()
	b.wg.Wait()
	b.settler.stop()

	close(b.events)
	close(b.errors)

	return nil
}

// newLinuxBackend is a stub that should never be called off Linux.
// It exists only to satisfy the compiler when watcher.go references it.
func newLinuxBackend(_ *slog.Logger, _ Options) (WatcherBackend, error) {
	return nil, fmt.Errorf("linux backend not available on this platform")
}
