package watcher

import "context"

// WatcherBackend is the platform-specific half of the watcher. Both
// implementations filter through Options and settle through the shared
// settler, so they present identical event semantics.
type WatcherBackend interface {
	// Watch adds a path to be monitored. Directories are watched
	// recursively.
	Watch(path string) error

	// Start begins watching for events. Blocks until the context is
	// cancelled.
	Start(ctx context.Context) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns the channel for receiving file system events.
	Events() <-chan Event

	// Errors returns the channel for receiving errors.
	Errors() <-chan error
}
