//go:build linux

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxBackend implements WatcherBackend using Linux inotify. IN_CLOSE_WRITE
// and IN_MOVED_TO feed the settler; the settler decides when a file counts
// as fully written.
type linuxBackend struct {
	logger  *slog.Logger
	settler *settler
	watches map[string]int
	wdPaths map[int]string
	events  chan Event
	errors  chan error
	done    chan struct{}
	opts    Options
	wg      sync.WaitGroup
	fd      int
	mu      sync.RWMutex
}

// newLinuxBackend creates a new Linux-specific file watcher backend.
func newLinuxBackend(logger *slog.Logger, opts Options) (*linuxBackend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}

	b := &linuxBackend{
		logger:  logger,
		opts:    opts,
		fd:      fd,
		watches: make(map[string]int),
		wdPaths: make(map[int]string),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}
	b.settler = newSettler(opts.SettleDelay, b.emitEvent, logger)
	return b, nil
}

// Watch adds a path to be monitored.
func (b *linuxBackend) Watch(path string) error {
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
func (b *linuxBackend) watchDir(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			// Transient read errors must not kill the walk.
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

		if err := b.addWatch(p); err != nil {
			b.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}

		return nil
	})
}

// watchFile watches a single file by watching its parent directory.
func (b *linuxBackend) watchFile(path string) error {
	return b.addWatch(filepath.Dir(path))
}

// addWatch adds an inotify watch for a directory.
func (b *linuxBackend) addWatch(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.watches[path]; exists {
		return nil
	}

	// IN_CLOSE_WRITE: file closed after writing.
	// IN_MOVED_TO: file moved into a watched directory.
	// IN_CREATE: new subdirectory needs its own watch.
	// IN_DELETE / IN_DELETE_SELF / IN_MOVED_FROM: removals.
	mask := unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE |
		unix.IN_DELETE | unix.IN_DELETE_SELF | unix.IN_MOVED_FROM

	wd, err := unix.InotifyAddWatch(b.fd, path, uint32(mask))
	if err != nil {
		return fmt.Errorf("inotify_add_watch failed: %w", err)
	}

	b.watches[path] = wd
	b.wdPaths[wd] = path
	b.logger.Debug("added watch", "path", path, "wd", wd)

	return nil
}

// removeWatch removes an inotify watch for a path.
func (b *linuxBackend) removeWatch(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wd, exists := b.watches[path]
	if !exists {
		return
	}

	// Ignore errors; the directory may already be gone.
	//nolint:gosec // G115: wd is always a small non-negative int from inotify
	_, _ = unix.InotifyRmWatch(b.fd, uint32(wd))

	delete(b.watches, path)
	delete(b.wdPaths, wd)
	b.logger.Debug("removed watch", "path", path, "wd", wd)
}

// Start begins watching for events. Blocks until the context is cancelled.
func (b *linuxBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.readEvents(ctx)

	<-ctx.Done()
	return nil
}

// readEvents reads raw events from the inotify descriptor. The descriptor
// is non-blocking; a 1s poll keeps the loop responsive to shutdown without
// spinning.
func (b *linuxBackend) readEvents(ctx context.Context) {
	defer b.wg.Done()

	buf := make([]byte, unix.SizeofInotifyEvent*100)
	fds := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		default:
		}

		ready, err := unix.Poll(fds, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			select {
			case b.errors <- fmt.Errorf("failed to poll inotify: %w", err):
			case <-b.done:
			}
			return
		}
		if ready == 0 {
			continue
		}

		n, err := unix.Read(b.fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			select {
			case b.errors <- fmt.Errorf("failed to read inotify events: %w", err):
			case <-b.done:
			}
			return
		}

		if n < unix.SizeofInotifyEvent {
			continue
		}

		b.parseEvents(buf[:n])
	}
}

// parseEvents decodes a batch of inotify records.
func (b *linuxBackend) parseEvents(buf []byte) {
	offset := 0
	for offset < len(buf) {
		//nolint:gosec // G103: unsafe is how inotify records are decoded
		event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		offset += unix.SizeofInotifyEvent + int(event.Len)

		b.mu.RLock()
		dir, ok := b.wdPaths[int(event.Wd)]
		b.mu.RUnlock()

		if !ok {
			continue
		}

		name := ""
		if event.Len > 0 {
			nameBytes := buf[offset-int(event.Len) : offset]
			name = string(nameBytes[:clen(nameBytes)])
		}

		b.processEvent(filepath.Join(dir, name), event.Mask)
	}
}

// processEvent routes a single inotify event.
func (b *linuxBackend) processEvent(path string, mask uint32) {
	if b.opts.ShouldIgnore(path) {
		return
	}

	// A new directory needs a watch of its own before files land in it.
	if mask&unix.IN_CREATE != 0 {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if err := b.watchDir(path); err != nil {
				b.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if mask&(unix.IN_DELETE|unix.IN_MOVED_FROM) != 0 {
		b.handleRemoved(path)
		return
	}

	if mask&unix.IN_DELETE_SELF != 0 {
		b.removeWatch(path)
		b.handleRemoved(path)
		return
	}

	// Close-after-write and move-in both mean the file may be complete;
	// the settler confirms.
	if mask&(unix.IN_CLOSE_WRITE|unix.IN_MOVED_TO) != 0 {
		b.handleFileReady(path)
	}
}

// handleFileReady starts settling a file that looks finished.
func (b *linuxBackend) handleFileReady(path string) {
	if !b.opts.AllowedFile(path) {
		return
	}
	b.settler.observe(path)
}

// handleRemoved cancels any pending detection and reports the removal when
// the path is an ingestable file.
func (b *linuxBackend) handleRemoved(path string) {
	b.settler.cancel(path)
	if !b.opts.AllowedFile(path) {
		return
	}
	b.logger.Debug("file removed", "path", path)
	b.emitEvent(Event{Type: EventRemoved, Path: path})
}

// emitEvent sends an event to the events channel.
func (b *linuxBackend) emitEvent(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}

// Events returns the events channel.
func (b *linuxBackend) Events() <-chan Event {
	return b.events
}

// Errors returns the errors channel.
func (b *linuxBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher. The settler is drained before the channels close
// so no timer callback can send on a closed channel.
func (b *linuxBackend) Stop() error {
	close(b.done)
	b.wg.Wait()
	b.settler.stop()

	var closeErr error
	if b.fd >= 0 {
		closeErr = unix.Close(b.fd)
	}

	close(b.events)
	close(b.errors)

	return closeErr
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}

// newFallbackBackend is a stub that should never be called on Linux.
// It exists only to satisfy the compiler when watcher.go references it.
func newFallbackBackend(_ *slog.Logger, _ Options) (WatcherBackend, error) {
	return nil, fmt.Errorf("fallback backend not available on Linux")
}
