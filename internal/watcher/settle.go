package watcher

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// settler delays detections until a file stops changing. Every observation
// (re)arms a timer; when it fires with size and mtime unchanged since the
// last look, the detection is emitted. Both backends share this, so a slow
// copy over NFS behaves the same under inotify and fsnotify.
type settler struct {
	delay  time.Duration
	emit   func(Event)
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingFile
}

// pendingFile tracks a file that may still be growing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

func newSettler(delay time.Duration, emit func(Event), logger *slog.Logger) *settler {
	return &settler{
		delay:   delay,
		emit:    emit,
		logger:  logger,
		pending: make(map[string]*pendingFile),
	}
}

// observe records activity on a path and (re)starts its settle timer.
func (s *settler) observe(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, exists := s.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("failed to stat file", "path", path, "error", err)
		delete(s.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	pending := &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(s.delay, func() {
		s.checkSettled(path)
	})
	s.pending[path] = pending
}

// cancel drops a pending detection, typically because the file was removed.
func (s *settler) cancel(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, exists := s.pending[path]; exists {
		pending.timer.Stop()
		delete(s.pending, path)
	}
}

// stop cancels every pending detection. After stop returns, no further
// emit calls can come from this settler.
func (s *settler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pending := range s.pending {
		pending.timer.Stop()
	}
	clear(s.pending)
}

// checkSettled fires when a settle timer expires. The file is reported only
// if it kept its size and mtime for the whole interval; otherwise the timer
// restarts with the fresh numbers.
func (s *settler) checkSettled(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, exists := s.pending[path]
	if !exists {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// Gone before it settled.
		delete(s.pending, path)
		s.emit(Event{Type: EventRemoved, Path: path})
		return
	}

	if info.Size() != pending.size || info.ModTime() != pending.modTime {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(s.delay, func() {
			s.checkSettled(path)
		})
		return
	}

	delete(s.pending, path)

	// TODO: remember inodes already reported so rewrites of an existing
	// file surface as EventModified instead of EventAdded.
	s.emit(Event{
		Type:    EventAdded,
		Path:    path,
		Inode:   getInode(info.Sys()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}
