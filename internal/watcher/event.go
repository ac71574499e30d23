package watcher

import "time"

// EventType classifies a file system event.
type EventType int

const (
	// EventAdded is emitted when a new file is detected, after settling.
	EventAdded EventType = iota
	// EventModified is emitted when an existing file changes, after settling.
	EventModified
	// EventRemoved is emitted when a file is deleted.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one detected file system change. Inode, Size and ModTime are
// zero for removals; the file is already gone.
type Event struct {
	// Type is the kind of event (added, modified, removed).
	Type EventType

	// Path is the absolute file path.
	Path string

	// Inode is the file's inode number, 0 where the platform has none.
	Inode uint64

	// Size is the file size in bytes at detection time.
	Size int64

	// ModTime is the file's last modification time.
	ModTime time.Time
}
