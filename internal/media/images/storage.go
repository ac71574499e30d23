// Package images persists cover files on disk and computes BlurHash previews.
package images

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// coverSubdir is the directory under the data dir where covers live.
const coverSubdir = "covers"

// knownExts are the extensions Save will write. Lookups and Remove scan
// this set, so every stored cover must use one of them.
var knownExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Storage manages cover files on the local filesystem.
// Filenames are {bookID}{ext}; a book has at most one cover, so saving
// under a new extension removes the old variants first.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage rooted at {dataDir}/covers, creating the
// directory if it doesn't exist.
func NewStorage(dataDir string) (*Storage, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir cannot be empty")
	}

	storagePath := filepath.Join(dataDir, coverSubdir)

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create covers directory: %w", err)
	}

	return &Storage{
		basePath: storagePath,
	}, nil
}

// Save stores cover data for a book and returns the relative path
// ("covers/{id}{ext}") persisted on the book row. Stale variants under
// other extensions are removed so Get and Exists stay unambiguous.
func (s *Storage) Save(id int64, ext string, data []byte) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("book ID must be positive")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	ext = NormalizeExt(ext)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeVariantsLocked(id, ext); err != nil {
		return "", err
	}

	if err := os.WriteFile(s.Path(id, ext), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cover file: %w", err)
	}

	return RelPath(id, ext), nil
}

// Get retrieves cover data for a book, whatever extension it was saved
// under.
func (s *Storage) Get(id int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coverPath := s.findLocked(id)
	if coverPath == "" {
		return nil, fmt.Errorf("cover not found for book %d", id)
	}

	data, err := os.ReadFile(coverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover file: %w", err)
	}

	return data, nil
}

// Exists reports whether a cover is stored for the book.
func (s *Storage) Exists(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findLocked(id) != ""
}

// SizeOf returns the stored cover size in bytes.
func (s *Storage) SizeOf(id int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coverPath := s.findLocked(id)
	if coverPath == "" {
		return 0, fmt.Errorf("cover not found for book %d", id)
	}

	info, err := os.Stat(coverPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat cover file: %w", err)
	}

	return info.Size(), nil
}

// Remove deletes the book's cover under every known extension.
// Removing a cover that does not exist is not an error.
func (s *Storage) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeVariantsLocked(id, "")
}

// Path returns the full filesystem path for a cover with the given
// extension.
func (s *Storage) Path(id int64, ext string) string {
	return filepath.Join(s.basePath, coverName(id, ext))
}

// RelPath returns the row-persisted relative path for a cover. Always
// forward slashes, regardless of platform.
func RelPath(id int64, ext string) string {
	return path.Join(coverSubdir, coverName(id, ext))
}

// NormalizeExt lowercases an extension and ensures the leading dot.
// Anything outside the known image set becomes ".jpg" so that variant
// cleanup stays exhaustive.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, known := range knownExts {
		if ext == known {
			return ext
		}
	}
	return ".jpg"
}

func coverName(id int64, ext string) string {
	return strconv.FormatInt(id, 10) + ext
}

// findLocked returns the absolute path of the stored cover, or "" when
// no variant exists. Callers must hold at least a read lock.
func (s *Storage) findLocked(id int64) string {
	for _, ext := range knownExts {
		coverPath := s.Path(id, ext)
		if _, err := os.Stat(coverPath); err == nil {
			return coverPath
		}
	}
	return ""
}

// removeVariantsLocked deletes every stored extension except keep.
// Callers must hold the write lock.
func (s *Storage) removeVariantsLocked(id int64, keep string) error {
	for _, ext := range knownExts {
		if ext == keep {
			continue
		}
		if err := os.Remove(s.Path(id, ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cover file: %w", err)
		}
	}
	return nil
}
