package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
)

// MinSettleDelay is the floor for the settle interval. A file must stay
// unchanged this long before a detection fires; anything shorter races
// slow copies and partial downloads.
const MinSettleDelay = 2 * time.Second

// DefaultIgnorePatterns are the globs skipped when none are configured.
// They cover in-progress downloads from common clients.
//
//nolint:gochecknoglobals // Static default shared with the scanner
var DefaultIgnorePatterns = []string{"*.tmp", "*.part", "*.crdownload"}

// Options configures watcher filtering and settling. The scanner applies
// the same Options so a one-shot scan and live watching agree on which
// files count.
type Options struct {
	// IgnorePatterns are doublestar globs matched against the base name
	// and the slash-normalized path.
	IgnorePatterns []string

	// SettleDelay is how long a file must stop growing before it is
	// reported. Values below MinSettleDelay are raised to it.
	SettleDelay time.Duration

	// IgnoreHidden skips dotfiles and everything under dot-directories.
	IgnoreHidden bool
}

// WithDefaults returns a copy with defaults filled in. New applies this to
// its own copy; the scanner uses it so both sides filter identically.
func (o Options) WithDefaults() Options {
	o.setDefaults()
	return o
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay < MinSettleDelay {
		o.SettleDelay = MinSettleDelay
	}

	// Nil means "not configured"; an explicit empty slice disables the
	// pattern filter on purpose.
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = DefaultIgnorePatterns
		o.IgnoreHidden = true
	}
}

// ShouldIgnore reports whether a path is filtered out entirely: hidden, or
// matching an ignore pattern. It applies to files and directories alike.
func (o *Options) ShouldIgnore(path string) bool {
	if o.IgnoreHidden && hasHiddenComponent(path) {
		return true
	}

	base := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, pattern := range o.IgnorePatterns {
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, slashed); err == nil && matched {
			return true
		}
	}

	return false
}

// AllowedFile reports whether the path names an ingestable format. Only
// files passing both this and ShouldIgnore produce detections.
func (o *Options) AllowedFile(path string) bool {
	return domain.IsSupportedExtension(filepath.Ext(path))
}

// hasHiddenComponent reports whether any path element is a dotfile.
func hasHiddenComponent(path string) bool {
	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	for _, part := range parts {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
