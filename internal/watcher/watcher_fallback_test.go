//go:build !linux

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastOpts keeps backend tests quick by bypassing the public settle floor.
func fastOpts() Options {
	return Options{
		IgnorePatterns: DefaultIgnorePatterns,
		IgnoreHidden:   true,
		SettleDelay:    50 * time.Millisecond,
	}
}

func startFallbackBackend(t *testing.T, dir string) *fallbackBackend {
	t.Helper()

	backend, err := newFallbackBackend(discardLogger(), fastOpts())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Stop() })

	require.NoError(t, backend.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go backend.Start(ctx) //nolint:errcheck // Test goroutine

	return backend
}

func TestNewFallbackBackend(t *testing.T) {
	backend, err := newFallbackBackend(discardLogger(), fastOpts())
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.NoError(t, backend.Stop())
}

func TestFallbackBackend_Watch(t *testing.T) {
	backend, err := newFallbackBackend(discardLogger(), fastOpts())
	require.NoError(t, err)
	defer backend.Stop() //nolint:errcheck // Test cleanup

	assert.NoError(t, backend.Watch(t.TempDir()))
}

func TestFallbackBackend_DetectsSettledFile(t *testing.T) {
	dir := t.TempDir()
	backend := startFallbackBackend(t, dir)

	path := filepath.Join(dir, "berserk-v01.cbz")
	require.NoError(t, os.WriteFile(path, []byte("archive bytes"), 0o644))

	select {
	case event := <-backend.Events():
		assert.Equal(t, EventAdded, event.Type)
		assert.Equal(t, path, event.Path)
		assert.Equal(t, int64(len("archive bytes")), event.Size)
	case err := <-backend.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for detection")
	}
}

func TestFallbackBackend_FiltersUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	backend := startFallbackBackend(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book.epub.part"), []byte("x"), 0o644))

	path := filepath.Join(dir, "real.epub")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case event := <-backend.Events():
		assert.Equal(t, path, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for detection")
	}

	select {
	case event := <-backend.Events():
		t.Fatalf("unexpected event for filtered file: %+v", event)
	case <-time.After(200 * time.Millisecond):
	}
}
