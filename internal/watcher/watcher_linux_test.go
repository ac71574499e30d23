//go:build linux

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

func startLinuxBackend(t *testing.T, dir string) *linuxBackend {
	t.Helper()

	backend, err := newLinuxBackend(discardLogger(), fastOpts())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Stop() })

	require.NoError(t, backend.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go backend.Start(ctx) //nolint:errcheck // Test goroutine

	return backend
}

func TestNewLinuxBackend(t *testing.T) {
	backend, err := newLinuxBackend(discardLogger(), fastOpts())
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.NoError(t, backend.Stop())
}

func TestLinuxBackend_Channels(t *testing.T) {
	backend, err := newLinuxBackend(discardLogger(), fastOpts())
	require.NoError(t, err)
	defer backend.Stop() //nolint:errcheck // Test cleanup

	assert.NotNil(t, backend.Events())
	assert.NotNil(t, backend.Errors())
}

func TestLinuxBackend_DetectsSettledFile(t *testing.T) {
	dir := t.TempDir()
	backend := startLinuxBackend(t, dir)

	path := filepath.Join(dir, "berserk-v01.cbz")
	require.NoError(t, os.WriteFile(path, []byte("archive bytes"), 0o644))

	select {
	case event := <-backend.Events():
		assert.Equal(t, EventAdded, event.Type)
		assert.Equal(t, path, event.Path)
		assert.Equal(t, int64(len("archive bytes")), event.Size)
		assert.NotZero(t, event.Inode)
	case err := <-backend.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for detection")
	}
}

func TestLinuxBackend_FiltersUnsupportedAndIgnored(t *testing.T) {
	dir := t.TempDir()
	backend := startLinuxBackend(t, dir)

	// None of these may produce a detection.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book.epub.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.epub"), []byte("x"), 0o644))

	// This one must.
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

func TestLinuxBackend_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.epub")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	backend := startLinuxBackend(t, dir)
	require.NoError(t, os.Remove(path))

	select {
	case event := <-backend.Events():
		assert.Equal(t, EventRemoved, event.Type)
		assert.Equal(t, path, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for removal")
	}
}
