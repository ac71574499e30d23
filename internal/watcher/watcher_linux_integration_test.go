//go:build linux

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A file written in several sessions settles only after the last close.
func TestLinuxBackend_ChunkedWriteSettlesOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dir := t.TempDir()
	backend := startLinuxBackend(t, dir)

	path := filepath.Join(dir, "slow-transfer.cbz")
	for i := range 4 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("chunk")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		if i < 3 {
			time.Sleep(20 * time.Millisecond)
		}
	}

	select {
	case event := <-backend.Events():
		assert.Equal(t, EventAdded, event.Type)
		assert.Equal(t, int64(4*len("chunk")), event.Size, "event carries the final size")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for detection")
	}

	select {
	case event := <-backend.Events():
		t.Fatalf("chunked write produced a second event: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestLinuxBackend_WatchesNewDirectories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dir := t.TempDir()
	backend := startLinuxBackend(t, dir)

	subDir := filepath.Join(dir, "incoming")
	require.NoError(t, os.Mkdir(subDir, 0o755))

	// Give the backend a beat to add the watch for the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(subDir, "fresh.epub")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	select {
	case event := <-backend.Events():
		assert.Equal(t, EventAdded, event.Type)
		assert.Equal(t, path, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for detection in new directory")
	}
}

func TestLinuxBackend_MoveInDetected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	staging := t.TempDir()
	dir := t.TempDir()
	backend := startLinuxBackend(t, dir)

	src := filepath.Join(staging, "moved.epub")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	dst := filepath.Join(dir, "moved.epub")
	require.NoError(t, os.Rename(src, dst))

	select {
	case event := <-backend.Events():
		assert.Equal(t, EventAdded, event.Type)
		assert.Equal(t, dst, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for move-in detection")
	}
}
