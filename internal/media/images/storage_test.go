package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	t.Run("creates storage with valid path", func(t *testing.T) {
		tmpDir := t.TempDir()

		storage, err := NewStorage(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, storage)

		// Verify covers directory was created.
		coversPath := filepath.Join(tmpDir, "covers")
		info, err := os.Stat(coversPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		storage, err := NewStorage("")
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "data dir cannot be empty")
	})

	t.Run("creates nested directories if needed", func(t *testing.T) {
		tmpDir := t.TempDir()
		nestedPath := filepath.Join(tmpDir, "nested", "path")

		storage, err := NewStorage(nestedPath)
		require.NoError(t, err)
		require.NotNil(t, storage)

		coversPath := filepath.Join(nestedPath, "covers")
		info, err := os.Stat(coversPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestStorage_Save(t *testing.T) {
	t.Run("saves image data and returns relative path", func(t *testing.T) {
		storage := setupTestStorage(t)
		testData := []byte("test image data")

		relPath, err := storage.Save(12, ".png", testData)
		require.NoError(t, err)
		assert.Equal(t, "covers/12.png", relPath)

		data, err := os.ReadFile(storage.Path(12, ".png"))
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("normalizes extension case", func(t *testing.T) {
		storage := setupTestStorage(t)

		relPath, err := storage.Save(5, ".JPEG", []byte("data"))
		require.NoError(t, err)
		assert.Equal(t, "covers/5.jpeg", relPath)
	})

	t.Run("defaults unknown extension to jpg", func(t *testing.T) {
		storage := setupTestStorage(t)

		relPath, err := storage.Save(7, ".bmp", []byte("data"))
		require.NoError(t, err)
		assert.Equal(t, "covers/7.jpg", relPath)
	})

	t.Run("removes stale variant when extension changes", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save(9, ".png", []byte("old png"))
		require.NoError(t, err)

		relPath, err := storage.Save(9, ".jpg", []byte("new jpg"))
		require.NoError(t, err)
		assert.Equal(t, "covers/9.jpg", relPath)

		// Old variant is gone, new one readable.
		_, err = os.Stat(storage.Path(9, ".png"))
		assert.True(t, os.IsNotExist(err))

		data, err := storage.Get(9)
		require.NoError(t, err)
		assert.Equal(t, []byte("new jpg"), data)
	})

	t.Run("returns error for non-positive book ID", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save(0, ".jpg", []byte("data"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "book ID must be positive")
	})

	t.Run("returns error for empty image data", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save(12, ".jpg", []byte{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "image data cannot be empty")
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save(12, ".jpg", []byte("initial data"))
		require.NoError(t, err)

		newData := []byte("updated data")
		_, err = storage.Save(12, ".jpg", newData)
		require.NoError(t, err)

		data, err := storage.Get(12)
		require.NoError(t, err)
		assert.Equal(t, newData, data)
	})
}

func TestStorage_Get(t *testing.T) {
	t.Run("retrieves saved cover regardless of extension", func(t *testing.T) {
		storage := setupTestStorage(t)
		testData := []byte("webp bytes")

		_, err := storage.Save(3, ".webp", testData)
		require.NoError(t, err)

		data, err := storage.Get(3)
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("returns error for non-existent cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		data, err := storage.Get(999)
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Contains(t, err.Error(), "cover not found")
	})
}

func TestStorage_Exists(t *testing.T) {
	t.Run("returns true for existing cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save(12, ".gif", []byte("test data"))
		require.NoError(t, err)

		assert.True(t, storage.Exists(12))
	})

	t.Run("returns false for non-existent cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		assert.False(t, storage.Exists(999))
	})
}

func TestStorage_SizeOf(t *testing.T) {
	t.Run("returns stored byte count", func(t *testing.T) {
		storage := setupTestStorage(t)
		testData := []byte("twelve bytes")

		_, err := storage.Save(4, ".jpg", testData)
		require.NoError(t, err)

		size, err := storage.SizeOf(4)
		require.NoError(t, err)
		assert.Equal(t, int64(len(testData)), size)
	})

	t.Run("returns error for non-existent cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		size, err := storage.SizeOf(999)
		assert.Error(t, err)
		assert.Zero(t, size)
	})
}

func TestStorage_Remove(t *testing.T) {
	t.Run("removes existing cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, err := storage.Save(12, ".png", []byte("test data"))
		require.NoError(t, err)
		require.True(t, storage.Exists(12))

		err = storage.Remove(12)
		require.NoError(t, err)
		assert.False(t, storage.Exists(12))
	})

	t.Run("succeeds when cover does not exist", func(t *testing.T) {
		storage := setupTestStorage(t)

		err := storage.Remove(999)
		assert.NoError(t, err) // Not an error to remove a non-existent cover.
	})
}

func TestStorage_Path(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewStorage(tmpDir)
	require.NoError(t, err)

	got := storage.Path(123, ".jpg")
	expected := filepath.Join(tmpDir, "covers", "123.jpg")
	assert.Equal(t, expected, got)
}

func TestRelPath(t *testing.T) {
	assert.Equal(t, "covers/7.webp", RelPath(7, ".webp"))
	assert.Equal(t, "covers/123.jpg", RelPath(123, ".jpg"))
}

func TestNormalizeExt(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{".jpg", ".jpg"},
		{"jpg", ".jpg"},
		{".JPEG", ".jpeg"},
		{" .PNG ", ".png"},
		{".webp", ".webp"},
		{".gif", ".gif"},
		{"", ".jpg"},
		{".bmp", ".jpg"},
		{".tiff", ".jpg"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, NormalizeExt(tc.in), "input %q", tc.in)
	}
}

func TestStorage_Concurrent(t *testing.T) {
	t.Run("handles concurrent writes safely", func(t *testing.T) {
		storage := setupTestStorage(t)

		const goroutines = 10
		done := make(chan bool, goroutines)

		for i := 0; i < goroutines; i++ {
			go func(n int) {
				_, err := storage.Save(12, ".jpg", []byte{byte(n + 1)})
				assert.NoError(t, err)
				done <- true
			}(i)
		}

		for i := 0; i < goroutines; i++ {
			<-done
		}

		assert.True(t, storage.Exists(12))
		data, err := storage.Get(12)
		assert.NoError(t, err)
		assert.NotEmpty(t, data)
	})

	t.Run("handles concurrent reads safely", func(t *testing.T) {
		storage := setupTestStorage(t)
		testData := []byte("test data")

		_, err := storage.Save(12, ".jpg", testData)
		require.NoError(t, err)

		const goroutines = 10
		done := make(chan bool, goroutines)

		for i := 0; i < goroutines; i++ {
			go func() {
				data, err := storage.Get(12)
				assert.NoError(t, err)
				assert.Equal(t, testData, data)
				done <- true
			}()
		}

		for i := 0; i < goroutines; i++ {
			<-done
		}
	})
}

// setupTestStorage creates a Storage instance with a temporary directory.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDir := t.TempDir()
	storage, err := NewStorage(tmpDir)
	require.NoError(t, err)
	return storage
}
