package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

func TestProcessor_SaveCover(t *testing.T) {
	t.Run("persists cover and computes blurhash", func(t *testing.T) {
		processor := setupTestProcessor(t)
		data := makeTestPNG(t, 40, 60)

		result, err := processor.SaveCover(context.Background(), 12, &bookfile.Cover{
			Data: data,
			Name: "OEBPS/images/cover.png",
			Ext:  ".png",
		})
		require.NoError(t, err)

		assert.Equal(t, "covers/12.png", result.Path)
		assert.Equal(t, int64(len(data)), result.Size)
		assert.NotEmpty(t, result.BlurHash)

		stored, err := processor.storage.Get(12)
		require.NoError(t, err)
		assert.Equal(t, data, stored)
	})

	t.Run("persists cover even when blurhash fails", func(t *testing.T) {
		processor := setupTestProcessor(t)

		result, err := processor.SaveCover(context.Background(), 13, &bookfile.Cover{
			Data: []byte("not a decodable image"),
			Name: "cover.jpg",
			Ext:  ".jpg",
		})
		require.NoError(t, err)

		assert.Equal(t, "covers/13.jpg", result.Path)
		assert.Empty(t, result.BlurHash)
		assert.True(t, processor.storage.Exists(13))
	})

	t.Run("defaults odd extensions to jpg", func(t *testing.T) {
		processor := setupTestProcessor(t)

		result, err := processor.SaveCover(context.Background(), 14, &bookfile.Cover{
			Data: makeTestPNG(t, 8, 8),
			Name: "cover.tiff",
			Ext:  ".tiff",
		})
		require.NoError(t, err)
		assert.Equal(t, "covers/14.jpg", result.Path)
	})

	t.Run("returns error for nil cover", func(t *testing.T) {
		processor := setupTestProcessor(t)

		result, err := processor.SaveCover(context.Background(), 15, nil)
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("returns error for empty cover data", func(t *testing.T) {
		processor := setupTestProcessor(t)

		result, err := processor.SaveCover(context.Background(), 15, &bookfile.Cover{Ext: ".jpg"})
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		processor := setupTestProcessor(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := processor.SaveCover(ctx, 16, &bookfile.Cover{
			Data: makeTestPNG(t, 8, 8),
			Ext:  ".png",
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, result)
		assert.False(t, processor.storage.Exists(16))
	})
}

func TestComputeBlurHash(t *testing.T) {
	t.Run("hashes decodable image bytes", func(t *testing.T) {
		hash, err := ComputeBlurHash(makeTestPNG(t, 120, 180))
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
	})

	t.Run("is deterministic", func(t *testing.T) {
		data := makeTestPNG(t, 40, 40)

		hash1, err := ComputeBlurHash(data)
		require.NoError(t, err)
		hash2, err := ComputeBlurHash(data)
		require.NoError(t, err)

		assert.Equal(t, hash1, hash2)
	})

	t.Run("returns error for garbage bytes", func(t *testing.T) {
		hash, err := ComputeBlurHash([]byte("definitely not an image"))
		assert.Error(t, err)
		assert.Empty(t, hash)
	})
}

func TestResizeForBlurHash(t *testing.T) {
	t.Run("shrinks large images preserving aspect", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 640, 960))

		thumb := resizeForBlurHash(img)
		bounds := thumb.Bounds()
		assert.Equal(t, 64, bounds.Dy())
		assert.Equal(t, 42, bounds.Dx()) // 640*64/960
	})

	t.Run("leaves small images untouched", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 32, 48))

		thumb := resizeForBlurHash(img)
		assert.Equal(t, img.Bounds(), thumb.Bounds())
	})
}

// Helper functions.

// setupTestProcessor creates a Processor with a temporary storage.
func setupTestProcessor(t *testing.T) *Processor {
	t.Helper()
	tmpDir := t.TempDir()
	storage, err := NewStorage(tmpDir)
	require.NoError(t, err)

	log := logger.New(logger.Config{Level: slog.LevelDebug})
	return NewProcessor(storage, log.Logger)
}

// makeTestPNG encodes a small two-tone PNG for decode-dependent tests.
func makeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 20, G: 20, B: 120, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
