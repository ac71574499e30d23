// Package covers downloads cover images from metadata source CDNs.
package covers

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	// downloadTimeout is the maximum time for a single cover download.
	downloadTimeout = 30 * time.Second
)

// DownloadResult describes a downloaded and stored cover.
type DownloadResult struct {
	Path     string // relative path for the book row
	BlurHash string // empty when the hash could not be computed
	Size     int64
	Width    int
	Height   int
}

// Downloader fetches covers over HTTP and hands them to images.Storage.
type Downloader struct {
	httpClient *http.Client
	storage    *images.Storage
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewDownloader creates a cover downloader. The limiter keeps CDN hits
// polite; it is independent of the per-source API buckets.
func NewDownloader(storage *images.Storage, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		storage: storage,
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		logger:  logger,
	}
}

// Download fetches a cover from the URL and stores it for the given book.
// source names the metadata source for logging; when empty it is guessed
// from the URL.
func (d *Downloader) Download(ctx context.Context, bookID int64, coverURL, source string) (*DownloadResult, error) {
	if coverURL == "" {
		return nil, errors.New("empty cover URL")
	}
	if source == "" {
		source = DetectSource(coverURL)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}

	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}
	if err := checkContentType(resp.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	// Read one byte past the cap so oversized bodies are rejected rather
	// than stored truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if len(data) > maxCoverSize {
		return nil, fmt.Errorf("cover exceeds %d byte limit", maxCoverSize)
	}
	if len(data) == 0 {
		return nil, errors.New("empty response body")
	}

	ext, err := sniffExt(data, coverURL)
	if err != nil {
		return nil, err
	}

	relPath, err := d.storage.Save(bookID, ext, data)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	result := &DownloadResult{
		Path: relPath,
		Size: int64(len(data)),
	}

	if width, height, err := parseImageDimensions(data); err != nil {
		d.logger.Warn("failed to parse cover dimensions",
			"book_id", bookID,
			"url", coverURL,
			"error", err,
		)
		// Continue without dimensions - the image is still valid.
	} else {
		result.Width = width
		result.Height = height
	}

	if hash, err := images.ComputeBlurHash(data); err != nil {
		d.logger.Warn("failed to compute cover blurhash",
			"book_id", bookID,
			"error", err,
		)
	} else {
		result.BlurHash = hash
	}

	d.logger.Info("downloaded cover",
		"book_id", bookID,
		"source", source,
		"path", relPath,
		"size", result.Size,
		"width", result.Width,
		"height", result.Height,
	)

	return result, nil
}

// checkContentType rejects responses that declare a non-image body.
// Missing and octet-stream declarations pass; the byte sniffer has the
// final word either way.
func checkContentType(header string) error {
	if header == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return nil
	}
	if strings.HasPrefix(mediaType, "image/") || mediaType == "application/octet-stream" {
		return nil
	}
	return fmt.Errorf("unexpected content type %q", mediaType)
}

// sniffExt picks the stored extension from the bytes, falling back to the
// URL path and finally ".jpg".
func sniffExt(data []byte, coverURL string) (string, error) {
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("response is not an image (%s)", detected.String())
	}
	if ext := detected.Extension(); ext != "" {
		return ext, nil
	}
	if parsed, err := url.Parse(coverURL); err == nil {
		if ext := strings.ToLower(path.Ext(parsed.Path)); ext != "" {
			return ext, nil
		}
	}
	return ".jpg", nil
}

// parseImageDimensions extracts dimensions from image data.
// Supports JPEG and PNG; other formats store zero dimensions.
func parseImageDimensions(data []byte) (width, height int, err error) {
	if len(data) < 24 {
		return 0, 0, errors.New("data too small")
	}

	if w, h, ok := parseJPEGDimensions(data); ok {
		return w, h, nil
	}

	if w, h, ok := parsePNGDimensions(data); ok {
		return w, h, nil
	}

	return 0, 0, errors.New("unsupported format")
}

// parseJPEGDimensions extracts dimensions from JPEG data.
func parseJPEGDimensions(data []byte) (width, height int, ok bool) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, false // Not a JPEG
	}

	// Scan for SOF markers.
	i := 2
	for i < len(data)-9 {
		if data[i] != 0xFF {
			i++
			continue
		}

		marker := data[i+1]

		// SOF0 (baseline), SOF1 (extended), SOF2 (progressive)
		if marker == 0xC0 || marker == 0xC1 || marker == 0xC2 {
			if i+9 > len(data) {
				return 0, 0, false
			}
			height = int(binary.BigEndian.Uint16(data[i+5 : i+7]))
			width = int(binary.BigEndian.Uint16(data[i+7 : i+9]))
			return width, height, true
		}

		// Skip to next marker.
		if i+3 >= len(data) {
			break
		}
		segmentLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		i += 2 + segmentLen
	}

	return 0, 0, false
}

// parsePNGDimensions extracts dimensions from PNG data.
func parsePNGDimensions(data []byte) (width, height int, ok bool) {
	pngSig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if len(data) < 24 || !bytes.Equal(data[:8], pngSig) {
		return 0, 0, false
	}

	if string(data[12:16]) != "IHDR" {
		return 0, 0, false
	}

	width = int(binary.BigEndian.Uint32(data[16:20]))
	height = int(binary.BigEndian.Uint32(data[20:24]))
	return width, height, true
}

// DetectSource determines the metadata source from a cover URL.
func DetectSource(coverURL string) string {
	switch {
	case strings.Contains(coverURL, "openlibrary.org"):
		return "openlibrary"
	case strings.Contains(coverURL, "books.google") || strings.Contains(coverURL, "googleusercontent.com"):
		return "googlebooks"
	case strings.Contains(coverURL, "anilist.co"):
		return "anilist"
	case strings.Contains(coverURL, "myanimelist.net"):
		return "mal"
	case strings.Contains(coverURL, "mangadex.org"):
		return "mangadex"
	default:
		return "unknown"
	}
}
