package images

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// Processor persists covers pulled out of book archives and computes
// their BlurHash previews.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		logger:  logger,
	}
}

// SaveResult describes a persisted cover.
type SaveResult struct {
	Path     string // relative path for the book row
	BlurHash string // empty when the image data does not decode
	Size     int64
}

// SaveCover stores extracted cover bytes for a book. The BlurHash is
// supplemental: covers whose data does not decode are still persisted.
func (p *Processor) SaveCover(ctx context.Context, bookID int64, cover *bookfile.Cover) (*SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cover == nil || len(cover.Data) == 0 {
		return nil, fmt.Errorf("no cover data to save")
	}

	relPath, err := p.storage.Save(bookID, cover.Ext, cover.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to save cover: %w", err)
	}

	result := &SaveResult{
		Path: relPath,
		Size: int64(len(cover.Data)),
	}

	hash, err := ComputeBlurHash(cover.Data)
	if err != nil {
		p.logger.Warn("failed to compute cover blurhash",
			"book_id", bookID,
			"name", cover.Name,
			"error", err,
		)
	} else {
		result.BlurHash = hash
	}

	p.logger.Debug("saved extracted cover",
		"book_id", bookID,
		"path", relPath,
		"size", result.Size,
	)

	return result, nil
}
