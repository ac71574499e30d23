package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
)

const (
	bookPrefix       = "book:"
	bookByPathPrefix = "idx:books:path:"
	bookSeqKey       = "seq:books"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book already exists")
)

// bookKeySuffix renders a book ID as a zero-padded, lexicographically
// sortable key suffix, so prefix iteration returns books in ID order.
func bookKeySuffix(id int64) string {
	return fmt.Sprintf("%012d", id)
}

// nextBookID reserves the next ID from the book sequence.
// Badger sequences start at zero; book IDs are 1-based.
func (s *Store) nextBookID() (int64, error) {
	for {
		n, err := s.seq.Next()
		if err != nil {
			return 0, fmt.Errorf("next book id: %w", err)
		}
		if n > 0 {
			return int64(n), nil
		}
	}
}

// Book Operations

// CreateBook assigns the book an ID and persists it together with its
// file-path index entry. A book with the same file path already in the
// store returns ErrBookExists.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pathKey := buildKey(bookByPathPrefix, book.FilePath)
	exists, err := s.exists(pathKey)
	releaseKey(pathKey)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	id, err := s.nextBookID()
	if err != nil {
		return err
	}
	book.ID = id
	book.InitTimestamps()

	// Use transaction to create book and index atomically
	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}

		if err := txn.Set([]byte(bookPrefix+bookKeySuffix(book.ID)), data); err != nil {
			return err
		}

		// Path index maps file path to decimal book ID
		idValue := strconv.FormatInt(book.ID, 10)
		return txn.Set([]byte(bookByPathPrefix+book.FilePath), []byte(idValue))
	})
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.Int64("id", book.ID),
			slog.String("title", book.DisplayTitle()),
			slog.String("path", book.FilePath),
			slog.String("content_type", string(book.ContentType)),
		)
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(bookPrefix, bookKeySuffix(id))
	defer releaseKey(key)

	var book domain.Book
	err := s.get(key, &book)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// GetBookByPath retrieves a book by its file path via the path index.
// The processor uses this for dedupe before creating rows.
func (s *Store) GetBookByPath(ctx context.Context, path string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pathKey := buildKey(bookByPathPrefix, path)
	defer releaseKey(pathKey)

	var bookID int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pathKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			id, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt path index value %q: %w", val, err)
			}
			bookID = id
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book by path: %w", err)
	}
	return s.GetBook(ctx, bookID)
}

// BookExistsByPath checks the path index without loading the row.
func (s *Store) BookExistsByPath(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	pathKey := buildKey(bookByPathPrefix, path)
	defer releaseKey(pathKey)
	return s.exists(pathKey)
}

// PathsKnown reports which of the given file paths already have a row.
// One view transaction serves the whole batch; the scanner calls this with
// everything it discovered before deciding what to feed the processor.
func (s *Store) PathsKnown(ctx context.Context, paths []string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(paths))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, path := range paths {
			key := buildKey(bookByPathPrefix, path)
			_, err := txn.Get(key)
			releaseKey(key)
			switch {
			case err == nil:
				known[path] = true
			case errors.Is(err, badger.ErrKeyNotFound):
				known[path] = false
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check known paths: %w", err)
	}
	return known, nil
}

// UpdateBook applies a patch to a stored book atomically and returns the
// updated row. Unset patch fields leave the stored values untouched.
func (s *Store) UpdateBook(ctx context.Context, id int64, patch *domain.BookPatch) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book domain.Book
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(bookPrefix + bookKeySuffix(id))

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get existing: %w", err)
		}

		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &book)
		}); err != nil {
			return fmt.Errorf("unmarshal book: %w", err)
		}

		patch.Apply(&book)

		data, err := json.Marshal(&book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("book updated", "id", id, "fields", patch.Fields())
	}

	return &book, nil
}

// ApplyMetadata applies a patch and broadcasts book.updated naming the
// source that supplied the data. Status-only patches update silently.
func (s *Store) ApplyMetadata(ctx context.Context, id int64, patch *domain.BookPatch, source, externalID string) (*domain.Book, error) {
	book, err := s.UpdateBook(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if fields := patch.Fields(); len(fields) > 0 && s.emitter != nil {
		s.emitter.Emit(events.NewBookUpdatedEvent(id, source, externalID, fields))
	}
	return book, nil
}

// DeleteBook removes a book and its path index entry.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(bookPrefix + bookKeySuffix(id))); err != nil {
			return err
		}
		return txn.Delete([]byte(bookByPathPrefix + book.FilePath))
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book deleted", "id", id, "path", book.FilePath)
	}
	return nil
}

// ListBooks returns a page of books ordered by ID.
func (s *Store) ListBooks(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Book], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	var books []*domain.Book
	var hasMore bool

	prefix := []byte(bookPrefix)

	startKey, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = params.Limit + 1 // One extra to detect a next page.

		it := txn.NewIterator(opts)
		defer it.Close()

		if startKey != "" {
			it.Seek([]byte(startKey))
			// Skip the cursor key itself (already returned on the previous page).
			if it.Valid() && string(it.Item().Key()) == startKey {
				it.Next()
			}
		} else {
			it.Seek(prefix)
		}

		count := 0
		for ; it.ValidForPrefix(prefix); it.Next() {
			if count == params.Limit {
				hasMore = true
				break
			}

			err := it.Item().Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}
				books = append(books, &book)
				return nil
			})
			if err != nil {
				return err
			}
			count++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	result := &PaginatedResult[*domain.Book]{
		Items:   books,
		HasMore: hasMore,
	}
	if hasMore && len(books) > 0 {
		result.NextCursor = EncodeCursor(bookPrefix + bookKeySuffix(books[len(books)-1].ID))
	}

	return result, nil
}

// ListAllBooks returns every book (non-paginated). Intended for small
// libraries and offline tooling; services should prefer ListBooks.
func (s *Store) ListAllBooks(ctx context.Context) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var books []*domain.Book
	prefix := []byte(bookPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}
				books = append(books, &book)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list all books: %w", err)
	}

	return books, nil
}

// CountBooks returns the number of stored books without loading values.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	prefix := []byte(bookPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // Key-only scan.

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}

	return count, nil
}
