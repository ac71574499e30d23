// Package store persists the book library in a Badger key-value database.
// Books are stored as JSON under sequence-derived keys, with a secondary
// index from file path to book ID for dedupe lookups.
package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkshelfapp/inkshelf-server/internal/events"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	// Event emitter for broadcasting book changes.
	emitter events.Emitter
}

// New creates a new Store instance with the given database path and event
// emitter. The emitter is required; pass events.NoopEmitter for tools and
// tests that have no bus.
func New(path string, logger *slog.Logger, emitter events.Emitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(bookSeqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open book id sequence: %w", err)
	}

	store := &Store{
		db:      db,
		seq:     seq,
		logger:  logger,
		emitter: emitter,
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return errors.Join(s.seq.Release(), s.db.Close())
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
