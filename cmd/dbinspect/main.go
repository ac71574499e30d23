package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/db"
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	// Count books per pipeline state and show stuck or quarantined rows
	bookCount := 0
	byStatus := map[domain.BookStatus]int{}
	byContent := map[domain.ContentType]int{}
	withCover := 0
	quarantineShown := 0
	pendingShown := 0

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("book:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte("book:")); it.ValidForPrefix([]byte("book:")); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}

				bookCount++
				byStatus[book.Status]++
				byContent[book.ContentType]++
				if book.HasCover() {
					withCover++
				}

				switch book.Status {
				case domain.StatusQuarantine:
					if quarantineShown < 5 {
						quarantineShown++
						fmt.Printf("Book (QUARANTINE): %s\n", book.DisplayTitle())
						fmt.Printf("  ID: %d\n", book.ID)
						fmt.Printf("  Path: %s\n", book.FilePath)
						fmt.Printf("  Reason: %s\n", book.FailureReason)
						fmt.Println()
					}
				case domain.StatusPending:
					// Pending rows persist only while enrichment is running;
					// any left after a restart are stuck.
					if pendingShown < 5 {
						pendingShown++
						fmt.Printf("Book (PENDING): %s\n", book.DisplayTitle())
						fmt.Printf("  ID: %d\n", book.ID)
						fmt.Printf("  Path: %s\n", book.FilePath)
						fmt.Printf("  Created: %s\n", book.CreatedAt.Format("2006-01-02 15:04:05"))
						fmt.Println()
					}
				}

				return nil
			})
			if err != nil {
				log.Printf("Error reading book %s: %v", key, err)
			}
		}
		return nil
	})

	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	// Path index entries should match the book count exactly
	indexCount := 0
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("idx:books:path:")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			indexCount++
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating path index: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total books: %d\n", bookCount)
	fmt.Printf("  enriched:   %d\n", byStatus[domain.StatusEnriched])
	fmt.Printf("  quarantine: %d\n", byStatus[domain.StatusQuarantine])
	fmt.Printf("  pending:    %d\n", byStatus[domain.StatusPending])
	fmt.Printf("Books: %d, Manga: %d\n", byContent[domain.ContentTypeBook], byContent[domain.ContentTypeManga])
	fmt.Printf("With cover: %d\n", withCover)
	fmt.Printf("Path index entries: %d\n", indexCount)
	if indexCount != bookCount {
		fmt.Printf("WARNING: path index out of sync with book rows\n")
	}
}
