package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile/comic"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: scan-test <library-path>")
		os.Exit(1)
	}

	root := os.Args[1]
	start := time.Now()

	total := 0
	valid := 0
	invalid := 0
	withMetadata := 0
	withCover := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Printf("WALK ERROR %s: %v\n", path, err)
			return nil
		}
		if d.IsDir() || !domain.IsSupportedExtension(filepath.Ext(path)) {
			return nil
		}

		total++
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		result, extraction, err := check(path)
		if err != nil {
			invalid++
			fmt.Printf("FAIL  %s: %v\n", rel, err)
			return nil
		}
		if !result.Valid {
			invalid++
			fmt.Printf("FAIL  %s: %s\n", rel, result.Reason)
			return nil
		}

		valid++
		line := fmt.Sprintf("OK    %s", rel)
		if extraction.MetadataExtracted {
			withMetadata++
			line += fmt.Sprintf("  title=%q", extraction.Metadata.Title)
			if extraction.Metadata.Author != "" {
				line += fmt.Sprintf(" author=%q", extraction.Metadata.Author)
			}
			if extraction.Metadata.Series != "" {
				line += fmt.Sprintf(" series=%q", extraction.Metadata.Series)
			}
		}
		if extraction.CoverExtracted {
			withCover++
			line += fmt.Sprintf(" cover=%s (%d bytes)", extraction.Cover.Ext, len(extraction.Cover.Data))
		}
		fmt.Println(line)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Scan Complete ===\n")
	fmt.Printf("Duration: %s\n", time.Since(start))
	fmt.Printf("Files: %d\n", total)
	fmt.Printf("Valid: %d\n", valid)
	fmt.Printf("Invalid: %d\n", invalid)
	fmt.Printf("With metadata: %d\n", withMetadata)
	fmt.Printf("With cover: %d\n", withCover)
}

// check validates the file and, when it is structurally sound, runs the
// extractor for its format. Extraction happens here exactly as it would
// during ingestion, so this tool predicts what the pipeline will recover.
func check(path string) (*bookfile.Result, *bookfile.Extraction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		result, err := epub.Validate(path)
		if err != nil || !result.Valid {
			return result, nil, err
		}
		extraction, err := epub.Extract(path)
		return result, extraction, err
	case ".cbz":
		result, err := comic.ValidateCBZ(path)
		if err != nil || !result.Valid {
			return result, nil, err
		}
		extraction, err := comic.ExtractCBZ(path)
		return result, extraction, err
	case ".cbr":
		result, err := comic.ValidateCBR(path)
		if err != nil || !result.Valid {
			return result, nil, err
		}
		extraction, err := comic.ExtractCBR(path)
		return result, extraction, err
	}
	return nil, nil, fmt.Errorf("unsupported extension %q", filepath.Ext(path))
}
