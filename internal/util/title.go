// Package util provides common utility functions.
package util

import (
	"path/filepath"
	"strings"
	"unicode"
)

// TitleFromFilename derives a human-readable title from a file name.
//
// Rules:
//  1. Strip the extension
//  2. Replace underscores and dashes with spaces
//  3. Collapse runs of whitespace
//  4. Upper-case the first letter of each word, leaving the rest as-is
//
// Examples:
//
//	"clean-code.epub"   → "Clean Code"
//	"Berserk_v01.cbz"   → "Berserk V01"
//	"war  and_peace.epub" → "War And Peace"
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	// Separators become spaces.
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}

	return strings.Join(words, " ")
}
