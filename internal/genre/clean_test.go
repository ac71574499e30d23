package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"simple", "Action", "action"},
		{"two words", "Slice of Life", "slice-of-life"},
		{"slash", "Sci-Fi/Fantasy", "sci-fi-fantasy"},
		{"accents fold", "Shōnen", "shonen"},
		{"emoji stripped", "🐉 Dragons!", "dragons"},
		{"leading trailing", "  --Drama--  ", "drama"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.in))
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		max      int
		expected []string
	}{
		{
			name:     "trims and drops empties",
			in:       []string{" Action ", "", "  ", "Drama"},
			max:      MaxFromSource,
			expected: []string{"Action", "Drama"},
		},
		{
			name:     "dedupes by slug identity",
			in:       []string{"Sci-Fi", "sci fi", "SCI-FI", "Fantasy"},
			max:      MaxFromSource,
			expected: []string{"Sci-Fi", "Fantasy"},
		},
		{
			name:     "caps at max",
			in:       []string{"A", "B", "C", "D", "E", "F", "G"},
			max:      5,
			expected: []string{"A", "B", "C", "D", "E"},
		},
		{
			name:     "unbounded when max is zero",
			in:       []string{"A", "B", "C", "D", "E", "F", "G"},
			max:      0,
			expected: []string{"A", "B", "C", "D", "E", "F", "G"},
		},
		{
			name:     "accent variants collapse",
			in:       []string{"Shōnen", "Shonen"},
			max:      MaxFromSource,
			expected: []string{"Shōnen"},
		},
		{
			name:     "nil input",
			in:       nil,
			max:      MaxFromSource,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.in, tt.max))
		})
	}
}
