package openlibrary

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client := New(Config{BaseURL: server.URL, Timeout: 2 * time.Second}, nil, logger)
	// No backoff sleeps in tests.
	client.retry.MaxRetries = 0

	return client, server
}

func TestClient_SearchByTitle(t *testing.T) {
	fixture := loadFixture(t, "search_response.json")

	tests := []struct {
		name       string
		response   []byte
		statusCode int
		wantCount  int
		wantErr    error
	}{
		{
			name:       "successful search",
			response:   fixture,
			statusCode: http.StatusOK,
			wantCount:  2,
		},
		{
			name:       "empty results",
			response:   []byte(`{"numFound": 0, "docs": []}`),
			statusCode: http.StatusOK,
			wantCount:  0,
		},
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			wantErr:    metadata.ErrNotFound,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			wantErr:    metadata.ErrRateLimited,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			wantErr:    metadata.ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.response != nil {
					w.Write(tt.response)
				}
			}

			client, server := newTestClient(t, handler)
			defer server.Close()

			docs, err := client.SearchByTitle(context.Background(), "the lord of the rings", "tolkien")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(docs) != tt.wantCount {
				t.Errorf("got %d docs, want %d", len(docs), tt.wantCount)
			}
		})
	}
}

func TestClient_SearchByTitle_ParsesDocs(t *testing.T) {
	fixture := loadFixture(t, "search_response.json")

	var gotQuery string
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != metadata.UserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(fixture)
	}

	client, server := newTestClient(t, handler)
	defer server.Close()

	docs, err := client.SearchByTitle(context.Background(), "The Lord of the Rings", "J.R.R. Tolkien")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}

	doc := docs[0]
	if doc.Title != "The Lord of the Rings" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Author() != "J.R.R. Tolkien" {
		t.Errorf("author = %q", doc.Author())
	}
	if doc.BestISBN() != "9780618640157" {
		t.Errorf("best isbn = %q, want the ISBN-13", doc.BestISBN())
	}
	if doc.FirstPublishYear != 1954 {
		t.Errorf("first publish year = %d", doc.FirstPublishYear)
	}
	if doc.FirstPublisher() != "Houghton Mifflin" {
		t.Errorf("publisher = %q", doc.FirstPublisher())
	}
	if doc.CoverID != 9255566 {
		t.Errorf("cover id = %d", doc.CoverID)
	}

	for _, want := range []string{"title=The+Lord+of+the+Rings", "author=J.R.R.+Tolkien", "fields="} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestClient_SearchByISBN(t *testing.T) {
	var gotQuery string
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"numFound": 0, "docs": []}`))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()

	if _, err := client.SearchByISBN(context.Background(), "9780547928227"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "q=isbn%3A9780547928227") {
		t.Errorf("query %q missing fielded isbn term", gotQuery)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	attempts := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"numFound": 0, "docs": []}`))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	client.retry.MaxRetries = 2
	client.retry.Backoff = func(int) time.Duration { return 0 }

	if _, err := client.SearchByTitle(context.Background(), "dune", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("got %d attempts, want 2", attempts)
	}
}

func TestClient_CoverURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	client := New(Config{}, nil, logger)

	doc := &Doc{CoverID: 9255566}
	want := "https://covers.openlibrary.org/b/id/9255566-L.jpg"
	if got := client.CoverURL(doc); got != want {
		t.Errorf("CoverURL = %q, want %q", got, want)
	}

	if got := client.CoverURL(&Doc{}); got != "" {
		t.Errorf("CoverURL without cover id = %q, want empty", got)
	}
	if got := client.CoverURL(nil); got != "" {
		t.Errorf("CoverURL(nil) = %q, want empty", got)
	}
}
