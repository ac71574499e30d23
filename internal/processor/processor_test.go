package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/enrich"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
	"github.com/inkshelfapp/inkshelf-server/internal/watcher"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) ofType(et events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, evt := range c.events {
		if evt.Type == et {
			out = append(out, evt)
		}
	}
	return out
}

// stubEnricher records pipeline launches without touching the store.
type stubEnricher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (s *stubEnricher) Enrich(_ context.Context, bookID int64) (*enrich.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, bookID)
	if s.err != nil {
		return nil, s.err
	}
	return &enrich.Outcome{Status: domain.StatusEnriched}, nil
}

func (s *stubEnricher) calls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.ids...)
}

type harness struct {
	t        *testing.T
	store    *store.Store
	emitter  *captureEmitter
	enricher *stubEnricher
	proc     *Processor
	library  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tmp := t.TempDir()
	emitter := &captureEmitter{}
	st, err := store.New(filepath.Join(tmp, "db"), nil, emitter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	library := filepath.Join(tmp, "library")
	require.NoError(t, os.MkdirAll(library, 0o755))

	log := logger.New(logger.Config{Writer: os.Stderr, Level: slog.LevelError}).Logger
	enricher := &stubEnricher{}

	return &harness{
		t:        t,
		store:    st,
		emitter:  emitter,
		enricher: enricher,
		proc:     New(st, enricher, emitter, log),
		library:  library,
	}
}

func (h *harness) countBooks() int {
	h.t.Helper()
	count, err := h.store.CountBooks(context.Background())
	require.NoError(h.t, err)
	return count
}

func added(path string) watcher.Event {
	return watcher.Event{Type: watcher.EventAdded, Path: path}
}

type zipEntry struct {
	name string
	body []byte
}

func writeZipFile(t *testing.T, path string, entries []zipEntry) {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, entry := range entries {
		f, err := w.Create(entry.name)
		require.NoError(t, err)
		_, err = f.Write(entry.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func (h *harness) writeEPUB(filename string) string {
	path := filepath.Join(h.library, filename)
	writeZipFile(h.t, path, []zipEntry{
		{"mimetype", []byte("application/epub+zip")},
		{"META-INF/container.xml", []byte(testContainerXML)},
		{"OEBPS/content.opf", []byte(`<?xml version="1.0"?><package/>`)},
	})
	return path
}

func (h *harness) writeCBZ(filename string) string {
	path := filepath.Join(h.library, filename)
	writeZipFile(h.t, path, []zipEntry{
		{"pages/001.png", []byte("png bytes")},
		{"pages/002.png", []byte("png bytes")},
	})
	return path
}

func TestProcess_CreatesPendingBook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeEPUB("clean-code.epub")

	result := h.proc.Process(ctx, added(path))
	require.Equal(t, ActionCreated, result.Action)
	require.Positive(t, result.BookID)
	assert.Empty(t, result.Reason)

	h.proc.Wait()

	book, err := h.store.GetBook(ctx, result.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, book.Status)
	assert.Equal(t, domain.ContentTypeBook, book.ContentType)
	assert.Equal(t, domain.FileTypeEpub, book.FileType)
	assert.Equal(t, "Clean Code", book.DisplayTitle())
	assert.Equal(t, path, book.FilePath)

	assert.Equal(t, []int64{result.BookID}, h.enricher.calls())

	detected := h.emitter.ofType(events.EventFileDetected)
	require.Len(t, detected, 1)
	payload, ok := detected[0].Payload.(events.FileDetectedPayload)
	require.True(t, ok)
	assert.Equal(t, result.BookID, payload.BookID)
	assert.Equal(t, "clean-code.epub", payload.Filename)
	assert.Equal(t, "book", payload.ContentType)
}

func TestProcess_CreatesMangaFromComicArchive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeCBZ("Berserk_v01.cbz")

	result := h.proc.Process(ctx, added(path))
	require.Equal(t, ActionCreated, result.Action)

	h.proc.Wait()

	book, err := h.store.GetBook(ctx, result.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeManga, book.ContentType)
	assert.Equal(t, domain.FileTypeCbz, book.FileType)
	assert.Equal(t, "Berserk V01", book.DisplayTitle())
}

func TestProcess_SkipsKnownPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeEPUB("dune.epub")

	first := h.proc.Process(ctx, added(path))
	require.Equal(t, ActionCreated, first.Action)

	second := h.proc.Process(ctx, added(path))
	assert.Equal(t, ActionSkipped, second.Action)
	assert.Equal(t, "already in library", second.Reason)
	assert.Zero(t, second.BookID)

	h.proc.Wait()

	assert.Equal(t, 1, h.countBooks())
	assert.Len(t, h.enricher.calls(), 1)
	assert.Len(t, h.emitter.ofType(events.EventFileDetected), 1)
}

func TestProcess_RejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *harness) string
		wantReason string
	}{
		{
			name: "epub that is not a zip",
			setup: func(h *harness) string {
				path := filepath.Join(h.library, "broken.epub")
				require.NoError(h.t, os.WriteFile(path, []byte("not a zip"), 0o644))
				return path
			},
			wantReason: bookfile.ReasonNotZip,
		},
		{
			name: "epub without mimetype",
			setup: func(h *harness) string {
				path := filepath.Join(h.library, "no-mimetype.epub")
				writeZipFile(h.t, path, []zipEntry{
					{"META-INF/container.xml", []byte(testContainerXML)},
				})
				return path
			},
			wantReason: bookfile.ReasonMissingMimetype,
		},
		{
			name: "cbz without images",
			setup: func(h *harness) string {
				path := filepath.Join(h.library, "empty-ish.cbz")
				writeZipFile(h.t, path, []zipEntry{
					{"ComicInfo.xml", []byte("<ComicInfo/>")},
				})
				return path
			},
			wantReason: bookfile.ReasonNoImages,
		},
		{
			name: "cbr that does not exist",
			setup: func(h *harness) string {
				return filepath.Join(h.library, "ghost.cbr")
			},
			wantReason: bookfile.ReasonFileNotFound,
		},
		{
			name: "unsupported extension",
			setup: func(h *harness) string {
				path := filepath.Join(h.library, "notes.txt")
				require.NoError(h.t, os.WriteFile(path, []byte("plain text"), 0o644))
				return path
			},
			wantReason: "Unsupported file extension: .txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			path := tt.setup(h)

			result := h.proc.Process(context.Background(), added(path))
			assert.Equal(t, ActionFailed, result.Action)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.Zero(t, result.BookID)

			h.proc.Wait()

			assert.Equal(t, 0, h.countBooks(), "no row for a rejected file")
			assert.Empty(t, h.emitter.ofType(events.EventFileDetected))
			assert.Empty(t, h.enricher.calls())
		})
	}
}

// Two successive calls on the same path must yield exactly one row, and so
// must any number of concurrent ones.
func TestProcess_ConcurrentSamePath(t *testing.T) {
	h := newHarness(t)
	path := h.writeEPUB("war-and-peace.epub")

	const workers = 8
	results := make([]Result, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = h.proc.Process(context.Background(), added(path))
		}(i)
	}
	close(start)
	wg.Wait()
	h.proc.Wait()

	created := 0
	for _, result := range results {
		switch result.Action {
		case ActionCreated:
			created++
		case ActionSkipped:
		default:
			t.Fatalf("unexpected action %q (reason %q)", result.Action, result.Reason)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, h.countBooks())
	assert.Len(t, h.enricher.calls(), 1)
}

func TestProcess_IgnoresRemovals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeEPUB("kept.epub")

	result := h.proc.Process(ctx, watcher.Event{Type: watcher.EventRemoved, Path: path})
	assert.Equal(t, ActionSkipped, result.Action)
	assert.Equal(t, 0, h.countBooks())
}

func TestProcess_BackgroundFailureDoesNotFailProcess(t *testing.T) {
	h := newHarness(t)
	h.enricher.err = errors.New("pipeline exploded")
	ctx := context.Background()
	path := h.writeEPUB("hyperion.epub")

	result := h.proc.Process(ctx, added(path))
	require.Equal(t, ActionCreated, result.Action)

	h.proc.Wait()

	// The row survives; the failure lives in logs and pipeline state.
	book, err := h.store.GetBook(ctx, result.BookID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, book.Status)
}
