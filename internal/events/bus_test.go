package events

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventConstructors(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		wantType EventType
	}{
		{"file detected", NewFileDetectedEvent(1, "clean-code.epub", "book"), EventFileDetected},
		{"scan completed", NewScanCompletedEvent(3, 2, 1, 0, time.Second), EventScanCompleted},
		{"enrichment started", NewEnrichmentStartedEvent(1, "clean-code.epub", "book"), EventEnrichmentStarted},
		{"enrichment progress", NewEnrichmentProgressEvent(1, StepMetadataExtracted, nil), EventEnrichmentProgress},
		{"enrichment completed", NewEnrichmentCompletedEvent(1, "Clean Code", "openlibrary"), EventEnrichmentCompleted},
		{"enrichment failed", NewEnrichmentFailedEvent(1, "No enrichment sources available", "book", nil), EventEnrichmentFailed},
		{"book updated", NewBookUpdatedEvent(1, "anilist", "30002", []string{"title"}), EventBookUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.event.Type)
			assert.False(t, tt.event.Timestamp.IsZero())
			assert.NotNil(t, tt.event.Payload)
		})
	}
}

func TestEventPayloads(t *testing.T) {
	t.Run("scan completed converts duration to milliseconds", func(t *testing.T) {
		evt := NewScanCompletedEvent(3, 2, 1, 0, 1500*time.Millisecond)
		payload, ok := evt.Payload.(ScanCompletedPayload)
		require.True(t, ok)
		assert.Equal(t, 3, payload.FilesFound)
		assert.Equal(t, 2, payload.FilesProcessed)
		assert.Equal(t, 1, payload.FilesSkipped)
		assert.Equal(t, 0, payload.Errors)
		assert.Equal(t, int64(1500), payload.Duration)
	})

	t.Run("enrichment failed carries attempted sources", func(t *testing.T) {
		evt := NewEnrichmentFailedEvent(7,
			"openlibrary: No match found. googlebooks: No match found",
			"book", []string{"openlibrary", "googlebooks"})
		payload, ok := evt.Payload.(EnrichmentFailedPayload)
		require.True(t, ok)
		assert.Equal(t, int64(7), payload.BookID)
		assert.Equal(t, "book", payload.ContentType)
		assert.Equal(t, []string{"openlibrary", "googlebooks"}, payload.SourcesAttempted)
	})

	t.Run("book updated lists patched fields", func(t *testing.T) {
		evt := NewBookUpdatedEvent(9, "mangadex", "a96676e5-8ae2-425e-b549-7f15dd34a6d8",
			[]string{"title", "description", "genres"})
		payload, ok := evt.Payload.(BookUpdatedPayload)
		require.True(t, ok)
		assert.Equal(t, "mangadex", payload.Source)
		assert.Len(t, payload.FieldsUpdated, 3)
	})
}

func TestEventWireKeys(t *testing.T) {
	evt := NewScanCompletedEvent(3, 2, 1, 0, time.Second)
	data, err := json.Marshal(evt)
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, `"type":"scan.completed"`)
	assert.Contains(t, raw, `"filesFound":3`)
	assert.Contains(t, raw, `"filesProcessed":2`)
	assert.Contains(t, raw, `"filesSkipped":1`)
	assert.Contains(t, raw, `"errors":0`)
	assert.Contains(t, raw, `"duration":1000`)
}

func TestStepTags(t *testing.T) {
	assert.Equal(t, "openlibrary-search-started", StepSearchStarted("openlibrary"))
	assert.Equal(t, "anilist-match-found", StepMatchFound("anilist"))
	assert.Equal(t, "mangadex-no-match", StepNoMatch("mangadex"))
}

func TestBus_BroadcastDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(testLogger())

	first, err := bus.Subscribe()
	require.NoError(t, err)
	second, err := bus.Subscribe()
	require.NoError(t, err)
	require.Equal(t, 2, bus.SubscriberCount())

	bus.broadcast(NewFileDetectedEvent(42, "berserk_v01.cbz", "manga"))

	for _, sub := range []*Subscriber{first, second} {
		select {
		case evt := <-sub.Events:
			require.Equal(t, EventFileDetected, evt.Type)
			payload, ok := evt.Payload.(FileDetectedPayload)
			require.True(t, ok)
			assert.Equal(t, int64(42), payload.BookID)
			assert.Equal(t, "manga", payload.ContentType)
		default:
			t.Fatalf("subscriber %s received no event", sub.ID)
		}
	}
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(testLogger())

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	// The per-subscriber buffer holds 100 events; the overflow must be
	// dropped without blocking the broadcaster.
	for i := range 150 {
		bus.broadcast(NewEnrichmentProgressEvent(int64(i), StepMetadataExtracted, nil))
	}

	assert.Equal(t, 100, len(sub.Events))
}

func TestBus_StartDeliversEmittedEvents(t *testing.T) {
	bus := NewBus(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	bus.Emit(NewEnrichmentStartedEvent(3, "dune.epub", "book"))

	select {
	case evt := <-sub.Events:
		assert.Equal(t, EventEnrichmentStarted, evt.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestBus_ShutdownDrainsQueuedEvents(t *testing.T) {
	bus := NewBus(testLogger())

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	bus.Emit(NewBookUpdatedEvent(5, "googlebooks", "zyTCAlFPjgYC", []string{"isbn"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	select {
	case evt := <-sub.Events:
		assert.Equal(t, EventBookUpdated, evt.Type)
	default:
		t.Fatal("queued event was not drained during shutdown")
	}

	// Emitting after shutdown is a silent no-op.
	bus.Emit(NewBookUpdatedEvent(6, "openlibrary", "OL123M", nil))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(testLogger())

	sub, err := bus.Subscribe()
	require.NoError(t, err)
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(sub.ID)
	assert.Equal(t, 0, bus.SubscriberCount())

	select {
	case <-sub.Done:
	default:
		t.Fatal("expected Done to be closed after unsubscribe")
	}

	// Unsubscribing twice is a no-op.
	bus.Unsubscribe(sub.ID)
}

func TestNoopEmitter(t *testing.T) {
	var emitter Emitter = NoopEmitter{}
	emitter.Emit(NewFileDetectedEvent(1, "a.epub", "book"))
}
