// Package events provides the in-process event bus that the ingestion
// pipeline publishes to. Every stage (watcher, processor, enrichment,
// store) emits typed events; consumers subscribe and receive a broadcast
// copy. Event type strings and payload keys are stable wire identifiers.
package events

import "time"

// EventType identifies the kind of event flowing through the bus.
type EventType string

// Event types. The values are stable; downstream consumers key off them.
const (
	// EventFileDetected fires after the processor accepts a detected file
	// and creates its library row.
	EventFileDetected EventType = "file.detected"

	// EventScanCompleted fires once per finished library scan with the
	// scan's aggregate counters.
	EventScanCompleted EventType = "scan.completed"

	// EventEnrichmentStarted fires when a book enters the enrichment
	// pipeline.
	EventEnrichmentStarted EventType = "enrichment.started"

	// EventEnrichmentProgress fires for each step a book passes through.
	EventEnrichmentProgress EventType = "enrichment.progress"

	// EventEnrichmentCompleted fires when a book leaves the pipeline in
	// the enriched state.
	EventEnrichmentCompleted EventType = "enrichment.completed"

	// EventEnrichmentFailed fires when a book is quarantined.
	EventEnrichmentFailed EventType = "enrichment.failed"

	// EventBookUpdated fires whenever the store applies a metadata patch
	// to an existing book.
	EventBookUpdated EventType = "book.updated"
)

// Progress step tags carried in enrichment.progress payloads. Per-source
// steps are derived with StepSearchStarted and friends.
const (
	StepPipelineStarted      = "pipeline-started"
	StepMangaPipelineStarted = "manga-pipeline-started"
	StepMetadataExtracted    = "metadata-extracted"
	StepCoverExtracted       = "cover-extracted"
	StepExtractionComplete   = "extraction-complete"
	StepEnrichmentCompleted  = "enrichment-completed"
	StepEnrichmentFailed     = "enrichment-failed"
)

// StepSearchStarted returns the progress tag for a source's search attempt,
// e.g. "anilist-search-started".
func StepSearchStarted(source string) string { return source + "-search-started" }

// StepMatchFound returns the progress tag for a successful source match.
func StepMatchFound(source string) string { return source + "-match-found" }

// StepNoMatch returns the progress tag for a source that found nothing.
func StepNoMatch(source string) string { return source + "-no-match" }

// Event is a single bus message.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
	Type      EventType `json:"type"`
}

// FileDetectedPayload announces a newly ingested file.
type FileDetectedPayload struct {
	Timestamp   time.Time `json:"timestamp"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	BookID      int64     `json:"bookId"`
}

// ScanCompletedPayload carries the counters of a finished scan.
// Duration is wall-clock time in milliseconds.
type ScanCompletedPayload struct {
	FilesFound     int   `json:"filesFound"`
	FilesProcessed int   `json:"filesProcessed"`
	FilesSkipped   int   `json:"filesSkipped"`
	Errors         int   `json:"errors"`
	Duration       int64 `json:"duration"`
}

// EnrichmentStartedPayload marks a book entering the pipeline.
type EnrichmentStartedPayload struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	BookID      int64  `json:"bookId"`
}

// EnrichmentProgressPayload reports one pipeline step for a book. Data is
// optional step-specific detail (matched title, score, cover path, ...).
type EnrichmentProgressPayload struct {
	Data   any    `json:"data,omitempty"`
	Step   string `json:"step"`
	BookID int64  `json:"bookId"`
}

// EnrichmentCompletedPayload marks a book leaving the pipeline enriched.
// Source names the external source that supplied the match, empty when
// local extraction alone was sufficient.
type EnrichmentCompletedPayload struct {
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
	BookID int64  `json:"bookId"`
}

// EnrichmentFailedPayload marks a book entering quarantine.
type EnrichmentFailedPayload struct {
	FailureReason    string   `json:"failureReason"`
	ContentType      string   `json:"contentType"`
	SourcesAttempted []string `json:"sourcesAttempted"`
	BookID           int64    `json:"bookId"`
}

// BookUpdatedPayload reports a persisted metadata patch.
type BookUpdatedPayload struct {
	Source        string   `json:"source"`
	ExternalID    string   `json:"externalId,omitempty"`
	FieldsUpdated []string `json:"fieldsUpdated"`
	BookID        int64    `json:"bookId"`
}

// NewFileDetectedEvent creates a file.detected event.
func NewFileDetectedEvent(bookID int64, filename, contentType string) Event {
	now := time.Now()
	return Event{
		Type: EventFileDetected,
		Payload: FileDetectedPayload{
			Filename:    filename,
			ContentType: contentType,
			BookID:      bookID,
			Timestamp:   now,
		},
		Timestamp: now,
	}
}

// NewScanCompletedEvent creates a scan.completed event.
func NewScanCompletedEvent(found, processed, skipped, errs int, duration time.Duration) Event {
	return Event{
		Type: EventScanCompleted,
		Payload: ScanCompletedPayload{
			FilesFound:     found,
			FilesProcessed: processed,
			FilesSkipped:   skipped,
			Errors:         errs,
			Duration:       duration.Milliseconds(),
		},
		Timestamp: time.Now(),
	}
}

// NewEnrichmentStartedEvent creates an enrichment.started event.
func NewEnrichmentStartedEvent(bookID int64, filename, contentType string) Event {
	return Event{
		Type: EventEnrichmentStarted,
		Payload: EnrichmentStartedPayload{
			Filename:    filename,
			ContentType: contentType,
			BookID:      bookID,
		},
		Timestamp: time.Now(),
	}
}

// NewEnrichmentProgressEvent creates an enrichment.progress event.
func NewEnrichmentProgressEvent(bookID int64, step string, data any) Event {
	return Event{
		Type: EventEnrichmentProgress,
		Payload: EnrichmentProgressPayload{
			BookID: bookID,
			Step:   step,
			Data:   data,
		},
		Timestamp: time.Now(),
	}
}

// NewEnrichmentCompletedEvent creates an enrichment.completed event.
func NewEnrichmentCompletedEvent(bookID int64, title, source string) Event {
	return Event{
		Type: EventEnrichmentCompleted,
		Payload: EnrichmentCompletedPayload{
			Title:  title,
			Source: source,
			BookID: bookID,
		},
		Timestamp: time.Now(),
	}
}

// NewEnrichmentFailedEvent creates an enrichment.failed event.
func NewEnrichmentFailedEvent(bookID int64, failureReason, contentType string, sourcesAttempted []string) Event {
	return Event{
		Type: EventEnrichmentFailed,
		Payload: EnrichmentFailedPayload{
			FailureReason:    failureReason,
			ContentType:      contentType,
			SourcesAttempted: sourcesAttempted,
			BookID:           bookID,
		},
		Timestamp: time.Now(),
	}
}

// NewBookUpdatedEvent creates a book.updated event.
func NewBookUpdatedEvent(bookID int64, source, externalID string, fieldsUpdated []string) Event {
	return Event{
		Type: EventBookUpdated,
		Payload: BookUpdatedPayload{
			Source:        source,
			ExternalID:    externalID,
			FieldsUpdated: fieldsUpdated,
			BookID:        bookID,
		},
		Timestamp: time.Now(),
	}
}
