package events

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/inkshelfapp/inkshelf-server/internal/id"
)

// Emitter is the producer-side interface of the bus. Pipeline components
// depend on this rather than on the concrete Bus.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter discards every event. Useful for tests and one-shot tools.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

// Subscriber is a registered bus consumer.
type Subscriber struct {
	ConnectedAt time.Time
	Events      chan Event
	Done        chan struct{}
	ID          string
}

// Bus fans events out to all subscribers. Broadcast is best-effort:
// a subscriber that stops draining its channel loses events rather than
// blocking the pipeline.
type Bus struct {
	subscribers map[string]*Subscriber
	events      chan Event
	logger      *slog.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
		events:      make(chan Event, 1000), // Buffer 1000 events
		logger:      logger,
	}
}

// Start begins the broadcast loop.
// This should be called once at startup in a goroutine.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Info("event bus starting")

	for {
		select {
		case event := <-b.events:
			b.broadcast(event)

		case <-ctx.Done():
			b.logger.Info("event bus stopping")
			b.closeAllSubscribers()
			return
		}
	}
}

// Shutdown gracefully shuts down the bus.
// It stops accepting new events, drains remaining events, and closes all
// subscribers.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("event bus shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents race with Emit() which holds read lock during send.
	b.shutdownMu.Lock()
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	// Drain remaining events with context timeout.
	done := make(chan struct{})
	go func() {
		for event := range b.events {
			b.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event backlog drained")
	case <-ctx.Done():
		b.logger.Warn("event drain timeout, some events may be lost")
	}

	// Wait for broadcast goroutine to exit.
	b.wg.Wait()

	b.logger.Info("event bus shutdown complete")
	return nil
}

// broadcast sends an event to every subscriber.
func (b *Bus) broadcast(event Event) {
	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		// Non-blocking send (drop if subscriber is slow/stuck).
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("subscriber_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	b.logger.Debug("event broadcast",
		slog.String("event_type", string(event.Type)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped)))
}

// Subscribe registers a new consumer and returns its subscriber handle.
// The caller reads from Events until Done is closed.
func (b *Bus) Subscribe() (*Subscriber, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:          subID,
		Events:      make(chan Event, 100), // Buffer 100 events per subscriber
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Info("bus subscriber registered",
		slog.String("subscriber_id", subID),
		slog.Int("total_subscribers", total))
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channels.
func (b *Bus) Unsubscribe(subID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subID)
	total := len(b.subscribers)
	b.mu.Unlock()

	close(sub.Done)
	close(sub.Events)

	b.logger.Info("bus subscriber removed",
		slog.String("subscriber_id", subID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)),
		slog.Int("total_subscribers", total))
}

// Emit queues an event for broadcasting. It never blocks the caller:
// when the queue is full the event is dropped and logged.
func (b *Bus) Emit(event Event) {
	// Hold read lock through the entire send operation.
	// This prevents race with Shutdown() which holds write lock when
	// closing the channel.
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		// Silently drop events after shutdown - expected during teardown.
		return
	}

	select {
	case b.events <- event:
		// Event queued for broadcast.
	default:
		// Queue full, log and drop. Should rarely happen with a
		// 1000-event buffer; may occur during initial library scans.
		b.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Subscribers returns an iterator over all registered subscribers.
func (b *Bus) Subscribers() iter.Seq[*Subscriber] {
	return func(yield func(*Subscriber) bool) {
		b.mu.RLock()
		defer b.mu.RUnlock()

		for _, sub := range b.subscribers {
			if !yield(sub) {
				return
			}
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// closeAllSubscribers closes every subscriber (used during shutdown).
func (b *Bus) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub.Done)
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber) // Clear the map

	b.logger.Info("all bus subscribers closed")
}
