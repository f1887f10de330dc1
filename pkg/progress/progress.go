// Package progress implements ProgressBus (spec.md §4.9, C9): an
// in-process publish/subscribe event channel carrying the closed set
// of event variants emitted by planning, execution, and aggregation.
// There is no pub/sub library anywhere in the retrieval pack for
// in-process (not distributed) event delivery, and spec.md §1 scopes
// a message broker out of the core — channel-based fan-out is the
// idiomatic Go rendering of the source's implicit SSE/callback stream
// (`server/application/routes/main.py`).
package progress

import (
	"sync"
	"time"
)

// EventType is the closed set of progress events from spec.md §4.9.
type EventType string

const (
	EventClassifying        EventType = "classifying"
	EventDatabasesSelected   EventType = "databases_selected"
	EventPlanning            EventType = "planning"
	EventPlanValidated       EventType = "plan_validated"
	EventSchemaLoading       EventType = "schema_loading"
	EventSchemaChunks        EventType = "schema_chunks"
	EventQueryGenerating     EventType = "query_generating"
	EventQueryValidating     EventType = "query_validating"
	EventQueryExecuting      EventType = "query_executing"
	EventOperationStarted    EventType = "operation_started"
	EventOperationCompleted  EventType = "operation_completed"
	EventOperationFailed     EventType = "operation_failed"
	EventPartialResults      EventType = "partial_results"
	EventAggregating         EventType = "aggregating"
	EventAggregationComplete EventType = "aggregation_complete"
	EventError               EventType = "error"
	EventComplete            EventType = "complete"
)

// Event is the structured value published on the bus. Fields beyond
// Type/Timestamp/SessionID are kind-specific and carried in Data to
// avoid a combinatorial field explosion across 17 variants.
type Event struct {
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	SessionID   string         `json:"session_id"`
	OperationID string         `json:"operation_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// subscriberBufferSize bounds each subscriber's channel; a full
// channel drops its oldest pending event rather than blocking the
// publisher (spec.md §4.9, §5).
const subscriberBufferSize = 256

type subscriber struct {
	id int
	ch chan Event
}

// Bus is a drop-oldest, at-least-once in-process pub/sub channel. The
// zero value is not usable; construct with NewBus.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int

	// DroppedEvents counts events dropped because a subscriber's
	// channel was full. Nothing in this module copies it into
	// pkg/metrics' ProgressEventsDropped counter.
	DroppedEvents uint64
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]*subscriber)}
}

// Subscribe registers a new listener and returns its event channel
// plus an unsubscribe function. The channel is closed once unsubscribe
// is called; callers must not publish onto the returned channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{id: id, ch: make(chan Event, subscriberBufferSize)}
	b.subscribers[id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(s.ch)
		}
	}
	return sub.ch, unsubscribe
}

// Publish fans an event out to every current subscriber, non-blocking.
// A subscriber whose channel is full has its oldest pending event
// dropped to make room, per spec.md §4.9's "a slow subscriber must not
// stall the executor" requirement.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
		default:
			// Channel full: drop the oldest event to admit this one.
			select {
			case <-sub.ch:
				b.DroppedEvents++
			default:
			}
			select {
			case sub.ch <- ev:
			default:
				// Still full (concurrent publisher won the race); give up.
				b.DroppedEvents++
			}
		}
	}
}

// Close closes every subscriber channel and clears the subscriber set.
// Intended for shutdown; Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
