// Package events provides an in-process broker for store mutation events
// and a WebSocket handler that streams them to connected clients.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Op identifies the mutation that produced an event.
type Op string

const (
	OpEntityCreated Op = "entity_created"
	OpEntityUpdated Op = "entity_updated"
	OpEntityDeleted Op = "entity_deleted"
	OpFactAdded     Op = "fact_added"
	OpNoteAdded     Op = "note_added"
	OpSummarySaved  Op = "summary_saved"
	OpImported      Op = "imported"
	OpCleared       Op = "cleared"
)

// Event describes a single store mutation.
type Event struct {
	Op   Op        `json:"op"`
	Kind string    `json:"kind,omitempty"`
	ID   string    `json:"id,omitempty"`
	At   time.Time `json:"at"`
}

// defaultBuffer is the per-subscriber channel capacity.
const defaultBuffer = 64

// Broker fans mutation events out to subscribers. Publish never blocks:
// when a subscriber's buffer is full the oldest pending event is dropped.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	logger *slog.Logger
	closed bool
}

// NewBroker creates a broker. A nil logger disables drop warnings.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broker{
		subs:   make(map[chan Event]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber and returns its channel along with a
// cancel function. The cancel function is idempotent.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, defaultBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Slow subscribers lose
// their oldest buffered event instead of blocking the publisher.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
			b.logger.Warn("slow event subscriber, dropped oldest event", "op", ev.Op)
		}
	}
}

// Close shuts the broker down and closes every subscriber channel.
// Publish and Subscribe become no-ops afterwards.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
