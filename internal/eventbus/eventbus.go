// Package eventbus broadcasts Record-changed events to dynamically
// attached subscribers. The canonical state lives in the Store; these
// events are hints for UI refresh, so a slow or stalled subscriber must
// never block the engine (spec §4.3).
package eventbus

import (
	"sync"

	"downforge/internal/logger"
	"downforge/internal/record"
)

// DefaultBufferSize is the recommended per-subscriber channel capacity
// from spec §4.3.
const DefaultBufferSize = 64

// Event is one Record state change.
type Event struct {
	Record record.Record
}

type subscriber struct {
	ch     chan Event
	closed bool
}

// Subscription is the handle returned by Subscribe. Closing it detaches
// the subscriber from the Bus.
type Subscription struct {
	bus *Bus
	sub *subscriber
}

// Events returns the channel to range over for this subscription.
func (s *Subscription) Events() <-chan Event {
	return s.sub.ch
}

// Close detaches the subscription, closing its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.sub)
}

// Bus is a lossy multi-subscriber broadcast of Record events. Emit
// takes only a read lock and never waits on a subscriber. Grounded on the seedreap internal/events bus pattern
// (slice of subscriber entries behind a sync.RWMutex, non-blocking
// send-or-drop), narrowed here to this engine's single Record-event
// payload.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	bufferSize  int
}

// New creates a Bus. bufferSize <= 0 uses DefaultBufferSize.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{bufferSize: bufferSize}
}

// Subscribe attaches a new subscriber and returns its handle.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{ch: make(chan Event, b.bufferSize)}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	return &Subscription{bus: b, sub: sub}
}

func (b *Bus) unsubscribe(target *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == target {
			if !sub.closed {
				close(sub.ch)
				sub.closed = true
			}
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Emit publishes r to every subscriber. Non-blocking: a subscriber
// whose buffer is full has the new event dropped for it (spec §4.3's
// "drop the newest event" policy), and Emit never blocks the caller.
func (b *Bus) Emit(r record.Record) {
	ev := Event{Record: r}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			logger.Log.Warn().
				Str("path", r.Path).
				Str("status", string(r.Status)).
				Msg("eventbus: subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount reports how many subscribers are currently attached.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close detaches and closes every subscriber's channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		if !sub.closed {
			close(sub.ch)
			sub.closed = true
		}
	}
	b.subscribers = nil
}
