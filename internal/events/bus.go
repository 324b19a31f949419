package events

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Bus dispatches engine events to subscribers. Emitters never block: each
// subscriber channel is buffered and events are dropped when a subscriber
// falls behind. Sequence numbers give observers a total order.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	sequence    atomic.Uint64
	closed      bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that will receive events.
// The channel is buffered to prevent blocking emitters.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 128)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit stamps and dispatches an event to all subscribers.
// Safe to call from any goroutine.
func (b *Bus) Emit(ev Event) {
	ev.Seq = b.sequence.Add(1)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- ev:
		default: // Drop if the subscriber is not keeping up
		}
	}
}

// Close shuts down the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}

// Stats returns current bus statistics.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BusStats{
		SubscriberCount: len(b.subscribers),
		TotalEmitted:    b.sequence.Load(),
	}
}

// BusStats holds event bus statistics.
type BusStats struct {
	SubscriberCount int
	TotalEmitted    uint64
}
