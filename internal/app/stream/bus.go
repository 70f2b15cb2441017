package stream

import (
	"sync"
	"time"

	"github.com/geomind-labs/geomind-agent/internal/domain"
	"github.com/geomind-labs/geomind-agent/internal/observability"
)

// Bus is a single-producer-many-consumer broadcast of domain events.
//
// Publish never blocks: every subscriber has its own buffered channel and a
// full buffer means that subscriber misses the event. There is no replay; a
// subscriber only sees events published after it subscribed.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Event
	nextID int
	buffer int

	now func() time.Time
}

const defaultBuffer = 256

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		subs:   make(map[int]chan domain.Event),
		buffer: buffer,
		now:    time.Now,
	}
}

// Publish fans ev out to all current subscribers, stamping the timestamp if
// the caller left it zero. Events for a slow subscriber are dropped rather
// than stalling the pipeline.
func (b *Bus) Publish(ev domain.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			observability.Logger().Warn("event dropped for slow subscriber",
				"subscriber", id,
				"type", ev.Type,
				"agent", ev.Agent)
		}
	}
}

// Subscribe returns a live event feed and a cancel function. Cancel closes
// the feed and stops delivery; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount reports the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
