package state

import (
	"sync"

	"github.com/user/widgetsmith/internal/types"
)

// subscriberBuffer is the per-subscriber channel capacity once attached.
// A subscriber that falls more than this far behind starts losing events;
// the backlog for an empty room is unbounded instead, because a producer
// must never block or drop on the absence of a consumer.
const subscriberBuffer = 256

// Bus is a session's ordered notification queue: one producer (the
// pipeline), any number of subscribers attaching and detaching over time.
// Events published while nobody is attached are buffered and handed to the
// next subscriber that attaches; subscribers attaching later receive only
// events published after their attachment.
type Bus struct {
	mu      sync.Mutex
	backlog []types.Event
	subs    map[int]chan types.Event
	nextID  int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan types.Event)}
}

// Publish delivers an event to all attached subscribers, or buffers it if
// none are attached. Publish never blocks: a full subscriber channel drops
// that subscriber's copy of the event.
func (b *Bus) Publish(ev types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		b.backlog = append(b.backlog, ev)
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe attaches a new subscriber and returns its event channel plus a
// detach function. Any backlog buffered while the bus had no subscribers
// is delivered to this subscriber first, in publication order. Detaching
// closes the channel; it is safe to call the detach function once.
func (b *Bus) Subscribe() (<-chan types.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := subscriberBuffer
	if n := len(b.backlog); n > capacity {
		capacity = n
	}
	ch := make(chan types.Event, capacity)
	for _, ev := range b.backlog {
		ch <- ev
	}
	b.backlog = nil

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	detach := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, detach
}

// Subscribers returns the number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
