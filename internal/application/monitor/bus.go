package monitor

import (
	"sync"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

const subscriberBuffer = 64

// Bus fans typed events out to independent subscribers.
// Publish never blocks: a subscriber that falls behind loses events rather
// than stalling the monitor loop.
type Bus struct {
	mu   sync.Mutex
	subs []chan domain.Event
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan domain.Event {
	ch := make(chan domain.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber that has buffer room.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // subscriber full — drop
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
