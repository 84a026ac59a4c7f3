package notifier

import (
	"context"
	"sync"
)

// Broker fans OpenedEvents out to in-process subscribers. Publish never
// blocks on a slow subscriber, each subscription has its own buffer and a
// full buffer drops the event for that subscriber only.
type Broker struct {
	mu   sync.Mutex
	subs map[int]chan OpenedEvent
	next int
}

var _ Notifier = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{subs: map[int]chan OpenedEvent{}}
}

func (b *Broker) Publish(_ context.Context, event OpenedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of future events and a cancel function. The
// channel is closed on cancel.
func (b *Broker) Subscribe() (<-chan OpenedEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan OpenedEvent, 128)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
