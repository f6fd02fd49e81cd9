package feed

import (
	"context"
	"sync"
)

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// subscriberBuffer bounds how far a subscriber may fall behind before
// events are dropped for it. Clients re-fetch state on reconnect.
const subscriberBuffer = 16

// Broker is an in-process pub/sub for feed events, keyed by topic.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}

	// OnDrop is called when a slow subscriber misses an event.
	OnDrop func(topic string)
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events for every given topic.
func (b *Broker) Subscribe(topics ...string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[chan Event]struct{})
		}
		b.subs[t][ch] = struct{}{}
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch from the given topics.
func (b *Broker) Unsubscribe(ch chan Event, topics ...string) {
	b.mu.Lock()
	for _, t := range topics {
		delete(b.subs[t], ch)
		if len(b.subs[t]) == 0 {
			delete(b.subs, t)
		}
	}
	b.mu.Unlock()
}

// Publish sends ev to all subscribers of its topic without blocking.
func (b *Broker) Publish(_ context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			if b.OnDrop != nil {
				b.OnDrop(ev.Topic)
			}
		}
	}
}

// Subscribers returns the number of channels subscribed to topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
