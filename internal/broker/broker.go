// Package broker fans out in-process change notifications keyed by topic.
//
// Notifications carry no payload. Each subscriber has a one-slot buffer, so a burst of
// publishes collapses into a single wake-up and Publish never blocks.
package broker

import "sync"

// Broker routes notifications from publishers to topic subscribers.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan struct{}
}

// New returns an empty broker.
func New() *Broker {
	return &Broker{subs: make(map[string]map[uint64]chan struct{})}
}

// Subscribe registers interest in topic. The returned cancel func is idempotent and
// closes the channel.
func (b *Broker) Subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan struct{})
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish wakes every subscriber of topic.
func (b *Broker) Publish(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports how many subscribers topic has.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
