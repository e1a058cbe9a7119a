package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/vango-dev/store/internal/errors"
)

// Listener receives published values.
type Listener func(value any)

// Unsubscribe removes a listener. Calling it more than once is a no-op.
type Unsubscribe func()

// subscription is one registered listener.
type subscription struct {
	id     uint64
	fn     Listener
	once   bool
	active atomic.Bool
}

// PubSub is a topic-keyed listener registry. The zero value is not usable;
// create one with New.
type PubSub struct {
	mu     sync.RWMutex
	topics map[string][]*subscription
	nextID uint64
}

// New creates an empty PubSub.
func New() *PubSub {
	return &PubSub{
		topics: make(map[string][]*subscription),
	}
}

// Subscribe registers fn for topic and returns its unsubscribe handle.
// Panics with a contract error if fn is nil.
func (p *PubSub) Subscribe(topic string, fn Listener) Unsubscribe {
	return p.add(topic, fn, false)
}

// SubscribeOnce registers fn for the next publish on topic only.
func (p *PubSub) SubscribeOnce(topic string, fn Listener) Unsubscribe {
	return p.add(topic, fn, true)
}

func (p *PubSub) add(topic string, fn Listener, once bool) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("pubsub topic %q", topic))
	}

	p.mu.Lock()
	p.nextID++
	sub := &subscription{id: p.nextID, fn: fn, once: once}
	sub.active.Store(true)
	p.topics[topic] = append(p.topics[topic], sub)
	p.mu.Unlock()

	return func() {
		if sub.active.CompareAndSwap(true, false) {
			p.remove(topic, sub.id)
		}
	}
}

// remove deletes a subscription by ID, preserving the order of the rest.
func (p *PubSub) remove(topic string, id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.topics[topic]
	for i, s := range subs {
		if s.id == id {
			p.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(p.topics[topic]) == 0 {
		delete(p.topics, topic)
	}
}

// Publish calls every listener of topic with value and returns how many
// listeners were called.
func (p *PubSub) Publish(topic string, value any) int {
	// Copy subscribers while holding lock
	p.mu.RLock()
	subs := make([]*subscription, len(p.topics[topic]))
	copy(subs, p.topics[topic])
	p.mu.RUnlock()

	called := 0
	for _, s := range subs {
		if s.once {
			if !s.active.CompareAndSwap(true, false) {
				continue
			}
			p.remove(topic, s.id)
		} else if !s.active.Load() {
			continue
		}
		s.fn(value)
		called++
	}
	return called
}

// Count returns the number of listeners subscribed to topic.
func (p *PubSub) Count(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.topics[topic])
}

// Topics returns the topics that currently have listeners.
func (p *PubSub) Topics() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	topics := make([]string, 0, len(p.topics))
	for t := range p.topics {
		topics = append(topics, t)
	}
	return topics
}

// Clear removes every listener of topic. Their unsubscribe handles become
// no-ops.
func (p *PubSub) Clear(topic string) {
	p.mu.Lock()
	subs := p.topics[topic]
	delete(p.topics, topic)
	p.mu.Unlock()

	for _, s := range subs {
		s.active.Store(false)
	}
}
