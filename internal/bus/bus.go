// Package bus is the process-wide notification channel for authentication
// state changes. The request layer and pairing machine publish here; any
// component that must react to a logout or a fresh pairing subscribes.
package bus

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Topic string

const (
	// TopicAuthError fires when the client has been deauthenticated.
	TopicAuthError Topic = "auth-error"
	// TopicPairingSuccess fires after a pairing completion stored a token.
	TopicPairingSuccess Topic = "pairing-success"
)

type Handler func()

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus delivers published topics synchronously to all current subscribers in
// registration order. There is no buffering: a subscription registered after
// a publish never observes that publish.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]subscriber
}

func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscriber)}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscriber{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, s := range subs {
			if s.id == id {
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the topic to every current subscriber. A panicking
// subscriber must not prevent delivery to the rest.
func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	for _, s := range subs {
		deliver(topic, s)
	}
}

func deliver(topic Topic, s subscriber) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("topic", string(topic)).
				Interface("panic", r).
				Msg("bus subscriber panicked")
		}
	}()
	s.handler()
}

// SubscriberCount reports the current number of subscribers for a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
