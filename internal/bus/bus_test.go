package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	t.Run("delivers to subscribers in registration order", func(t *testing.T) {
		b := New()
		var order []string

		b.Subscribe(TopicAuthError, func() { order = append(order, "first") })
		b.Subscribe(TopicAuthError, func() { order = append(order, "second") })
		b.Subscribe(TopicAuthError, func() { order = append(order, "third") })

		b.Publish(TopicAuthError)

		assert.Equal(t, []string{"first", "second", "third"}, order)
	})

	t.Run("topics are independent", func(t *testing.T) {
		b := New()
		authCalls := 0
		pairCalls := 0

		b.Subscribe(TopicAuthError, func() { authCalls++ })
		b.Subscribe(TopicPairingSuccess, func() { pairCalls++ })

		b.Publish(TopicPairingSuccess)

		assert.Equal(t, 0, authCalls)
		assert.Equal(t, 1, pairCalls)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		b := New()
		calls := 0

		unsub := b.Subscribe(TopicAuthError, func() { calls++ })
		b.Publish(TopicAuthError)
		unsub()
		b.Publish(TopicAuthError)

		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, b.SubscriberCount(TopicAuthError))
	})

	t.Run("unsubscribing twice is harmless", func(t *testing.T) {
		b := New()
		unsub := b.Subscribe(TopicAuthError, func() {})
		b.Subscribe(TopicAuthError, func() {})

		unsub()
		unsub()

		assert.Equal(t, 1, b.SubscriberCount(TopicAuthError))
	})

	t.Run("panicking subscriber does not block later subscribers", func(t *testing.T) {
		b := New()
		reached := false

		b.Subscribe(TopicAuthError, func() { panic("boom") })
		b.Subscribe(TopicAuthError, func() { reached = true })

		assert.NotPanics(t, func() { b.Publish(TopicAuthError) })
		assert.True(t, reached)
	})

	t.Run("no replay for late subscribers", func(t *testing.T) {
		b := New()
		b.Publish(TopicPairingSuccess)

		calls := 0
		b.Subscribe(TopicPairingSuccess, func() { calls++ })

		assert.Equal(t, 0, calls)
	})

	t.Run("subscriber may unsubscribe itself during delivery", func(t *testing.T) {
		b := New()
		calls := 0
		var unsub func()
		unsub = b.Subscribe(TopicAuthError, func() {
			calls++
			unsub()
		})

		b.Publish(TopicAuthError)
		b.Publish(TopicAuthError)

		assert.Equal(t, 1, calls)
	})
}
