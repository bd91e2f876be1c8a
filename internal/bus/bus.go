// Package bus fans tick batches out from the price simulator to any number
// of consumers, decoupling producer cadence from consumer count.
package bus

import (
	"sync"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// Handler consumes one tick batch. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(models.TickBatch)

// Subscription is the token returned by Subscribe. Unsubscribing by token is
// idempotent, so the same handler function can be registered more than once.
type Subscription uint64

type entry struct {
	id Subscription
	fn Handler
}

// Bus delivers batches to subscribers in subscription order and replays the
// most recent batch to a late subscriber at registration time.
type Bus struct {
	mu      sync.Mutex
	nextID  Subscription
	entries []entry
	last    *models.TickBatch
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn and, if any batch has been published, immediately
// invokes fn once with the latest batch so a late subscriber is not left
// blank until the next tick.
func (b *Bus) Subscribe(fn Handler) Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.entries = append(b.entries, entry{id: id, fn: fn})
	last := b.last
	b.mu.Unlock()

	if last != nil {
		fn(*last)
	}
	return id
}

// Unsubscribe removes the subscription; unknown tokens are a no-op.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Publish synchronously invokes every current subscriber with the batch.
// Delivery iterates a stable copy of the subscriber set, so a handler that
// subscribes or unsubscribes during delivery does not affect the current
// pass.
func (b *Bus) Publish(batch models.TickBatch) {
	b.mu.Lock()
	b.last = &batch
	targets := make([]entry, len(b.entries))
	copy(targets, b.entries)
	b.mu.Unlock()

	for _, e := range targets {
		e.fn(batch)
	}
}

// Last returns the most recently published batch, if any.
func (b *Bus) Last() (models.TickBatch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return models.TickBatch{}, false
	}
	return *b.last, true
}
