// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bus implements the process-wide Change Bus: a multi-consumer
// broadcast channel that the Catalog Store publishes on and that the
// Scheduler Loop and every Connection Handler subscribe to.
//
// Generalized from the hub register/unregister/broadcast shape used by the
// viewer transport's own connection hub, but single-purpose: there is no
// per-subscriber outbound queue of arbitrary messages, only Change values,
// and a lagging subscriber is handled explicitly rather than by dropping it.
package bus

import (
	"sync"

	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/metrics"
	"github.com/stagrim/castad/internal/models"
)

// subscriberDepth is the bounded buffer depth per subscriber (spec'd at 5).
const subscriberDepth = 5

// Lagged is delivered to a subscriber in place of a Change it missed because
// its buffer was full. The subscriber's correct response is to keep
// consuming and re-read live Catalog state on its next reaction, never to
// try to recover the dropped Change's content.
type Lagged struct {
	// Dropped is the number of Change values lost before this notice.
	Dropped int
}

// Event is either a models.Change or a Lagged notice.
type Event struct {
	Change models.Change
	Lagged *Lagged
}

// Subscription is a single consumer's view of the bus.
type Subscription struct {
	id int64
	ch chan Event
	b  *Bus
}

// Recv returns the subscription's channel. Closed when Unsubscribe is
// called or the Bus itself shuts down.
func (s *Subscription) Recv() <-chan Event {
	return s.ch
}

// Unsubscribe removes the subscription from the Bus and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.b.unsubscribe(s)
}

// Bus is a broadcast channel for models.Change values. The zero value is not
// usable; construct with New.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int64]chan Event
	nextID      int64
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[int64]chan Event)}
}

// Subscribe registers a new subscriber and returns its Subscription. The
// subscriber must drain Recv() promptly; a full buffer causes the oldest
// backlog to be dropped in favor of a Lagged notice, never a blocked
// publisher.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberDepth)
	b.subscribers[id] = ch
	metrics.SetBusSubscribers(len(b.subscribers))
	return &Subscription{id: id, ch: ch, b: b}
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[s.id]; ok {
		delete(b.subscribers, s.id)
		close(ch)
		metrics.SetBusSubscribers(len(b.subscribers))
	}
}

// Publish broadcasts a Change to every current subscriber. Publish never
// blocks: a subscriber whose buffer is full has its oldest pending event
// evicted to make room, and is left a Lagged notice in its place.
func (b *Bus) Publish(change models.Change) {
	metrics.RecordBusPublish(string(change.Kind))

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- Event{Change: change}:
		default:
			b.dropOldest(id, ch)
			select {
			case ch <- Event{Change: change}:
			default:
				logging.WithComponent("bus").Warn().Int64("subscriber", id).Msg("subscriber still full after eviction, dropping change")
			}
		}
	}
}

// dropOldest evicts the two oldest queued events for a subscriber, leaving
// room for both a Lagged notice and the incoming Change, and queues the
// Lagged notice; called with mu held.
func (b *Bus) dropOldest(id int64, ch chan Event) {
	dropped := 0
	for dropped < 2 {
		select {
		case <-ch:
			dropped++
			continue
		default:
		}
		break
	}
	if dropped == 0 {
		return
	}
	logging.WithComponent("bus").Warn().Int64("subscriber", id).Msg("subscriber lagged, dropping oldest change")
	metrics.RecordBusLag()
	select {
	case ch <- Event{Lagged: &Lagged{Dropped: dropped}}:
	default:
	}
}

// Subscribers reports the current subscriber count, for diagnostics.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
