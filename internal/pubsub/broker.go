// Package pubsub implements the in-process, trigger-keyed notification
// broker. Producers publish status events to a trigger; every stream
// registered for that trigger receives its own copy. The broker is scoped to
// a single process and delivery is best effort: events published to a
// trigger with no streams are dropped.
package pubsub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satsignal/satsignal/internal/domain"
)

// streamBuffer bounds how far a consumer may fall behind before events are
// dropped for it.
const streamBuffer = 16

// DefaultFlushDelay is how long a deferred publish is held before delivery.
// It must be long enough for the publisher to register its own stream for
// the same trigger within the same call.
const DefaultFlushDelay = 10 * time.Millisecond

// Stream is one consumer's subscription to a trigger. Events arrive on the
// channel returned by Events in publish order.
type Stream struct {
	id      uuid.UUID
	trigger Trigger
	broker  *Broker
	ch      chan domain.StatusEvent
	once    sync.Once
}

// Trigger returns the trigger this stream is registered for.
func (s *Stream) Trigger() Trigger {
	return s.trigger
}

// Events returns the channel events are delivered on. The channel is closed
// when the stream is closed; the broker never closes it on its own.
func (s *Stream) Events() <-chan domain.StatusEvent {
	return s.ch
}

// Close detaches the stream from the broker and closes its channel. Later
// publishes to the trigger no longer reach this stream; armed expiry timers
// keep running and their publishes become no-ops once no streams remain.
func (s *Stream) Close() {
	s.broker.detach(s)
}

// Broker routes status events from publishers to registered streams, keyed
// by trigger. The trigger table is the only shared mutable state and is
// guarded by a mutex, since timer callbacks publish from their own
// goroutines.
type Broker struct {
	flushDelay time.Duration

	mu       sync.Mutex
	streams  map[Trigger]map[uuid.UUID]*Stream
	deferred map[Trigger][]domain.StatusEvent
}

// NewBroker creates a broker with the default deferred flush delay.
func NewBroker() *Broker {
	return NewBrokerWithFlushDelay(DefaultFlushDelay)
}

// NewBrokerWithFlushDelay creates a broker whose deferred publishes are held
// for the given delay before delivery.
func NewBrokerWithFlushDelay(delay time.Duration) *Broker {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Broker{
		flushDelay: delay,
		streams:    make(map[Trigger]map[uuid.UUID]*Stream),
		deferred:   make(map[Trigger][]domain.StatusEvent),
	}
}

// CreateStream registers a new consumer for the trigger. The stream receives
// every event published to the trigger after registration, including
// deferred publishes issued earlier in the same call whose flush delay has
// not yet elapsed.
func (b *Broker) CreateStream(trigger Trigger) *Stream {
	s := &Stream{
		id:      uuid.New(),
		trigger: trigger,
		broker:  b,
		ch:      make(chan domain.StatusEvent, streamBuffer),
	}

	b.mu.Lock()
	set := b.streams[trigger]
	if set == nil {
		set = make(map[uuid.UUID]*Stream)
		b.streams[trigger] = set
	}
	set[s.id] = s
	b.mu.Unlock()

	activeStreams.Inc()
	return s
}

// Publish delivers the event to every stream currently registered for the
// trigger. With no streams registered the event is silently dropped.
func (b *Broker) Publish(trigger Trigger, event domain.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliver(trigger, event)
}

// PublishDeferred schedules the event for delivery after the flush delay.
// This closes the race between computing an initial status and the caller
// attaching its stream: the caller registers the stream synchronously, the
// event arrives one turn later. Events still pending for the trigger flush
// together, in the order they were deferred.
func (b *Broker) PublishDeferred(trigger Trigger, event domain.StatusEvent) {
	b.mu.Lock()
	pending := b.deferred[trigger]
	b.deferred[trigger] = append(pending, event)
	b.mu.Unlock()

	if len(pending) == 0 {
		time.AfterFunc(b.flushDelay, func() {
			b.flush(trigger)
		})
	}
}

func (b *Broker) flush(trigger Trigger) {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.deferred[trigger]
	delete(b.deferred, trigger)
	for _, event := range events {
		b.deliver(trigger, event)
	}
}

// deliver fans the event out to all streams for the trigger. Callers must
// hold b.mu.
func (b *Broker) deliver(trigger Trigger, event domain.StatusEvent) {
	set := b.streams[trigger]
	if len(set) == 0 {
		recordEventDropped(dropReasonNoSubscribers)
		return
	}

	for _, s := range set {
		select {
		case s.ch <- event:
			recordEventPublished()
		default:
			// Consumer is not draining its channel; delivery is best
			// effort, so the event is dropped for this stream only.
			recordEventDropped(dropReasonSlowConsumer)
		}
	}
}

func (b *Broker) detach(s *Stream) {
	s.once.Do(func() {
		b.mu.Lock()
		if set := b.streams[s.trigger]; set != nil {
			delete(set, s.id)
			if len(set) == 0 {
				delete(b.streams, s.trigger)
			}
		}
		close(s.ch)
		b.mu.Unlock()

		activeStreams.Dec()
	})
}
