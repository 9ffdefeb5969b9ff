package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hay-kot/marktimer/internal/core/logging"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

// ErrDestroyed is returned by Subscribe after the bus has been destroyed.
// It matches timer.ErrInvalidState.
var ErrDestroyed = fmt.Errorf("event bus destroyed: %w", timer.ErrInvalidState)

// Handler receives a published event.
type Handler func(Event)

// Subscription is one handler registration. The zero kind subscribes to
// every kind.
type Subscription struct {
	bus     *EventBus
	kind    Kind
	timerID string
	handler Handler
	active  atomic.Bool
}

// Unsubscribe stops delivery to the handler. It is safe to call more than
// once and from inside a handler; the handler is not invoked again even
// for an event currently being delivered to other subscribers.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bus.remove(s)
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

func (s *Subscription) matches(e Event) bool {
	if s.kind != "" && s.kind != e.Kind() {
		return false
	}
	return s.timerID == "" || s.timerID == e.TimerID
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// ForTimer restricts a subscription to events of a single timer.
func ForTimer(id string) SubscribeOption {
	return func(s *Subscription) {
		s.timerID = id
	}
}

// Subscriber is implemented by EventBus and Scope.
type Subscriber interface {
	Subscribe(kind Kind, h Handler, opts ...SubscribeOption) (*Subscription, error)
}

// EventBus delivers events synchronously on the publishing goroutine, in
// subscription order.
type EventBus struct {
	hooks hooks
	now   func() time.Time

	mu        sync.RWMutex
	subs      []*Subscription
	destroyed atomic.Bool
}

// New creates an event bus.
func New() *EventBus {
	return &EventBus{now: time.Now}
}

// Subscribe registers h for events of kind.
func (bus *EventBus) Subscribe(kind Kind, h Handler, opts ...SubscribeOption) (*Subscription, error) {
	sub := &Subscription{bus: bus, kind: kind, handler: h}
	for _, opt := range opts {
		opt(sub)
	}
	sub.active.Store(true)

	bus.mu.Lock()
	if bus.destroyed.Load() {
		bus.mu.Unlock()
		return nil, ErrDestroyed
	}
	bus.subs = append(bus.subs, sub)
	bus.mu.Unlock()

	bus.runOnSubscribe(kind)
	return sub, nil
}

// SubscribeAll registers h for every kind.
func (bus *EventBus) SubscribeAll(h Handler, opts ...SubscribeOption) (*Subscription, error) {
	return bus.Subscribe("", h, opts...)
}

// Publish delivers e to every matching subscription. A handler panic is
// recovered and reported through OnPanic hooks, or logged when none are
// registered; remaining handlers still run. After Destroy, events are dropped.
func (bus *EventBus) Publish(e Event) {
	if bus.destroyed.Load() {
		bus.runOnDrop(e)
		return
	}
	if e.At.IsZero() {
		e.At = bus.now()
	}

	bus.mu.RLock()
	subs := make([]*Subscription, len(bus.subs))
	copy(subs, bus.subs)
	bus.mu.RUnlock()

	bus.runOnPublish(e)

	for _, sub := range subs {
		if bus.destroyed.Load() {
			return
		}
		if !sub.active.Load() || !sub.matches(e) {
			continue
		}
		bus.deliver(sub, e)
	}
}

func (bus *EventBus) deliver(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil && !bus.runOnPanic(e, r) {
			logging.Component("bus").Error().
				Str("event", string(e.Kind())).
				Str("timer_id", e.TimerID).
				Interface("panic", r).
				Msg("subscriber panicked")
		}
	}()
	sub.handler(e)
}

// Destroy removes every subscription. The bus cannot be reused.
func (bus *EventBus) Destroy() {
	if !bus.destroyed.CompareAndSwap(false, true) {
		return
	}

	bus.mu.Lock()
	subs := bus.subs
	bus.subs = nil
	bus.mu.Unlock()

	for _, s := range subs {
		s.active.Store(false)
	}
}

func (bus *EventBus) Destroyed() bool {
	return bus.destroyed.Load()
}

// Len returns the number of active subscriptions.
func (bus *EventBus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

func (bus *EventBus) remove(sub *Subscription) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, s := range bus.subs {
		if s == sub {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			return
		}
	}
}

// On subscribes a handler typed by its payload. The kind is taken from P.
func On[P Payload](s Subscriber, h func(Event, P), opts ...SubscribeOption) (*Subscription, error) {
	var zero P
	return s.Subscribe(zero.Kind(), func(e Event) {
		if p, ok := e.Payload.(P); ok {
			h(e, p)
		}
	}, opts...)
}
