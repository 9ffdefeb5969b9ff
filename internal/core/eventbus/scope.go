package eventbus

import "time"

// Scope binds a timer id to a parent bus. Events published through it
// carry the id and subscriptions only see that timer's events. Storage and
// delivery stay with the parent.
type Scope struct {
	bus     *EventBus
	timerID string
}

// Scoped returns a Scope for timerID.
func (bus *EventBus) Scoped(timerID string) *Scope {
	return &Scope{bus: bus, timerID: timerID}
}

func (s *Scope) TimerID() string { return s.timerID }

// Bus returns the parent bus.
func (s *Scope) Bus() *EventBus { return s.bus }

// Publish stamps p with the scope's timer id and the current time.
func (s *Scope) Publish(p Payload) {
	s.bus.Publish(Event{TimerID: s.timerID, Payload: p})
}

// PublishAt is Publish with an explicit timestamp.
func (s *Scope) PublishAt(at time.Time, p Payload) {
	s.bus.Publish(Event{TimerID: s.timerID, At: at, Payload: p})
}

// Subscribe registers h for events of kind from this timer only.
func (s *Scope) Subscribe(kind Kind, h Handler, opts ...SubscribeOption) (*Subscription, error) {
	return s.bus.Subscribe(kind, h, append(opts, ForTimer(s.timerID))...)
}

// SubscribeAll registers h for every event of this timer.
func (s *Scope) SubscribeAll(h Handler, opts ...SubscribeOption) (*Subscription, error) {
	return s.Subscribe("", h, opts...)
}
