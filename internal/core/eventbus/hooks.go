package eventbus

import "sync"

// hooks holds the lifecycle hook state for the EventBus. Hooks observe the
// bus itself and are kept apart from subscriptions so they survive
// Destroy.
type hooks struct {
	mu          sync.RWMutex
	onPublish   []func(Event)
	onDrop      []func(Event)
	onSubscribe []func(Kind)
	onPanic     []func(Event, any)
}

// OnPublish registers a hook that fires before an event is delivered.
func (bus *EventBus) OnPublish(fn func(Event)) {
	bus.hooks.mu.Lock()
	bus.hooks.onPublish = append(bus.hooks.onPublish, fn)
	bus.hooks.mu.Unlock()
}

// OnDrop registers a hook that fires when an event is published after
// Destroy.
func (bus *EventBus) OnDrop(fn func(Event)) {
	bus.hooks.mu.Lock()
	bus.hooks.onDrop = append(bus.hooks.onDrop, fn)
	bus.hooks.mu.Unlock()
}

// OnSubscribe registers a hook that fires after a subscriber is registered.
// The kind is empty for SubscribeAll.
func (bus *EventBus) OnSubscribe(fn func(Kind)) {
	bus.hooks.mu.Lock()
	bus.hooks.onSubscribe = append(bus.hooks.onSubscribe, fn)
	bus.hooks.mu.Unlock()
}

// OnPanic registers a hook that fires when a subscriber panics.
func (bus *EventBus) OnPanic(fn func(Event, any)) {
	bus.hooks.mu.Lock()
	bus.hooks.onPanic = append(bus.hooks.onPanic, fn)
	bus.hooks.mu.Unlock()
}

func (bus *EventBus) runOnPublish(event Event) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event), len(bus.hooks.onPublish))
	copy(hooks, bus.hooks.onPublish)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(event)
	}
}

func (bus *EventBus) runOnDrop(event Event) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event), len(bus.hooks.onDrop))
	copy(hooks, bus.hooks.onDrop)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(event)
	}
}

func (bus *EventBus) runOnSubscribe(kind Kind) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Kind), len(bus.hooks.onSubscribe))
	copy(hooks, bus.hooks.onSubscribe)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(kind)
	}
}

// runOnPanic reports whether any hook was registered.
func (bus *EventBus) runOnPanic(event Event, recovered any) bool {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event, any), len(bus.hooks.onPanic))
	copy(hooks, bus.hooks.onPanic)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(event, recovered)
		}()
	}
	return len(hooks) > 0
}
