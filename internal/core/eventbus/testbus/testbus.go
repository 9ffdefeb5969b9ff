// Package testbus provides test utilities for the event bus.
// It wraps a real EventBus with event recording and assertion helpers.
package testbus

import (
	"sync"
	"testing"
	"time"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
)

// Bus wraps a real EventBus with event recording for tests.
type Bus struct {
	*eventbus.EventBus

	mu     sync.Mutex
	events []eventbus.Event
}

// New creates a test bus and subscribes a recorder to all event kinds.
// The recorder is registered first, so it sees every event before other
// subscribers. The bus is destroyed when the test completes.
func New(t *testing.T) *Bus {
	t.Helper()
	return Wrap(t, eventbus.New())
}

// Wrap records events of an existing bus.
func Wrap(t *testing.T, bus *eventbus.EventBus) *Bus {
	t.Helper()

	tb := &Bus{EventBus: bus}
	if _, err := bus.SubscribeAll(tb.record); err != nil {
		t.Fatalf("testbus: subscribe recorder: %v", err)
	}

	t.Cleanup(bus.Destroy)
	return tb
}

func (tb *Bus) record(e eventbus.Event) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = append(tb.events, e)
}

// Events returns a copy of all recorded events.
func (tb *Bus) Events() []eventbus.Event {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]eventbus.Event, len(tb.events))
	copy(out, tb.events)
	return out
}

// Kinds returns the kinds of all recorded events in order, skipping
// any kinds listed in except.
func (tb *Bus) Kinds(except ...eventbus.Kind) []eventbus.Kind {
	skip := make(map[eventbus.Kind]bool, len(except))
	for _, k := range except {
		skip[k] = true
	}

	var out []eventbus.Kind
	for _, e := range tb.Events() {
		if !skip[e.Kind()] {
			out = append(out, e.Kind())
		}
	}
	return out
}

// OfKind returns the recorded events of one kind.
func (tb *Bus) OfKind(kind eventbus.Kind) []eventbus.Event {
	var out []eventbus.Event
	for _, e := range tb.Events() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of kind were recorded.
func (tb *Bus) Count(kind eventbus.Kind) int {
	return len(tb.OfKind(kind))
}

// Last returns the most recent event of kind.
func (tb *Bus) Last(kind eventbus.Kind) (eventbus.Event, bool) {
	events := tb.OfKind(kind)
	if len(events) == 0 {
		return eventbus.Event{}, false
	}
	return events[len(events)-1], true
}

// Reset clears all recorded events.
func (tb *Bus) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = nil
}

// WaitFor blocks until an event of the given kind is recorded or the
// timeout expires. Returns true if the event was found.
func (tb *Bus) WaitFor(kind eventbus.Kind, timeout time.Duration) bool {
	if tb.has(kind) {
		return true
	}

	deadline := time.After(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return false
		case <-ticker.C:
			if tb.has(kind) {
				return true
			}
		}
	}
}

func (tb *Bus) has(kind eventbus.Kind) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, e := range tb.events {
		if e.Kind() == kind {
			return true
		}
	}
	return false
}

// AssertPublished asserts that an event of the given kind was recorded.
func (tb *Bus) AssertPublished(t *testing.T, kind eventbus.Kind) {
	t.Helper()
	if !tb.WaitFor(kind, 500*time.Millisecond) {
		t.Errorf("expected event %q to be published, but it was not", kind)
	}
}

// AssertNotPublished asserts that no event of the given kind was recorded.
func (tb *Bus) AssertNotPublished(t *testing.T, kind eventbus.Kind) {
	t.Helper()
	if tb.has(kind) {
		t.Errorf("expected event %q to NOT be published, but it was", kind)
	}
}
