package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
)

// eventsReadyMsg tells the model that buffered events can be drained.
type eventsReadyMsg struct{}

// EventBuffer collects bus events for the UI goroutine and emits coalesced
// drain signals. Bus handlers never block on the UI.
type EventBuffer struct {
	mu     sync.Mutex
	events []eventbus.Event
	// ticks holds the index of the latest buffered tick per timer so a slow
	// UI keeps one tick per timer instead of a backlog.
	ticks  map[string]int
	signal chan struct{}
}

// NewEventBuffer constructs an empty buffer.
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{
		ticks:  make(map[string]int),
		signal: make(chan struct{}, 1),
	}
}

// Push appends e and emits a non-blocking drain signal.
func (b *EventBuffer) Push(e eventbus.Event) {
	b.mu.Lock()
	if e.Kind() == eventbus.KindTimerTicked {
		if i, ok := b.ticks[e.TimerID]; ok {
			b.events[i] = e
			b.mu.Unlock()
			return
		}
		b.ticks[e.TimerID] = len(b.events)
	}
	b.events = append(b.events, e)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Drain returns all buffered events in publish order and clears the buffer.
func (b *EventBuffer) Drain() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]eventbus.Event, len(b.events))
	copy(out, b.events)
	b.events = b.events[:0]
	clear(b.ticks)
	return out
}

// WaitForSignal blocks until there are events ready to drain.
func (b *EventBuffer) WaitForSignal() tea.Cmd {
	return func() tea.Msg {
		<-b.signal
		return eventsReadyMsg{}
	}
}
