package tui

import (
	"github.com/hay-kot/marktimer/internal/core/eventbus"
)

// blink is the visible state of a mark notification on one timer.
type blink struct {
	MarkID string
	Color  string
	On     bool
}

// BlinkStore tracks which timers are mid notification. Each blink event
// flips the highlight so the time cell flashes with the mark colour.
type BlinkStore struct {
	blinks map[string]blink // timer ID -> latest notification
}

func NewBlinkStore() *BlinkStore {
	return &BlinkStore{blinks: make(map[string]blink)}
}

// Get returns the blink for a timer, or nil if none is active.
func (s *BlinkStore) Get(timerID string) *blink {
	b, ok := s.blinks[timerID]
	if !ok {
		return nil
	}
	return &b
}

// Record applies a notification event. It reports whether the event
// changed anything.
func (s *BlinkStore) Record(e eventbus.Event) bool {
	switch p := e.Payload.(type) {
	case eventbus.NotificationStartedPayload:
		s.blinks[e.TimerID] = blink{MarkID: p.Notification.MarkID, Color: p.Settings.Color}
	case eventbus.NotificationBlinkedPayload:
		s.blinks[e.TimerID] = blink{
			MarkID: p.Notification.MarkID,
			Color:  p.Color,
			On:     p.Notification.Blinks%2 == 1,
		}
	case eventbus.NotificationCompletedPayload:
		b, ok := s.blinks[e.TimerID]
		if !ok || b.MarkID != p.Notification.MarkID {
			return false
		}
		delete(s.blinks, e.TimerID)
	case eventbus.TimerResetPayload, eventbus.TimerRemovedPayload:
		if _, ok := s.blinks[e.TimerID]; !ok {
			return false
		}
		delete(s.blinks, e.TimerID)
	default:
		return false
	}
	return true
}

// Active returns the mark whose notification is live on timerID.
func (s *BlinkStore) Active(timerID string) (string, bool) {
	b, ok := s.blinks[timerID]
	return b.MarkID, ok
}
