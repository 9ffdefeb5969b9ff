package eventbus

import (
	"fmt"

	"github.com/hay-kot/marktimer/internal/core/notify"
)

// NotificationRouter maps timer events to user-facing notifications.
type NotificationRouter struct {
	bus  *EventBus
	sink notify.Sink
	subs []*Subscription
}

// NewNotificationRouter constructs a router that forwards alerts to sink.
func NewNotificationRouter(bus *EventBus, sink notify.Sink) *NotificationRouter {
	return &NotificationRouter{bus: bus, sink: sink}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() error {
	if r == nil || r.bus == nil || r.sink == nil {
		return nil
	}

	subs := []func() (*Subscription, error){
		func() (*Subscription, error) {
			return On(r.bus, func(e Event, p MarkTriggeredPayload) {
				r.notifyf(e, notify.LevelInfo, "mark %q reached at %s", p.Mark.Name, p.Current)
			})
		},
		func() (*Subscription, error) {
			return On(r.bus, func(e Event, p TimerCompletedPayload) {
				r.notifyf(e, notify.LevelInfo, "timer %s completed after %s", e.TimerID, p.Elapsed)
			})
		},
		func() (*Subscription, error) {
			return On(r.bus, func(e Event, p TimerRemovedPayload) {
				r.notifyf(e, notify.LevelInfo, "timer %q removed", p.Name)
			})
		},
		func() (*Subscription, error) {
			return On(r.bus, func(e Event, p ErrorPayload) {
				r.notifyf(e, notify.LevelError, "%s failed: %s", p.Command, p.Message)
			})
		},
	}

	for _, subscribe := range subs {
		sub, err := subscribe()
		if err != nil {
			r.Close()
			return fmt.Errorf("register notification router: %w", err)
		}
		r.subs = append(r.subs, sub)
	}
	return nil
}

// Close unsubscribes the router.
func (r *NotificationRouter) Close() {
	for _, s := range r.subs {
		s.Unsubscribe()
	}
	r.subs = nil
}

func (r *NotificationRouter) notifyf(e Event, level notify.Level, format string, args ...any) {
	r.sink(notify.Notification{
		Level:     level,
		TimerID:   e.TimerID,
		Message:   fmt.Sprintf(format, args...),
		CreatedAt: e.At,
	})
}
