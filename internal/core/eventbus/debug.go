package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger registers bus hooks that log all event activity.
// Ticks and blinks are logged at trace level, other events at debug.
// Events dropped after Destroy and subscriber panics are reported too.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event) {
		lvl := zerolog.DebugLevel
		if k := event.Kind(); k == KindTimerTicked || k == KindNotificationBlinked {
			lvl = zerolog.TraceLevel
		}
		logger.WithLevel(lvl).
			Str("event", string(event.Kind())).
			Str("timer_id", event.TimerID).
			Msg("event fired")
	})

	bus.OnDrop(func(event Event) {
		logger.Debug().
			Str("event", string(event.Kind())).
			Str("timer_id", event.TimerID).
			Msg("event dropped: bus destroyed")
	})

	bus.OnPanic(func(event Event, recovered any) {
		logger.Error().
			Str("event", string(event.Kind())).
			Str("timer_id", event.TimerID).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}
