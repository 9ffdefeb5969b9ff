// Package eventbus provides a typed synchronous publish/subscribe event bus
// carrying timer lifecycle events.
package eventbus

import (
	"encoding/json"
	"time"

	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

// Kind names an event type.
type Kind string

const (
	KindError                 Kind = "error"
	KindMarkAdded             Kind = "mark.added"
	KindMarkRemoved           Kind = "mark.removed"
	KindMarkTriggered         Kind = "mark.triggered"
	KindMarkUpdated           Kind = "mark.updated"
	KindNotificationBlinked   Kind = "notification.blinked"
	KindNotificationCompleted Kind = "notification.completed"
	KindNotificationStarted   Kind = "notification.started"
	KindTimerCompleted        Kind = "timer.completed"
	KindTimerCreated          Kind = "timer.created"
	KindTimerPaused           Kind = "timer.paused"
	KindTimerRemoved          Kind = "timer.removed"
	KindTimerReset            Kind = "timer.reset"
	KindTimerResumed          Kind = "timer.resumed"
	KindTimerStarted          Kind = "timer.started"
	KindTimerStopped          Kind = "timer.stopped"
	KindTimerTicked           Kind = "timer.ticked"
	KindTimerTimeSet          Kind = "timer.time-set"
)

// Payloads maps every kind to its payload type.
var Payloads = map[Kind]Payload{
	// Keep list sorted A-Z
	KindError:                 ErrorPayload{},
	KindMarkAdded:             MarkAddedPayload{},
	KindMarkRemoved:           MarkRemovedPayload{},
	KindMarkTriggered:         MarkTriggeredPayload{},
	KindMarkUpdated:           MarkUpdatedPayload{},
	KindNotificationBlinked:   NotificationBlinkedPayload{},
	KindNotificationCompleted: NotificationCompletedPayload{},
	KindNotificationStarted:   NotificationStartedPayload{},
	KindTimerCompleted:        TimerCompletedPayload{},
	KindTimerCreated:          TimerCreatedPayload{},
	KindTimerPaused:           TimerPausedPayload{},
	KindTimerRemoved:          TimerRemovedPayload{},
	KindTimerReset:            TimerResetPayload{},
	KindTimerResumed:          TimerResumedPayload{},
	KindTimerStarted:          TimerStartedPayload{},
	KindTimerStopped:          TimerStoppedPayload{},
	KindTimerTicked:           TimerTickedPayload{},
	KindTimerTimeSet:          TimerTimeSetPayload{},
}

// Payload is the data carried by an event. The set is closed: only the
// payload types in this package implement it.
type Payload interface {
	Kind() Kind
	payload()
}

// Event is one occurrence on the bus.
type Event struct {
	TimerID string    `json:"timer_id"`
	At      time.Time `json:"at"`
	Payload Payload   `json:"payload"`
}

// Kind returns the kind of the carried payload.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// MarshalJSON adds the kind next to the event fields.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{Kind: e.Kind(), plain: plain(e)})
}

// TimerCreatedPayload is emitted when a timer is registered.
type TimerCreatedPayload struct {
	Snapshot timer.Snapshot `json:"snapshot"`
}

// TimerStartedPayload is emitted when a timer starts from idle or stopped.
type TimerStartedPayload struct {
	From    timer.State `json:"from"`
	Current ptime.Time  `json:"current"`
}

type TimerPausedPayload struct {
	Current ptime.Time `json:"current"`
}

// TimerResumedPayload carries the length of the pause that just ended.
type TimerResumedPayload struct {
	Current ptime.Time    `json:"current"`
	Paused  time.Duration `json:"paused"`
}

type TimerStoppedPayload struct {
	From    timer.State `json:"from"`
	Current ptime.Time  `json:"current"`
}

type TimerResetPayload struct {
	From    timer.State `json:"from"`
	Current ptime.Time  `json:"current"`
}

// TimerCompletedPayload is emitted once when a countdown reaches zero.
type TimerCompletedPayload struct {
	Current ptime.Time `json:"current"`
	Elapsed ptime.Time `json:"elapsed"`
}

// TimerTickedPayload is emitted on every advancing tick.
type TimerTickedPayload struct {
	Current ptime.Time `json:"current"`
	Delta   ptime.Time `json:"delta"`
}

// TimerTimeSetPayload is emitted when the current time is overridden.
type TimerTimeSetPayload struct {
	Previous ptime.Time `json:"previous"`
	Current  ptime.Time `json:"current"`
}

// TimerRemovedPayload is emitted after a timer is destroyed and
// unregistered.
type TimerRemovedPayload struct {
	Name string `json:"name"`
}

type MarkAddedPayload struct {
	Mark timer.Mark `json:"mark"`
}

type MarkUpdatedPayload struct {
	Previous timer.Mark `json:"previous"`
	Mark     timer.Mark `json:"mark"`
}

type MarkRemovedPayload struct {
	Mark timer.Mark `json:"mark"`
}

// MarkTriggeredPayload is emitted once per run when the current time
// crosses an enabled mark.
type MarkTriggeredPayload struct {
	Mark    timer.Mark `json:"mark"`
	Current ptime.Time `json:"current"`
}

type NotificationStartedPayload struct {
	Notification timer.Notification         `json:"notification"`
	Settings     timer.NotificationSettings `json:"settings"`
}

type NotificationBlinkedPayload struct {
	Notification timer.Notification `json:"notification"`
	Color        string             `json:"color,omitempty"`
}

// NotificationCompletedPayload is emitted when a blink sequence finishes
// or is acknowledged.
type NotificationCompletedPayload struct {
	Notification timer.Notification `json:"notification"`
	Acknowledged bool               `json:"acknowledged"`
}

// ErrorPayload reports a failed command.
type ErrorPayload struct {
	Command string `json:"command"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (TimerCreatedPayload) Kind() Kind          { return KindTimerCreated }
func (TimerStartedPayload) Kind() Kind          { return KindTimerStarted }
func (TimerPausedPayload) Kind() Kind           { return KindTimerPaused }
func (TimerResumedPayload) Kind() Kind          { return KindTimerResumed }
func (TimerStoppedPayload) Kind() Kind          { return KindTimerStopped }
func (TimerResetPayload) Kind() Kind            { return KindTimerReset }
func (TimerCompletedPayload) Kind() Kind        { return KindTimerCompleted }
func (TimerTickedPayload) Kind() Kind           { return KindTimerTicked }
func (TimerTimeSetPayload) Kind() Kind          { return KindTimerTimeSet }
func (TimerRemovedPayload) Kind() Kind          { return KindTimerRemoved }
func (MarkAddedPayload) Kind() Kind             { return KindMarkAdded }
func (MarkUpdatedPayload) Kind() Kind           { return KindMarkUpdated }
func (MarkRemovedPayload) Kind() Kind           { return KindMarkRemoved }
func (MarkTriggeredPayload) Kind() Kind         { return KindMarkTriggered }
func (NotificationStartedPayload) Kind() Kind   { return KindNotificationStarted }
func (NotificationBlinkedPayload) Kind() Kind   { return KindNotificationBlinked }
func (NotificationCompletedPayload) Kind() Kind { return KindNotificationCompleted }
func (ErrorPayload) Kind() Kind                 { return KindError }

func (TimerCreatedPayload) payload()          {}
func (TimerStartedPayload) payload()          {}
func (TimerPausedPayload) payload()           {}
func (TimerResumedPayload) payload()          {}
func (TimerStoppedPayload) payload()          {}
func (TimerResetPayload) payload()            {}
func (TimerCompletedPayload) payload()        {}
func (TimerTickedPayload) payload()           {}
func (TimerTimeSetPayload) payload()          {}
func (TimerRemovedPayload) payload()          {}
func (MarkAddedPayload) payload()             {}
func (MarkUpdatedPayload) payload()           {}
func (MarkRemovedPayload) payload()           {}
func (MarkTriggeredPayload) payload()         {}
func (NotificationStartedPayload) payload()   {}
func (NotificationBlinkedPayload) payload()   {}
func (NotificationCompletedPayload) payload() {}
func (ErrorPayload) payload()                 {}
