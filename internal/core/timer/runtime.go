package timer

import (
	"slices"
	"time"

	"github.com/hay-kot/marktimer/internal/core/ptime"
)

// NotificationStatus is the lifecycle of one mark notification.
type NotificationStatus string

const (
	NotificationTriggered    NotificationStatus = "triggered"
	NotificationAcknowledged NotificationStatus = "acknowledged"
)

// Notification tracks the blink sequence of a triggered mark. It lives in
// Runtime until the sequence completes or is acknowledged.
type Notification struct {
	MarkID      string             `json:"mark_id"`
	TimerID     string             `json:"timer_id"`
	Status      NotificationStatus `json:"status"`
	TriggeredAt time.Time          `json:"triggered_at"`
	Blinks      int                `json:"blinks"`
	MaxBlinks   int                `json:"max_blinks"`
}

// Runtime is the changing part of a timer. The engine replaces it
// wholesale on every transition, so a Runtime handed to a reader never
// changes underneath it.
type Runtime struct {
	State         State          `json:"state"`
	Current       ptime.Time     `json:"current"`
	PausedFor     time.Duration  `json:"paused_for"`
	PausedAt      time.Time      `json:"paused_at,omitzero"`
	Triggered     []string       `json:"triggered"`
	Notifications []Notification `json:"notifications"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	EndedAt       time.Time      `json:"ended_at,omitzero"`
	LastTickAt    time.Time      `json:"last_tick_at,omitzero"`
	TickInterval  time.Duration  `json:"tick_interval"`
}

// InitialRuntime is the runtime of a freshly created or reset timer.
func InitialRuntime(cfg Configuration) Runtime {
	return Runtime{
		State:         StateIdle,
		Current:       cfg.InitialTime(),
		Triggered:     []string{},
		Notifications: []Notification{},
		TickInterval:  cfg.Precision.TickInterval(),
	}
}

// Clone returns a copy that shares no slices with r.
func (r Runtime) Clone() Runtime {
	r.Triggered = slices.Clone(r.Triggered)
	r.Notifications = slices.Clone(r.Notifications)
	return r
}

func (r Runtime) IsTriggered(markID string) bool {
	return slices.Contains(r.Triggered, markID)
}

// NotificationFor returns the active notification for markID.
func (r Runtime) NotificationFor(markID string) (Notification, bool) {
	for _, n := range r.Notifications {
		if n.MarkID == markID {
			return n, true
		}
	}
	return Notification{}, false
}

// Snapshot is the persisted unit: a timer's configuration and runtime at
// one instant.
type Snapshot struct {
	Configuration Configuration `json:"configuration"`
	Runtime       Runtime       `json:"runtime"`
}

func (s Snapshot) ID() string { return s.Configuration.ID }

func (s Snapshot) Clone() Snapshot {
	return Snapshot{Configuration: s.Configuration.Clone(), Runtime: s.Runtime.Clone()}
}
