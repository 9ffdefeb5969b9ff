package timer

import (
	"time"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/validate"
)

// NotificationSettings controls the blink sequence started when a mark
// triggers.
type NotificationSettings struct {
	BlinkCount    int           `json:"blink_count" yaml:"blink_count"`
	BlinkInterval time.Duration `json:"blink_interval" yaml:"blink_interval"`
	Color         string        `json:"color,omitempty" yaml:"color"`
	Sound         bool          `json:"sound" yaml:"sound"`
	Vibrate       bool          `json:"vibrate" yaml:"vibrate"`
}

// DefaultNotificationSettings returns three half-second blinks.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		BlinkCount:    3,
		BlinkInterval: 500 * time.Millisecond,
		Color:         "#ff5f5f",
	}
}

func (n NotificationSettings) validate(prefix string) error {
	return criterio.ValidateStruct(
		criterio.Run(prefix+".blink_count", n.BlinkCount, validate.BlinkCount),
		criterio.Run(prefix+".blink_interval", n.BlinkInterval, validate.BlinkInterval),
		criterio.Run(prefix+".color", n.Color, validate.HexColor),
	)
}

// Mark is a named target time on a timer. Crossing it triggers a
// notification.
type Mark struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Time         ptime.Time           `json:"time"`
	Description  string               `json:"description,omitempty"`
	Notification NotificationSettings `json:"notification"`
	Enabled      bool                 `json:"enabled"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewMark returns an enabled mark with default notification settings. The
// id and timestamps are assigned when the mark is added to a timer.
func NewMark(name string, at ptime.Time) Mark {
	return Mark{
		Name:         name,
		Time:         at,
		Notification: DefaultNotificationSettings(),
		Enabled:      true,
	}
}

// Validate runs structural checks. Duplicate times and bounds against the
// timer target are checked by the owning Configuration.
func (m Mark) Validate() error {
	var idErr error
	if m.ID != "" {
		idErr = criterio.Run("id", m.ID, validate.Identifier)
	}

	return criterio.ValidateStruct(
		idErr,
		criterio.Run("name", m.Name, validate.Name),
		m.Notification.validate("notification"),
	)
}

// MarkPatch holds optional mark fields for UpdateMark. Nil fields are left
// unchanged.
type MarkPatch struct {
	Name         *string               `json:"name,omitempty"`
	Time         *ptime.Time           `json:"time,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Notification *NotificationSettings `json:"notification,omitempty"`
	Enabled      *bool                 `json:"enabled,omitempty"`
}

func (p MarkPatch) IsEmpty() bool {
	return p.Name == nil && p.Time == nil && p.Description == nil && p.Notification == nil && p.Enabled == nil
}

// Apply merges p over m and stamps UpdatedAt.
func (m Mark) Apply(p MarkPatch, now time.Time) Mark {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Time != nil {
		m.Time = *p.Time
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Notification != nil {
		m.Notification = *p.Notification
	}
	if p.Enabled != nil {
		m.Enabled = *p.Enabled
	}
	m.UpdatedAt = now
	return m
}
