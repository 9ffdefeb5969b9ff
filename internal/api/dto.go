package api

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hay-kot/marktimer/internal/core/config"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/core/validate"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

// MarkRequest is a mark in a create or add-mark request. Empty
// notification fields take the configured defaults.
type MarkRequest struct {
	Name          string     `json:"name"`
	At            ptime.Time `json:"at"`
	Description   string     `json:"description,omitempty"`
	Color         string     `json:"color,omitempty"`
	BlinkCount    int        `json:"blink_count,omitempty"`
	BlinkInterval string     `json:"blink_interval,omitempty"`
	Sound         bool       `json:"sound,omitempty"`
	Disabled      bool       `json:"disabled,omitempty"`
}

func (m MarkRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.By(stringRule(validate.Name))),
		validation.Field(&m.Color, validation.By(stringRule(validate.HexColor))),
		validation.Field(&m.BlinkCount, validation.Min(0), validation.Max(100)),
		validation.Field(&m.BlinkInterval, validation.By(durationRule)),
	)
}

// Build converts the request into a mark using d for unset settings.
func (m MarkRequest) Build(d config.TimerDefaults) timer.Mark {
	mk := d.NewMark(m.Name, m.At)
	mk.Description = m.Description
	mk.Enabled = !m.Disabled
	if m.Color != "" {
		mk.Notification.Color = m.Color
	}
	if m.BlinkCount > 0 {
		mk.Notification.BlinkCount = m.BlinkCount
	}
	if iv, err := time.ParseDuration(m.BlinkInterval); err == nil && iv > 0 {
		mk.Notification.BlinkInterval = iv
	}
	if m.Sound {
		mk.Notification.Sound = true
	}
	return mk
}

// CreateTimerRequest is the body of POST /api/timers. With Preset set, the
// named preset supplies every field the request leaves empty.
type CreateTimerRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Preset      string          `json:"preset,omitempty"`
	Target      ptime.Time      `json:"target"`
	Direction   timer.Direction `json:"direction,omitempty"`
	Precision   ptime.Precision `json:"precision,omitempty"`
	AutoStart   bool            `json:"auto_start,omitempty"`
	AutoReset   bool            `json:"auto_reset,omitempty"`
	Marks       []MarkRequest   `json:"marks,omitempty"`
}

func (r CreateTimerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.By(stringRule(validate.Identifier))),
		validation.Field(&r.Name, validation.Required.When(r.Preset == "")),
		validation.Field(&r.Direction, validation.In(timer.CountDown, timer.CountUp)),
		validation.Field(&r.Precision, validation.In(ptime.PrecisionSeconds, ptime.PrecisionHundredths, ptime.PrecisionMilliseconds)),
		validation.Field(&r.Marks, validation.Length(0, 100)),
	)
}

// Params merges the request over its preset and the timer defaults.
func (r CreateTimerRequest) Params(cfg *config.Config) (marktimer.CreateParams, error) {
	p := marktimer.CreateParams{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Target:      r.Target,
		Direction:   r.Direction,
		Precision:   r.Precision,
		AutoStart:   r.AutoStart,
		AutoReset:   r.AutoReset,
	}

	if r.Preset != "" {
		preset, ok := cfg.Presets[r.Preset]
		if !ok {
			return p, fmt.Errorf("preset %q: %w", r.Preset, timer.ErrNotFound)
		}
		if p.Name == "" {
			p.Name = preset.Name
			if p.Name == "" {
				p.Name = r.Preset
			}
		}
		if p.Description == "" {
			p.Description = preset.Description
		}
		if p.Target.IsZero() {
			p.Target = preset.Target
		}
		if p.Direction == "" {
			p.Direction = preset.Direction
		}
		if p.Precision == "" {
			p.Precision = preset.Precision
		}
		p.AutoReset = p.AutoReset || preset.AutoReset
		p.Marks = preset.BuildMarks(cfg.Timers)
	}

	if p.Precision == "" {
		p.Precision = cfg.Timers.Precision
	}
	for _, m := range r.Marks {
		p.Marks = append(p.Marks, m.Build(cfg.Timers))
	}
	return p, nil
}

// PatchRequest holds the optional fields of an update-mark command.
// Notification fields are merged over the mark's current settings.
type PatchRequest struct {
	Name          *string     `json:"name,omitempty"`
	Time          *ptime.Time `json:"time,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Color         *string     `json:"color,omitempty"`
	BlinkCount    *int        `json:"blink_count,omitempty"`
	BlinkInterval *string     `json:"blink_interval,omitempty"`
	Sound         *bool       `json:"sound,omitempty"`
	Enabled       *bool       `json:"enabled,omitempty"`
}

func (p PatchRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.BlinkInterval, validation.By(durationRule)),
	)
}

func (p PatchRequest) notificationChanged() bool {
	return p.Color != nil || p.BlinkCount != nil || p.BlinkInterval != nil || p.Sound != nil
}

// Build converts the request into a patch for current.
func (p PatchRequest) Build(current timer.Mark) timer.MarkPatch {
	patch := timer.MarkPatch{
		Name:        p.Name,
		Time:        p.Time,
		Description: p.Description,
		Enabled:     p.Enabled,
	}
	if p.notificationChanged() {
		n := current.Notification
		if p.Color != nil {
			n.Color = *p.Color
		}
		if p.BlinkCount != nil {
			n.BlinkCount = *p.BlinkCount
		}
		if p.BlinkInterval != nil {
			if iv, err := time.ParseDuration(*p.BlinkInterval); err == nil {
				n.BlinkInterval = iv
			}
		}
		if p.Sound != nil {
			n.Sound = *p.Sound
		}
		patch.Notification = &n
	}
	return patch
}

// CommandRequest is the body of POST /api/timers/{id}/commands.
type CommandRequest struct {
	Type   string        `json:"type"`
	Time   *ptime.Time   `json:"time,omitempty"`
	Mark   *MarkRequest  `json:"mark,omitempty"`
	Patch  *PatchRequest `json:"patch,omitempty"`
	MarkID string        `json:"mark_id,omitempty"`
}

// CommandTypes lists every accepted command type.
var CommandTypes = []any{
	timer.Start{}.Name(),
	timer.Pause{}.Name(),
	timer.Resume{}.Name(),
	timer.Stop{}.Name(),
	timer.Reset{}.Name(),
	timer.SetTime{}.Name(),
	timer.AddMark{}.Name(),
	timer.UpdateMark{}.Name(),
	timer.RemoveMark{}.Name(),
	timer.ToggleMark{}.Name(),
	timer.AcknowledgeNotification{}.Name(),
}

func (r CommandRequest) needsMarkID() bool {
	switch r.Type {
	case timer.UpdateMark{}.Name(), timer.RemoveMark{}.Name(), timer.ToggleMark{}.Name(), timer.AcknowledgeNotification{}.Name():
		return true
	}
	return false
}

func (r CommandRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(CommandTypes...)),
		validation.Field(&r.Time, validation.Required.When(r.Type == timer.SetTime{}.Name())),
		validation.Field(&r.Mark, validation.Required.When(r.Type == timer.AddMark{}.Name())),
		validation.Field(&r.Patch, validation.Required.When(r.Type == timer.UpdateMark{}.Name())),
		validation.Field(&r.MarkID, validation.Required.When(r.needsMarkID())),
	)
}

// Command builds the timer command. lookup returns a mark's current state
// for update-mark.
func (r CommandRequest) Command(d config.TimerDefaults, lookup func(id string) (timer.Mark, bool)) (timer.Command, error) {
	switch r.Type {
	case timer.SetTime{}.Name():
		return timer.SetTime{Time: *r.Time}, nil
	case timer.AddMark{}.Name():
		return timer.AddMark{Mark: r.Mark.Build(d)}, nil
	case timer.UpdateMark{}.Name():
		current, ok := lookup(r.MarkID)
		if !ok {
			return nil, fmt.Errorf("mark %q: %w", r.MarkID, timer.ErrNotFound)
		}
		return timer.UpdateMark{MarkID: r.MarkID, Patch: r.Patch.Build(current)}, nil
	case timer.RemoveMark{}.Name():
		return timer.RemoveMark{MarkID: r.MarkID}, nil
	case timer.ToggleMark{}.Name():
		return timer.ToggleMark{MarkID: r.MarkID}, nil
	case timer.AcknowledgeNotification{}.Name():
		return timer.AcknowledgeNotification{MarkID: r.MarkID}, nil
	default:
		return timer.ParseAction(r.Type)
	}
}

// TimerView is the API representation of a timer.
type TimerView struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	State         timer.State          `json:"state"`
	Direction     timer.Direction      `json:"direction"`
	Precision     ptime.Precision      `json:"precision"`
	Current       string               `json:"current"`
	CurrentTotal  int64                `json:"current_total"`
	Target        string               `json:"target"`
	AutoReset     bool                 `json:"auto_reset"`
	Marks         []MarkView           `json:"marks"`
	Notifications []timer.Notification `json:"notifications"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// MarkView is a mark with its trigger status.
type MarkView struct {
	timer.Mark
	At        string `json:"at"`
	Triggered bool   `json:"triggered"`
}

// ViewOf flattens a snapshot for API responses.
func ViewOf(s timer.Snapshot) TimerView {
	cfg, rt := s.Configuration, s.Runtime
	v := TimerView{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Description:   cfg.Description,
		State:         rt.State,
		Direction:     cfg.Direction,
		Precision:     cfg.Precision,
		Current:       rt.Current.String(),
		CurrentTotal:  rt.Current.Total(),
		Target:        cfg.Target.String(),
		AutoReset:     cfg.AutoReset,
		Marks:         make([]MarkView, 0, len(cfg.Marks)),
		Notifications: rt.Notifications,
		CreatedAt:     cfg.CreatedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}
	for _, m := range cfg.Marks {
		v.Marks = append(v.Marks, MarkView{Mark: m, At: m.Time.String(), Triggered: rt.IsTriggered(m.ID)})
	}
	return v
}

func stringRule(fn func(string) error) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		return fn(s)
	}
}

func durationRule(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("must be a duration such as 500ms")
	}
	return validate.BlinkInterval(d)
}
