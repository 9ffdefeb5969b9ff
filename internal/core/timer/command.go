package timer

import (
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/validate"
)

// Command is an instruction dispatched to a timer. The set of commands is
// closed; only types in this package implement it.
type Command interface {
	Name() string
	Validate() error
	command()
}

type (
	Start  struct{}
	Pause  struct{}
	Resume struct{}
	Stop   struct{}
	Reset  struct{}

	SetTime struct {
		Time ptime.Time
	}

	AddMark struct {
		Mark Mark
	}

	UpdateMark struct {
		MarkID string
		Patch  MarkPatch
	}

	RemoveMark struct {
		MarkID string
	}

	ToggleMark struct {
		MarkID string
	}

	AcknowledgeNotification struct {
		MarkID string
	}
)

func (Start) Name() string                   { return "start" }
func (Pause) Name() string                   { return "pause" }
func (Resume) Name() string                  { return "resume" }
func (Stop) Name() string                    { return "stop" }
func (Reset) Name() string                   { return "reset" }
func (SetTime) Name() string                 { return "set-time" }
func (AddMark) Name() string                 { return "add-mark" }
func (UpdateMark) Name() string              { return "update-mark" }
func (RemoveMark) Name() string              { return "remove-mark" }
func (ToggleMark) Name() string              { return "toggle-mark" }
func (AcknowledgeNotification) Name() string { return "acknowledge-notification" }

func (Start) Validate() error   { return nil }
func (Pause) Validate() error   { return nil }
func (Resume) Validate() error  { return nil }
func (Stop) Validate() error    { return nil }
func (Reset) Validate() error   { return nil }
func (SetTime) Validate() error { return nil }

func (c AddMark) Validate() error {
	return invalid(c.Mark.Validate())
}

func (c UpdateMark) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if err := validate.Identifier(c.MarkID); err != nil {
		errs = errs.Append("mark_id", err)
	}
	if c.Patch.IsEmpty() {
		errs = errs.Append("patch", fmt.Errorf("no fields to update"))
	}
	if c.Patch.Name != nil {
		if err := validate.Name(*c.Patch.Name); err != nil {
			errs = errs.Append("patch.name", err)
		}
	}
	if c.Patch.Notification != nil {
		if err := c.Patch.Notification.validate("patch.notification"); err != nil {
			errs = errs.Append("patch.notification", err)
		}
	}
	return invalid(errs.ToError())
}

func (c RemoveMark) Validate() error {
	return invalid(criterio.Run("mark_id", c.MarkID, validate.Identifier))
}

func (c ToggleMark) Validate() error {
	return invalid(criterio.Run("mark_id", c.MarkID, validate.Identifier))
}

func (c AcknowledgeNotification) Validate() error {
	return invalid(criterio.Run("mark_id", c.MarkID, validate.Identifier))
}

func (Start) command()                   {}
func (Pause) command()                   {}
func (Resume) command()                  {}
func (Stop) command()                    {}
func (Reset) command()                   {}
func (SetTime) command()                 {}
func (AddMark) command()                 {}
func (UpdateMark) command()              {}
func (RemoveMark) command()              {}
func (ToggleMark) command()              {}
func (AcknowledgeNotification) command() {}

// ParseAction maps a lifecycle command name (start, pause, resume, stop,
// reset) onto its Command.
func ParseAction(name string) (Command, error) {
	switch name {
	case "start":
		return Start{}, nil
	case "pause":
		return Pause{}, nil
	case "resume":
		return Resume{}, nil
	case "stop":
		return Stop{}, nil
	case "reset":
		return Reset{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q: %w", name, ErrValidation)
	}
}
