package marktimer

import (
	"fmt"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

// Dispatch validates and executes cmd. Any failure is published as an
// error event before it is returned.
func (t *Timer) Dispatch(cmd timer.Command) error {
	if cmd == nil {
		err := fmt.Errorf("nil command: %w", timer.ErrValidation)
		t.publishError("", err)
		return err
	}

	err := cmd.Validate()
	if err == nil {
		err = t.execute(cmd)
	}
	if err != nil {
		t.log.Debug().Err(err).Str("command", cmd.Name()).Msg("command failed")
		t.publishError(cmd.Name(), err)
	}
	return err
}

func (t *Timer) execute(cmd timer.Command) error {
	switch c := cmd.(type) {
	case timer.Start:
		return t.Start()
	case timer.Pause:
		return t.Pause()
	case timer.Resume:
		return t.Resume()
	case timer.Stop:
		return t.Stop()
	case timer.Reset:
		return t.Reset()
	case timer.SetTime:
		return t.SetTime(c.Time)
	case timer.AddMark:
		_, err := t.AddMark(c.Mark)
		return err
	case timer.UpdateMark:
		_, err := t.UpdateMark(c.MarkID, c.Patch)
		return err
	case timer.RemoveMark:
		_, err := t.RemoveMark(c.MarkID)
		return err
	case timer.ToggleMark:
		_, err := t.ToggleMark(c.MarkID)
		return err
	case timer.AcknowledgeNotification:
		return t.Acknowledge(c.MarkID)
	default:
		return fmt.Errorf("unsupported command %T: %w", cmd, timer.ErrValidation)
	}
}

func (t *Timer) publishError(command string, err error) {
	t.mu.Lock()
	t.emit(eventbus.ErrorPayload{
		Command: command,
		Code:    timer.Code(err),
		Message: err.Error(),
	})
	t.mu.Unlock()

	t.flush()
}
