package timer

import (
	"fmt"
	"slices"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/validate"
)

// Configuration is the user-defined part of a timer. It is treated as an
// immutable value: changes produce a new Configuration.
type Configuration struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Target      ptime.Time      `json:"target"`
	Direction   Direction       `json:"direction"`
	Marks       []Mark          `json:"marks"`
	AutoStart   bool            `json:"auto_start"`
	AutoReset   bool            `json:"auto_reset"`
	Precision   ptime.Precision `json:"precision"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate runs structural checks over the configuration and each mark.
func (c Configuration) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if err := validate.Identifier(c.ID); err != nil {
		errs = errs.Append("id", err)
	}
	if err := validate.Name(c.Name); err != nil {
		errs = errs.Append("name", err)
	}
	if !c.Direction.IsValid() {
		errs = errs.Append("direction", fmt.Errorf("unknown direction %q", c.Direction))
	}
	if !c.Precision.IsValid() {
		errs = errs.Append("precision", fmt.Errorf("unknown precision %q", c.Precision))
	}
	if c.Target.Total() < 0 {
		errs = errs.Append("target", fmt.Errorf("target %d is negative", c.Target.Total()))
	}
	if c.Direction == CountDown && c.Target.IsZero() {
		errs = errs.Append("target", fmt.Errorf("countdown timers need a target above zero"))
	}

	for i, m := range c.Marks {
		if err := m.Validate(); err != nil {
			errs = errs.Append(fmt.Sprintf("marks[%d]", i), err)
		}
	}

	return errs.ToError()
}

// CheckMarks verifies the mark invariants: no two marks share a target
// time and no mark lies beyond a non-zero target.
func (c Configuration) CheckMarks() error {
	seen := make(map[int64]string, len(c.Marks))
	for _, m := range c.Marks {
		if err := c.CheckBounds(m.Time); err != nil {
			return fmt.Errorf("mark %q: %w", m.Name, err)
		}
		if other, ok := seen[m.Time.Total()]; ok {
			return fmt.Errorf("marks %q and %q at %s: %w", other, m.Name, m.Time, ErrDuplicateMarkTime)
		}
		seen[m.Time.Total()] = m.Name
	}
	return nil
}

// CheckBounds rejects a time beyond a non-zero target.
func (c Configuration) CheckBounds(t ptime.Time) error {
	if !c.Target.IsZero() && t.After(c.Target) {
		return fmt.Errorf("%s exceeds target %s: %w", t, c.Target, ErrOutOfBounds)
	}
	return nil
}

// InitialTime is the current time of a freshly reset timer.
func (c Configuration) InitialTime() ptime.Time {
	if c.Direction == CountDown {
		return c.Target
	}
	return ptime.Zero
}

// MarkByID returns the mark and its index.
func (c Configuration) MarkByID(id string) (Mark, int, bool) {
	for i, m := range c.Marks {
		if m.ID == id {
			return m, i, true
		}
	}
	return Mark{}, -1, false
}

// HasMarkAt reports whether a mark other than exceptID targets t exactly.
func (c Configuration) HasMarkAt(t ptime.Time, exceptID string) bool {
	return slices.ContainsFunc(c.Marks, func(m Mark) bool {
		return m.ID != exceptID && m.Time.Equal(t)
	})
}

// Clone returns a copy that shares no slices with c.
func (c Configuration) Clone() Configuration {
	c.Marks = slices.Clone(c.Marks)
	return c
}
