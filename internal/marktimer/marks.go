package marktimer

import (
	"fmt"
	"slices"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

// AddMark validates m and appends it to the configuration. A missing id
// is generated. Marks may not share a target time or lie beyond the
// target.
func (t *Timer) AddMark(m timer.Mark) (timer.Mark, error) {
	var added timer.Mark
	err := t.do(func() error {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %w", timer.ErrValidation, err)
		}
		if m.ID == "" {
			m.ID = t.markID()
		}
		if _, _, ok := t.cfg.MarkByID(m.ID); ok {
			return fmt.Errorf("mark id %q already exists: %w", m.ID, timer.ErrValidation)
		}
		if err := t.cfg.CheckBounds(m.Time); err != nil {
			return err
		}
		if t.cfg.HasMarkAt(m.Time, "") {
			return fmt.Errorf("mark at %s: %w", m.Time, timer.ErrDuplicateMarkTime)
		}

		now := t.clock.Now()
		m.CreatedAt = now
		m.UpdatedAt = now

		cfg := t.cfg.Clone()
		cfg.Marks = append(cfg.Marks, m)
		cfg.UpdatedAt = now
		t.cfg = cfg

		added = m
		t.emit(eventbus.MarkAddedPayload{Mark: m})
		return nil
	})
	return added, err
}

// UpdateMark merges patch over the mark with id and re-validates the
// result. Moving a mark re-arms it.
func (t *Timer) UpdateMark(id string, patch timer.MarkPatch) (timer.Mark, error) {
	var updated timer.Mark
	err := t.do(func() error {
		m, err := t.updateMarkLocked(id, patch)
		updated = m
		return err
	})
	return updated, err
}

// ToggleMark flips the Enabled flag of the mark with id.
func (t *Timer) ToggleMark(id string) (timer.Mark, error) {
	var updated timer.Mark
	err := t.do(func() error {
		m, _, ok := t.cfg.MarkByID(id)
		if !ok {
			return fmt.Errorf("mark %q: %w", id, timer.ErrNotFound)
		}
		enabled := !m.Enabled
		var err error
		updated, err = t.updateMarkLocked(id, timer.MarkPatch{Enabled: &enabled})
		return err
	})
	return updated, err
}

func (t *Timer) updateMarkLocked(id string, patch timer.MarkPatch) (timer.Mark, error) {
	prev, idx, ok := t.cfg.MarkByID(id)
	if !ok {
		return timer.Mark{}, fmt.Errorf("mark %q: %w", id, timer.ErrNotFound)
	}

	now := t.clock.Now()
	merged := prev.Apply(patch, now)
	if err := merged.Validate(); err != nil {
		return timer.Mark{}, fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}
	if err := t.cfg.CheckBounds(merged.Time); err != nil {
		return timer.Mark{}, err
	}
	if t.cfg.HasMarkAt(merged.Time, id) {
		return timer.Mark{}, fmt.Errorf("mark at %s: %w", merged.Time, timer.ErrDuplicateMarkTime)
	}

	cfg := t.cfg.Clone()
	cfg.Marks[idx] = merged
	cfg.UpdatedAt = now
	t.cfg = cfg

	if !merged.Time.Equal(prev.Time) {
		t.disarm(id)
	}

	t.emit(eventbus.MarkUpdatedPayload{Previous: prev, Mark: merged})
	return merged, nil
}

// RemoveMark deletes the mark with id and cancels its notification.
func (t *Timer) RemoveMark(id string) (timer.Mark, error) {
	var removed timer.Mark
	err := t.do(func() error {
		m, idx, ok := t.cfg.MarkByID(id)
		if !ok {
			return fmt.Errorf("mark %q: %w", id, timer.ErrNotFound)
		}

		cfg := t.cfg.Clone()
		cfg.Marks = slices.Delete(cfg.Marks, idx, idx+1)
		cfg.UpdatedAt = t.clock.Now()
		t.cfg = cfg

		t.disarm(id)

		removed = m
		t.emit(eventbus.MarkRemovedPayload{Mark: m})
		return nil
	})
	return removed, err
}

// Acknowledge ends the notification for markID early. It does nothing
// when no notification is active for the mark.
func (t *Timer) Acknowledge(markID string) error {
	return t.do(func() error {
		n, ok := t.rt.NotificationFor(markID)
		if !ok {
			return nil
		}

		t.cancelBlink(markID)
		t.dropNotification(markID)

		n.Status = timer.NotificationAcknowledged
		t.emit(eventbus.NotificationCompletedPayload{Notification: n, Acknowledged: true})
		return nil
	})
}

// disarm cancels any notification for id and removes it from the
// triggered set so it can fire again. Caller holds t.mu.
func (t *Timer) disarm(id string) {
	t.cancelBlink(id)
	rt := t.rt.Clone()
	rt.Triggered = slices.DeleteFunc(rt.Triggered, func(s string) bool { return s == id })
	rt.Notifications = slices.DeleteFunc(rt.Notifications, func(n timer.Notification) bool { return n.MarkID == id })
	t.rt = rt
}

func (t *Timer) dropNotification(markID string) {
	rt := t.rt.Clone()
	rt.Notifications = slices.DeleteFunc(rt.Notifications, func(n timer.Notification) bool { return n.MarkID == markID })
	t.rt = rt
}

// startNotification records a notification for m and starts its blink
// loop. Caller holds t.mu.
func (t *Timer) startNotification(m timer.Mark) {
	t.cancelBlink(m.ID)

	n := timer.Notification{
		MarkID:      m.ID,
		TimerID:     t.cfg.ID,
		Status:      timer.NotificationTriggered,
		TriggeredAt: t.clock.Now(),
		MaxBlinks:   m.Notification.BlinkCount,
	}

	rt := t.rt.Clone()
	rt.Notifications = append(rt.Notifications, n)
	t.rt = rt

	t.emit(eventbus.NotificationStartedPayload{Notification: n, Settings: m.Notification})

	t.gen++
	loop := &blinkLoop{
		gen:      t.gen,
		interval: m.Notification.BlinkInterval,
		color:    m.Notification.Color,
	}
	t.blinks[m.ID] = loop
	t.scheduleBlink(m.ID, loop)
}

func (t *Timer) scheduleBlink(markID string, loop *blinkLoop) {
	gen := loop.gen
	loop.handle = t.clock.AfterFunc(loop.interval, func() { t.onBlink(markID, gen) })
}

func (t *Timer) onBlink(markID string, gen uint64) {
	t.mu.Lock()
	loop, ok := t.blinks[markID]
	if t.destroyed || !ok || loop.gen != gen {
		t.mu.Unlock()
		return
	}
	t.blink(markID, loop)
	t.mu.Unlock()

	t.flush()
}

// blink advances the notification for markID by one blink and ends the
// sequence at its maximum. Caller holds t.mu.
func (t *Timer) blink(markID string, loop *blinkLoop) {
	n, ok := t.rt.NotificationFor(markID)
	if !ok {
		delete(t.blinks, markID)
		return
	}
	n.Blinks++

	rt := t.rt.Clone()
	for i := range rt.Notifications {
		if rt.Notifications[i].MarkID == markID {
			rt.Notifications[i] = n
		}
	}
	t.rt = rt

	t.emit(eventbus.NotificationBlinkedPayload{Notification: n, Color: loop.color})

	if n.Blinks >= n.MaxBlinks {
		delete(t.blinks, markID)
		t.dropNotification(markID)
		t.emit(eventbus.NotificationCompletedPayload{Notification: n})
		return
	}
	t.scheduleBlink(markID, loop)
}

func (t *Timer) cancelBlink(markID string) {
	loop, ok := t.blinks[markID]
	if !ok {
		return
	}
	if loop.handle != nil {
		loop.handle.Stop()
	}
	delete(t.blinks, markID)
}

func (t *Timer) cancelBlinks() {
	for id := range t.blinks {
		t.cancelBlink(id)
	}
}
