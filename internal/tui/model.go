// Package tui implements the live timer dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

// Options configure the dashboard.
type Options struct {
	Manager *marktimer.Manager
	Logger  zerolog.Logger
	// Bell rings the terminal bell when a mark with sound triggers.
	Bell bool
}

// actionDoneMsg reports the outcome of a key-driven command.
type actionDoneMsg struct {
	action string
	err    error
}

// Model is the dashboard state. Timers are re-read from the manager each
// time bus events are drained.
type Model struct {
	mgr  *marktimer.Manager
	log  zerolog.Logger
	bell bool

	keys   keyMap
	help   help.Model
	events *EventBuffer
	sub    *eventbus.Subscription
	blinks *BlinkStore
	toasts *ToastController

	timers   []timer.Snapshot
	selected string
	status   string

	width  int
	height int
}

// New builds the model and subscribes it to every event on the manager's
// bus. Call Close when the program exits.
func New(opts Options) (Model, error) {
	if opts.Manager == nil {
		return Model{}, errors.New("tui: manager is required")
	}

	m := Model{
		mgr:    opts.Manager,
		log:    opts.Logger,
		bell:   opts.Bell,
		keys:   defaultKeyMap(),
		help:   help.New(),
		events: NewEventBuffer(),
		blinks: NewBlinkStore(),
		toasts: NewToastController(),
	}

	sub, err := opts.Manager.Bus().SubscribeAll(m.events.Push)
	if err != nil {
		return Model{}, fmt.Errorf("subscribe dashboard: %w", err)
	}
	m.sub = sub
	m.refresh()
	return m, nil
}

// Close detaches the model from the bus.
func (m Model) Close() {
	if m.sub != nil {
		m.sub.Unsubscribe()
	}
}

func (m Model) Init() tea.Cmd {
	return m.events.WaitForSignal()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case eventsReadyMsg:
		cmd := m.handleEvents(m.events.Drain())
		return m, cmd

	case toastTickMsg:
		m.toasts.Tick(toastTickInterval)
		if m.toasts.HasToasts() {
			return m, scheduleToastTick()
		}
		m.toasts.SetTicking(false)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.action, msg.err)
			m.log.Debug().Err(msg.err).Str("action", msg.action).Msg("dashboard action failed")
		} else {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		return m, nil
	case key.Matches(msg, m.keys.All):
		mgr := m.mgr
		return m, func() tea.Msg {
			return actionDoneMsg{action: "pause all", err: mgr.PauseAll(context.Background()).Err()}
		}
	}

	snap, ok := m.current()
	if !ok {
		return m, nil
	}
	id := snap.ID()

	switch {
	case key.Matches(msg, m.keys.Start):
		return m, m.run("start", func(ctx context.Context) error { return m.mgr.Begin(ctx, id) })
	case key.Matches(msg, m.keys.Toggle):
		var cmd timer.Command = timer.Start{}
		switch snap.Runtime.State {
		case timer.StateRunning:
			cmd = timer.Pause{}
		case timer.StatePaused:
			cmd = timer.Resume{}
		}
		return m, m.dispatch(id, cmd)
	case key.Matches(msg, m.keys.Stop):
		return m, m.dispatch(id, timer.Stop{})
	case key.Matches(msg, m.keys.Reset):
		return m, m.dispatch(id, timer.Reset{})
	case key.Matches(msg, m.keys.Ack):
		return m, m.run("acknowledge", func(ctx context.Context) error { return acknowledgeAll(ctx, m.mgr, snap) })
	case key.Matches(msg, m.keys.Remove):
		return m, m.run("remove", func(ctx context.Context) error { return m.mgr.Remove(ctx, id) })
	}

	return m, nil
}

func (m Model) dispatch(id string, cmd timer.Command) tea.Cmd {
	return m.run(cmd.Name(), func(ctx context.Context) error { return m.mgr.Dispatch(ctx, id, cmd) })
}

func (m Model) run(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(context.Background())}
	}
}

// handleEvents folds drained bus events into the view and re-arms the
// event listener.
func (m *Model) handleEvents(events []eventbus.Event) tea.Cmd {
	cmds := []tea.Cmd{m.events.WaitForSignal()}
	pushed := false

	for _, e := range events {
		m.blinks.Record(e)

		n, ok := m.toastFor(e)
		if ok {
			m.toasts.Push(n)
			pushed = true
		}

		if p, ok := e.Payload.(eventbus.MarkTriggeredPayload); ok && m.bell && p.Mark.Notification.Sound {
			cmds = append(cmds, tea.Printf("\a"))
		}
	}

	if pushed && !m.toasts.Ticking() {
		m.toasts.SetTicking(true)
		cmds = append(cmds, scheduleToastTick())
	}

	m.refresh()
	return tea.Batch(cmds...)
}

func (m *Model) toastFor(e eventbus.Event) (notify.Notification, bool) {
	name := m.nameOf(e.TimerID)
	n := notify.Notification{Level: notify.LevelInfo, TimerID: e.TimerID, CreatedAt: e.At}

	switch p := e.Payload.(type) {
	case eventbus.MarkTriggeredPayload:
		n.Message = fmt.Sprintf("%s: %s at %s", name, p.Mark.Name, p.Current)
	case eventbus.TimerCompletedPayload:
		n.Message = fmt.Sprintf("%s completed after %s", name, p.Elapsed)
	case eventbus.TimerRemovedPayload:
		n.Message = fmt.Sprintf("%s removed", p.Name)
	case eventbus.ErrorPayload:
		n.Level = notify.LevelError
		n.Message = fmt.Sprintf("%s %s: %s", name, p.Command, p.Message)
	default:
		return notify.Notification{}, false
	}
	return n, true
}

func (m *Model) nameOf(id string) string {
	for _, s := range m.timers {
		if s.ID() == id {
			return s.Configuration.Name
		}
	}
	return id
}

// refresh re-reads the timers and keeps the selection on the same timer
// when it still exists.
func (m *Model) refresh() {
	live := m.mgr.List()
	m.timers = make([]timer.Snapshot, 0, len(live))
	for _, t := range live {
		m.timers = append(m.timers, t.Snapshot())
	}

	if m.index() < 0 {
		m.selected = ""
		if len(m.timers) > 0 {
			m.selected = m.timers[0].ID()
		}
	}
}

func (m *Model) index() int {
	for i, s := range m.timers {
		if s.ID() == m.selected {
			return i
		}
	}
	return -1
}

func (m *Model) move(delta int) {
	if len(m.timers) == 0 {
		return
	}
	i := max(m.index(), 0) + delta
	i = min(max(i, 0), len(m.timers)-1)
	m.selected = m.timers[i].ID()
}

func (m Model) current() (timer.Snapshot, bool) {
	i := m.index()
	if i < 0 {
		return timer.Snapshot{}, false
	}
	return m.timers[i], true
}

// acknowledgeAll silences every notification still blinking on the timer.
func acknowledgeAll(ctx context.Context, mgr *marktimer.Manager, s timer.Snapshot) error {
	var errs []error
	for _, n := range s.Runtime.Notifications {
		if n.Status != timer.NotificationTriggered {
			continue
		}
		if err := mgr.Dispatch(ctx, s.ID(), timer.AcknowledgeNotification{MarkID: n.MarkID}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
