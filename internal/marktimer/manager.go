package marktimer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/kv"
	"github.com/hay-kot/marktimer/internal/core/logging"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/pkg/clock"
	pkgkv "github.com/hay-kot/marktimer/pkg/kv"
	"github.com/hay-kot/marktimer/pkg/randid"
)

// Namespace is the key prefix for persisted timer snapshots.
const Namespace = "timer"

const (
	timerIDLength = 8
	batchLimit    = 8
)

// CreateParams describes a new timer. Zero values take defaults:
// countdown when a target is given (count-up otherwise) and hundredths
// precision.
type CreateParams struct {
	ID          string
	Name        string
	Description string
	Target      ptime.Time
	Direction   timer.Direction
	Precision   ptime.Precision
	AutoStart   bool
	AutoReset   bool
	Marks       []timer.Mark
}

// BatchResult reports the outcome of a collection-level command. Each
// timer succeeds or fails on its own; nothing is rolled back.
type BatchResult struct {
	Command   string           `json:"command"`
	Succeeded []string         `json:"succeeded"`
	Failed    map[string]error `json:"-"`
}

// Errors returns the failures keyed by timer id as strings.
func (r BatchResult) Errors() map[string]string {
	out := make(map[string]string, len(r.Failed))
	for id, err := range r.Failed {
		out[id] = err.Error()
	}
	return out
}

// Err joins every failure, or returns nil.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("%s: %w", id, r.Failed[id]))
	}
	return errors.Join(errs...)
}

// Stats aggregates the state of every timer.
type Stats struct {
	Total               int                 `json:"total"`
	ByState             map[timer.State]int `json:"by_state"`
	Marks               int                 `json:"marks"`
	TriggeredMarks      int                 `json:"triggered_marks"`
	ActiveNotifications int                 `json:"active_notifications"`
}

// Manager owns the live timers, runs collection-level commands and keeps
// the store in sync with timer events.
type Manager struct {
	bus     *eventbus.EventBus
	store   *kv.TypedKV[timer.Snapshot]
	timers  *pkgkv.Store[string, *Timer]
	opts    []Option
	log     zerolog.Logger
	persist *persister
	sub     *eventbus.Subscription
	newID   func() string
	clock   clock.Clock
	markIDs func() string

	closeOnce sync.Once
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimerOptions applies opts to every timer the manager builds.
func WithTimerOptions(opts ...Option) ManagerOption {
	return func(m *Manager) { m.opts = append(m.opts, opts...) }
}

// WithManagerLogger replaces the component logger.
func WithManagerLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithIDs sets the generator for timer ids.
func WithIDs(fn func() string) ManagerOption {
	return func(m *Manager) { m.newID = fn }
}

// NewManager returns a manager publishing on bus and persisting to store.
func NewManager(bus *eventbus.EventBus, store kv.KV, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		bus:    bus,
		store:  kv.Scoped[timer.Snapshot](store, Namespace),
		timers: pkgkv.New[string, *Timer](),
		log:    logging.Component("manager"),
		newID:  func() string { return randid.Generate(timerIDLength) },
	}
	for _, opt := range opts {
		opt(m)
	}

	o := defaultOptions()
	for _, opt := range m.opts {
		opt(&o)
	}
	m.clock = o.clock
	m.markIDs = o.markID

	m.persist = newPersister(m.store, m.log)

	sub, err := bus.SubscribeAll(m.onEvent)
	if err != nil {
		_ = m.persist.close(context.Background())
		return nil, fmt.Errorf("subscribe manager: %w", err)
	}
	m.sub = sub

	return m, nil
}

// Bus returns the shared event bus.
func (m *Manager) Bus() *eventbus.EventBus { return m.bus }

// persisted reports whether events of kind change a timer's snapshot.
func persisted(kind eventbus.Kind) bool {
	switch kind {
	case eventbus.KindTimerTicked, eventbus.KindNotificationBlinked, eventbus.KindError, eventbus.KindTimerRemoved:
		return false
	}
	return true
}

func (m *Manager) onEvent(e eventbus.Event) {
	if !persisted(e.Kind()) {
		return
	}
	t, ok := m.timers.Get(e.TimerID)
	if !ok || t.Destroyed() {
		return
	}
	m.persist.save(t.Snapshot())
}

// Create validates params, registers a new idle timer and queues its
// first save. With AutoStart the timer is started immediately.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*Timer, error) {
	if p.ID == "" {
		p.ID = m.newID()
	}
	if p.Direction == "" {
		p.Direction = timer.CountUp
		if !p.Target.IsZero() {
			p.Direction = timer.CountDown
		}
	}
	if p.Precision == "" {
		p.Precision = ptime.PrecisionHundredths
	}

	now := m.now()
	marks := make([]timer.Mark, 0, len(p.Marks))
	for _, mk := range p.Marks {
		if mk.ID == "" {
			mk.ID = m.markIDs()
		}
		if mk.CreatedAt.IsZero() {
			mk.CreatedAt = now
		}
		mk.UpdatedAt = now
		marks = append(marks, mk)
	}

	cfg := timer.Configuration{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		Target:      p.Target,
		Direction:   p.Direction,
		Marks:       marks,
		AutoStart:   p.AutoStart,
		AutoReset:   p.AutoReset,
		Precision:   p.Precision,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	t, err := New(cfg, m.bus, m.opts...)
	if err != nil {
		return nil, err
	}
	if !m.timers.SetIfAbsent(cfg.ID, t) {
		return nil, fmt.Errorf("timer id %q already exists: %w", cfg.ID, timer.ErrValidation)
	}

	m.log.Info().Ctx(logging.WithTimerID(ctx, cfg.ID)).Str("name", cfg.Name).Msg("timer created")
	m.bus.Publish(eventbus.Event{
		TimerID: cfg.ID,
		At:      now,
		Payload: eventbus.TimerCreatedPayload{Snapshot: t.Snapshot()},
	})

	if cfg.AutoStart {
		if err := t.Dispatch(timer.Start{}); err != nil {
			m.log.Error().Err(err).Str("timer_id", cfg.ID).Msg("auto-start")
		}
	}

	return t, nil
}

func (m *Manager) now() time.Time {
	return m.clock.Now()
}

// Get returns the timer with id.
func (m *Manager) Get(id string) (*Timer, error) {
	t, ok := m.timers.Get(id)
	if !ok {
		return nil, fmt.Errorf("timer %q: %w", id, timer.ErrNotFound)
	}
	return t, nil
}

// List returns every timer ordered by creation time.
func (m *Manager) List() []*Timer {
	return sortTimers(m.timers.Values())
}

// Filter returns the timers in any of states, ordered by creation time.
func (m *Manager) Filter(states ...timer.State) []*Timer {
	var out []*Timer
	for _, t := range m.timers.Values() {
		if slices.Contains(states, t.State()) {
			out = append(out, t)
		}
	}
	return sortTimers(out)
}

// Match returns the timers whose name or id matches the doublestar
// pattern. An empty pattern matches everything.
func (m *Manager) Match(pattern string) ([]*Timer, error) {
	if pattern == "" {
		return m.List(), nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, timer.ErrValidation)
	}

	var out []*Timer
	for _, t := range m.List() {
		byName, _ := doublestar.Match(pattern, t.Name())
		byID, _ := doublestar.Match(pattern, t.ID())
		if byName || byID {
			out = append(out, t)
		}
	}
	return out, nil
}

func sortTimers(ts []*Timer) []*Timer {
	type keyed struct {
		t   *Timer
		cfg timer.Configuration
	}
	ks := make([]keyed, len(ts))
	for i, t := range ts {
		ks[i] = keyed{t: t, cfg: t.Configuration()}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].cfg.CreatedAt.Equal(ks[j].cfg.CreatedAt) {
			return ks[i].cfg.ID < ks[j].cfg.ID
		}
		return ks[i].cfg.CreatedAt.Before(ks[j].cfg.CreatedAt)
	})

	out := make([]*Timer, len(ks))
	for i, k := range ks {
		out[i] = k.t
	}
	return out
}

// Stats aggregates counts over every timer.
func (m *Manager) Stats() Stats {
	s := Stats{ByState: make(map[timer.State]int, len(timer.States))}
	for _, st := range timer.States {
		s.ByState[st] = 0
	}
	for _, t := range m.timers.Values() {
		snap := t.Snapshot()
		s.Total++
		s.ByState[snap.Runtime.State]++
		s.Marks += len(snap.Configuration.Marks)
		s.TriggeredMarks += len(snap.Runtime.Triggered)
		s.ActiveNotifications += len(snap.Runtime.Notifications)
	}
	return s
}

// Dispatch sends cmd to the timer with id. An unknown id is reported on
// the bus like any other command failure.
func (m *Manager) Dispatch(ctx context.Context, id string, cmd timer.Command) error {
	t, err := m.Get(id)
	if err != nil {
		name := ""
		if cmd != nil {
			name = cmd.Name()
		}
		m.bus.Publish(eventbus.Event{
			TimerID: id,
			Payload: eventbus.ErrorPayload{Command: name, Code: timer.Code(err), Message: err.Error()},
		})
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.Dispatch(cmd)
}

// Begin moves the timer into Running from whatever state it is in. A
// paused timer resumes and a completed one is reset and started over.
func (m *Manager) Begin(ctx context.Context, id string) error {
	t, err := m.Get(id)
	if err != nil {
		return err
	}

	switch t.State() {
	case timer.StateRunning:
		return nil
	case timer.StatePaused:
		return m.Dispatch(ctx, id, timer.Resume{})
	case timer.StateCompleted:
		if err := m.Dispatch(ctx, id, timer.Reset{}); err != nil {
			return err
		}
	}
	return m.Dispatch(ctx, id, timer.Start{})
}

// Apply dispatches cmd to each listed timer concurrently.
func (m *Manager) Apply(ctx context.Context, ids []string, cmd timer.Command) BatchResult {
	res := BatchResult{Command: cmd.Name(), Succeeded: []string{}, Failed: map[string]error{}}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(batchLimit)

	for _, id := range ids {
		g.Go(func() error {
			err := m.Dispatch(ctx, id, cmd)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[id] = err
			} else {
				res.Succeeded = append(res.Succeeded, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(res.Succeeded)
	return res
}

func (m *Manager) applyStates(ctx context.Context, cmd timer.Command, states ...timer.State) BatchResult {
	return m.Apply(ctx, ids(m.Filter(states...)), cmd)
}

// StartAll starts every idle or stopped timer.
func (m *Manager) StartAll(ctx context.Context) BatchResult {
	return m.applyStates(ctx, timer.Start{}, timer.StateIdle, timer.StateStopped)
}

// PauseAll pauses every running timer.
func (m *Manager) PauseAll(ctx context.Context) BatchResult {
	return m.applyStates(ctx, timer.Pause{}, timer.StateRunning)
}

// ResumeAll resumes every paused timer.
func (m *Manager) ResumeAll(ctx context.Context) BatchResult {
	return m.applyStates(ctx, timer.Resume{}, timer.StatePaused)
}

// StopAll stops every running or paused timer.
func (m *Manager) StopAll(ctx context.Context) BatchResult {
	return m.applyStates(ctx, timer.Stop{}, timer.StateRunning, timer.StatePaused)
}

// ResetAll resets every timer.
func (m *Manager) ResetAll(ctx context.Context) BatchResult {
	return m.applyStates(ctx, timer.Reset{}, timer.States...)
}

// Batch applies a lifecycle command to the timers whose name or id
// matches pattern. An empty pattern targets every timer the command can
// apply to, as StartAll and the other collection commands do.
func (m *Manager) Batch(ctx context.Context, cmd timer.Command, pattern string) (BatchResult, error) {
	if pattern != "" {
		ts, err := m.Match(pattern)
		if err != nil {
			return BatchResult{}, err
		}
		return m.Apply(ctx, ids(ts), cmd), nil
	}

	switch cmd.(type) {
	case timer.Start:
		return m.StartAll(ctx), nil
	case timer.Pause:
		return m.PauseAll(ctx), nil
	case timer.Resume:
		return m.ResumeAll(ctx), nil
	case timer.Stop:
		return m.StopAll(ctx), nil
	case timer.Reset:
		return m.ResetAll(ctx), nil
	default:
		return BatchResult{}, fmt.Errorf("%s needs a pattern: %w", cmd.Name(), timer.ErrValidation)
	}
}

func ids(ts []*Timer) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID()
	}
	return out
}

// Remove stops, destroys and unregisters the timer and deletes its stored
// snapshot.
func (m *Manager) Remove(ctx context.Context, id string) error {
	t, ok := m.timers.Pop(id)
	if !ok {
		return fmt.Errorf("timer %q: %w", id, timer.ErrNotFound)
	}

	name := t.Name()
	if err := t.Stop(); err != nil && !errors.Is(err, timer.ErrInvalidState) {
		m.log.Warn().Err(err).Str("timer_id", id).Msg("stop before remove")
	}
	t.Destroy()
	m.persist.remove(id)

	m.log.Info().Ctx(logging.WithTimerID(ctx, id)).Msg("timer removed")
	m.bus.Publish(eventbus.Event{TimerID: id, Payload: eventbus.TimerRemovedPayload{Name: name}})
	return nil
}

// Restore loads every stored snapshot and registers a timer for each. A
// snapshot that cannot be decoded or rebuilt is skipped and reported in
// the returned error.
func (m *Manager) Restore(ctx context.Context) ([]*Timer, error) {
	snaps, listErr := m.store.List(ctx)
	if snaps == nil && listErr != nil {
		return nil, fmt.Errorf("%w: %w", timer.ErrPersistence, listErr)
	}

	ordered := make([]timer.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		ordered = append(ordered, s)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Configuration.CreatedAt.Before(ordered[j].Configuration.CreatedAt)
	})

	errs := []error{}
	if listErr != nil {
		errs = append(errs, fmt.Errorf("%w: %w", timer.ErrPersistence, listErr))
	}

	var restored []*Timer
	for _, s := range ordered {
		t, err := m.RestoreSnapshot(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", s.ID(), err))
			continue
		}
		restored = append(restored, t)
	}

	m.log.Info().Int("restored", len(restored)).Int("failed", len(errs)).Msg("timers restored")
	return restored, errors.Join(errs...)
}

// RestoreSnapshot rebuilds a timer from s. A timer that was not idle
// lands in Stopped (or stays Completed) with its persisted time replayed
// through SetTime. Marks in the persisted triggered set stay quiet; only
// marks crossed but never triggered fire. It never resumes ticking.
func (m *Manager) RestoreSnapshot(s timer.Snapshot) (*Timer, error) {
	t, err := New(s.Configuration, m.bus, m.opts...)
	if err != nil {
		return nil, err
	}
	if !m.timers.SetIfAbsent(t.ID(), t) {
		return nil, fmt.Errorf("timer id %q already exists: %w", t.ID(), timer.ErrValidation)
	}

	if s.Runtime.State != timer.StateIdle && s.Runtime.State != "" {
		t.restoreRuntime(s.Runtime)
		if err := t.SetTime(s.Runtime.Current); err != nil {
			m.log.Warn().Err(err).Str("timer_id", t.ID()).Msg("replay persisted time")
		}
	}
	return t, nil
}

// Flush waits for queued writes to reach the store.
func (m *Manager) Flush(ctx context.Context) error {
	return m.persist.flush(ctx)
}

// Close stops listening for events, queues a final snapshot of every
// timer, destroys them and drains the write queue. It is idempotent.
func (m *Manager) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		m.sub.Unsubscribe()
		for _, t := range m.timers.Values() {
			if !t.Destroyed() {
				m.persist.save(t.Snapshot())
			}
			t.Destroy()
		}
		err = m.persist.close(ctx)
	})
	return err
}
