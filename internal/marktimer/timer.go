// Package marktimer runs timers: the per-timer state machine with its tick
// and blink schedules, and the Manager that owns a set of timers and
// persists them.
package marktimer

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/logging"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/pkg/clock"
)

// DefaultAutoResetDelay is how long a completed auto-reset timer stays
// Completed before it resets.
const DefaultAutoResetDelay = time.Second

// ErrDestroyed is returned by every operation on a destroyed timer.
var ErrDestroyed = fmt.Errorf("timer destroyed: %w", timer.ErrInvalidState)

// Option configures a Timer.
type Option func(*options)

type options struct {
	clock          clock.Clock
	logger         *zerolog.Logger
	autoResetDelay time.Duration
	markID         func() string
}

func defaultOptions() options {
	return options{
		clock:          clock.System{},
		autoResetDelay: DefaultAutoResetDelay,
		markID:         uuid.NewString,
	}
}

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. The timer id is added to it.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithAutoResetDelay sets the grace period before an auto-reset.
func WithAutoResetDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.autoResetDelay = d
		}
	}
}

// WithMarkIDs sets the generator for ids of marks added without one.
func WithMarkIDs(fn func() string) Option {
	return func(o *options) { o.markID = fn }
}

type queued struct {
	at      time.Time
	payload eventbus.Payload
}

type blinkLoop struct {
	gen      uint64
	handle   clock.Timer
	interval time.Duration
	color    string
}

// Timer is one running timer. All methods are safe for concurrent use.
// Events are queued while the timer lock is held and published after it
// is released, so handlers may call back into the timer.
//
// One goroutine drains the queue at a time. A command that runs while
// another goroutine is draining (a tick, or a handler calling back in)
// returns once its events are queued; the draining goroutine publishes
// them, in order, after the events queued before them.
type Timer struct {
	mu    sync.Mutex
	cfg   timer.Configuration
	rt    timer.Runtime
	scope *eventbus.Scope
	clock clock.Clock
	log   zerolog.Logger

	autoResetDelay time.Duration
	markID         func() string

	gen       uint64
	tick      clock.Timer
	tickGen   uint64
	carry     time.Duration
	blinks    map[string]*blinkLoop
	autoReset clock.Timer
	resetGen  uint64
	destroyed bool

	outbox   []queued
	draining bool
}

// New validates cfg and returns an idle timer publishing on bus.
func New(cfg timer.Configuration, bus *eventbus.EventBus, opts ...Option) (*Timer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}
	if err := cfg.CheckMarks(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	base := logging.Component("timer")
	if o.logger != nil {
		base = *o.logger
	}

	cfg = cfg.Clone()
	return &Timer{
		cfg:            cfg,
		rt:             timer.InitialRuntime(cfg),
		scope:          bus.Scoped(cfg.ID),
		clock:          o.clock,
		log:            base.With().Str("timer_id", cfg.ID).Logger(),
		autoResetDelay: o.autoResetDelay,
		markID:         o.markID,
		blinks:         make(map[string]*blinkLoop),
	}, nil
}

// ID returns the timer id.
func (t *Timer) ID() string { return t.cfg.ID }

// Name returns the configured name.
func (t *Timer) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Name
}

// Snapshot returns a copy of the configuration and runtime.
func (t *Timer) Snapshot() timer.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return timer.Snapshot{Configuration: t.cfg.Clone(), Runtime: t.rt.Clone()}
}

func (t *Timer) Configuration() timer.Configuration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Clone()
}

func (t *Timer) Runtime() timer.Runtime {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rt.Clone()
}

func (t *Timer) State() timer.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rt.State
}

func (t *Timer) Current() ptime.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rt.Current
}

// Destroyed reports whether Destroy has been called.
func (t *Timer) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Start begins ticking from Idle or Stopped.
func (t *Timer) Start() error {
	return t.do(func() error {
		if !t.rt.State.CanStart() {
			return &timer.StateError{Op: "start", State: t.rt.State}
		}

		from := t.rt.State
		now := t.clock.Now()
		rt := t.rt.Clone()
		rt.State = timer.StateRunning
		rt.StartedAt = now
		rt.EndedAt = time.Time{}
		rt.PausedFor = 0
		rt.PausedAt = time.Time{}
		rt.LastTickAt = now
		rt.TickInterval = t.cfg.Precision.TickInterval()
		t.rt = rt
		t.carry = 0

		t.scheduleTick()
		t.emit(eventbus.TimerStartedPayload{From: from, Current: rt.Current})
		t.log.Debug().Str("from", string(from)).Msg("timer started")
		return nil
	})
}

// Pause suspends ticking. The current time is kept exactly.
func (t *Timer) Pause() error {
	return t.do(func() error {
		if t.rt.State != timer.StateRunning {
			return &timer.StateError{Op: "pause", State: t.rt.State}
		}

		t.cancelTick()
		rt := t.rt.Clone()
		rt.State = timer.StatePaused
		rt.PausedAt = t.clock.Now()
		t.rt = rt

		t.emit(eventbus.TimerPausedPayload{Current: rt.Current})
		return nil
	})
}

// Resume restarts ticking from the paused time. The paused interval is
// added to PausedFor and never counted as elapsed.
func (t *Timer) Resume() error {
	return t.do(func() error {
		if t.rt.State != timer.StatePaused {
			return &timer.StateError{Op: "resume", State: t.rt.State}
		}

		now := t.clock.Now()
		paused := now.Sub(t.rt.PausedAt)
		rt := t.rt.Clone()
		rt.State = timer.StateRunning
		rt.PausedFor += paused
		rt.PausedAt = time.Time{}
		rt.LastTickAt = now
		t.rt = rt

		t.scheduleTick()
		t.emit(eventbus.TimerResumedPayload{Current: rt.Current, Paused: paused})
		return nil
	})
}

// Stop ends the current run. It is a no-op when the timer is Idle or
// already Stopped and an error when Completed.
func (t *Timer) Stop() error {
	return t.do(func() error {
		switch t.rt.State {
		case timer.StateIdle, timer.StateStopped:
			return nil
		case timer.StateCompleted:
			return &timer.StateError{Op: "stop", State: t.rt.State}
		}

		from := t.rt.State
		now := t.clock.Now()
		t.cancelTick()
		t.cancelBlinks()

		rt := t.rt.Clone()
		if from == timer.StatePaused {
			rt.PausedFor += now.Sub(rt.PausedAt)
			rt.PausedAt = time.Time{}
		}
		rt.State = timer.StateStopped
		rt.EndedAt = now
		rt.Notifications = []timer.Notification{}
		t.rt = rt

		t.emit(eventbus.TimerStoppedPayload{From: from, Current: rt.Current})
		t.log.Debug().Str("from", string(from)).Msg("timer stopped")
		return nil
	})
}

// Reset returns the timer to its initial Idle runtime. It is legal in
// every state.
func (t *Timer) Reset() error {
	return t.do(func() error {
		t.resetLocked()
		return nil
	})
}

func (t *Timer) resetLocked() {
	from := t.rt.State
	t.cancelTick()
	t.cancelBlinks()
	t.cancelAutoReset()
	t.carry = 0
	t.rt = timer.InitialRuntime(t.cfg)

	t.emit(eventbus.TimerResetPayload{From: from, Current: t.rt.Current})
}

// SetTime overrides the current time and re-evaluates marks against it.
// A countdown time may not exceed the target.
func (t *Timer) SetTime(at ptime.Time) error {
	return t.do(func() error {
		if t.cfg.Direction == timer.CountDown {
			if err := t.cfg.CheckBounds(at); err != nil {
				return err
			}
		}

		prev := t.rt.Current
		rt := t.rt.Clone()
		rt.Current = at
		t.rt = rt

		t.emit(eventbus.TimerTimeSetPayload{Previous: prev, Current: at})
		t.evaluateMarks()

		if t.rt.State == timer.StateRunning && t.cfg.Direction == timer.CountDown && at.IsZero() {
			t.complete()
		}
		return nil
	})
}

// Destroy cancels all scheduled work. Later operations fail with
// ErrDestroyed. It is idempotent.
func (t *Timer) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.cancelTick()
	t.cancelBlinks()
	t.cancelAutoReset()
	t.outbox = nil
}

// do runs fn under the lock and then publishes whatever fn queued.
func (t *Timer) do(fn func() error) error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return ErrDestroyed
	}
	err := fn()
	t.mu.Unlock()

	t.flush()
	return err
}

// emit queues p. Caller holds t.mu.
func (t *Timer) emit(p eventbus.Payload) {
	t.outbox = append(t.outbox, queued{at: t.clock.Now(), payload: p})
}

// flush publishes queued events in order. Only one goroutine drains at a
// time; events queued by a handler re-entering the timer, or by a command
// racing the drain, are picked up by the active drainer. Waiting here
// would deadlock a re-entrant handler.
func (t *Timer) flush() {
	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		return
	}
	t.draining = true
	for len(t.outbox) > 0 {
		batch := t.outbox
		t.outbox = nil
		t.mu.Unlock()

		for _, q := range batch {
			t.scope.PublishAt(q.at, q.payload)
		}

		t.mu.Lock()
	}
	t.draining = false
	t.mu.Unlock()
}

func (t *Timer) scheduleTick() {
	t.cancelTick()
	t.tickGen++
	gen := t.tickGen
	t.tick = t.clock.AfterFunc(t.cfg.Precision.TickInterval(), func() { t.onTick(gen) })
}

func (t *Timer) cancelTick() {
	t.tickGen++
	if t.tick != nil {
		t.tick.Stop()
		t.tick = nil
	}
}

func (t *Timer) onTick(gen uint64) {
	t.mu.Lock()
	if t.destroyed || gen != t.tickGen || t.rt.State != timer.StateRunning {
		t.mu.Unlock()
		return
	}
	t.tick = nil
	t.advance()
	if t.rt.State == timer.StateRunning {
		t.scheduleTick()
	}
	t.mu.Unlock()

	t.flush()
}

// advance consumes the whole hundredths elapsed since the last tick and
// carries the remainder. Caller holds t.mu.
func (t *Timer) advance() {
	now := t.clock.Now()
	elapsed := now.Sub(t.rt.LastTickAt) + t.carry
	if elapsed < 0 {
		elapsed = 0
	}
	t.carry = elapsed % ptime.Hundredth
	delta := ptime.FromDuration(elapsed - t.carry)

	rt := t.rt.Clone()
	rt.LastTickAt = now
	if delta.IsZero() {
		t.rt = rt
		return
	}

	if t.cfg.Direction == timer.CountDown {
		rt.Current = rt.Current.Sub(delta)
	} else {
		rt.Current = rt.Current.Add(delta)
	}
	t.rt = rt

	t.emit(eventbus.TimerTickedPayload{Current: rt.Current, Delta: delta})
	t.evaluateMarks()

	if t.cfg.Direction == timer.CountDown && t.rt.Current.IsZero() {
		t.complete()
	}
}

// complete moves a running countdown into Completed. Caller holds t.mu.
func (t *Timer) complete() {
	t.cancelTick()

	rt := t.rt.Clone()
	rt.State = timer.StateCompleted
	rt.Current = ptime.Zero
	rt.EndedAt = t.clock.Now()
	t.rt = rt

	t.emit(eventbus.TimerCompletedPayload{
		Current: rt.Current,
		Elapsed: t.cfg.Target.Sub(rt.Current),
	})
	t.log.Debug().Msg("timer completed")

	if t.cfg.AutoReset {
		t.cancelAutoReset()
		gen := t.resetGen
		t.autoReset = t.clock.AfterFunc(t.autoResetDelay, func() { t.onAutoReset(gen) })
	}
}

func (t *Timer) cancelAutoReset() {
	t.resetGen++
	if t.autoReset != nil {
		t.autoReset.Stop()
		t.autoReset = nil
	}
}

func (t *Timer) onAutoReset(gen uint64) {
	t.mu.Lock()
	if t.destroyed || gen != t.resetGen || t.rt.State != timer.StateCompleted {
		t.mu.Unlock()
		return
	}
	t.autoReset = nil
	t.resetLocked()
	t.mu.Unlock()

	t.flush()
}

// crossed reports whether the current time has reached mark time at in
// the timer's direction.
func (t *Timer) crossed(at ptime.Time) bool {
	if t.cfg.Direction == timer.CountDown {
		return t.rt.Current.Compare(at) <= 0
	}
	return t.rt.Current.Compare(at) >= 0
}

// evaluateMarks triggers every enabled mark the current time has crossed
// that has not triggered yet. Marks crossed together trigger in the order
// the timer passes them. Caller holds t.mu.
func (t *Timer) evaluateMarks() {
	var due []timer.Mark
	for _, m := range t.cfg.Marks {
		if m.Enabled && !t.rt.IsTriggered(m.ID) && t.crossed(m.Time) {
			due = append(due, m)
		}
	}
	if len(due) == 0 {
		return
	}

	slices.SortStableFunc(due, func(a, b timer.Mark) int {
		if t.cfg.Direction == timer.CountDown {
			return b.Time.Compare(a.Time)
		}
		return a.Time.Compare(b.Time)
	})

	for _, m := range due {
		rt := t.rt.Clone()
		rt.Triggered = append(rt.Triggered, m.ID)
		t.rt = rt

		t.emit(eventbus.MarkTriggeredPayload{Mark: m, Current: rt.Current})
		t.log.Debug().Str("mark", m.Name).Str("at", rt.Current.String()).Msg("mark triggered")
		t.startNotification(m)
	}
}

// restoreRuntime installs the lifecycle fields of a persisted runtime
// without scheduling anything. Running and Paused land in Stopped. Marks
// the runtime had already triggered stay triggered when they still exist.
func (t *Timer) restoreRuntime(persisted timer.Runtime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rt := t.rt.Clone()
	switch persisted.State {
	case timer.StateRunning, timer.StatePaused, timer.StateStopped:
		rt.State = timer.StateStopped
	case timer.StateCompleted:
		rt.State = timer.StateCompleted
	default:
		return
	}

	rt.StartedAt = persisted.StartedAt
	rt.EndedAt = persisted.EndedAt
	rt.PausedFor = persisted.PausedFor
	rt.Triggered = make([]string, 0, len(persisted.Triggered))
	for _, id := range persisted.Triggered {
		if _, _, ok := t.cfg.MarkByID(id); ok && !slices.Contains(rt.Triggered, id) {
			rt.Triggered = append(rt.Triggered, id)
		}
	}
	if rt.EndedAt.IsZero() {
		rt.EndedAt = t.clock.Now()
	}
	t.rt = rt
}
