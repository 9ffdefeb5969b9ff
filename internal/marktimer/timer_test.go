package marktimer

import (
	"errors"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/eventbus/testbus"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/pkg/clock/clocktest"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func countdown(target string, marks ...timer.Mark) timer.Configuration {
	return timer.Configuration{
		ID:        "t1",
		Name:      "test",
		Target:    ptime.MustParse(target),
		Direction: timer.CountDown,
		Precision: ptime.PrecisionHundredths,
		Marks:     marks,
	}
}

func countup(marks ...timer.Mark) timer.Configuration {
	return timer.Configuration{
		ID:        "t1",
		Name:      "test",
		Direction: timer.CountUp,
		Precision: ptime.PrecisionHundredths,
		Marks:     marks,
	}
}

func mark(id, name, at string) timer.Mark {
	m := timer.NewMark(name, ptime.MustParse(at))
	m.ID = id
	return m
}

type harness struct {
	timer *Timer
	bus   *testbus.Bus
	clock *clocktest.Clock
}

func newHarness(t *testing.T, cfg timer.Configuration, opts ...Option) harness {
	t.Helper()

	tb := testbus.New(t)
	clk := clocktest.New(t0)
	ids := 0
	opts = append([]Option{
		WithClock(clk),
		WithMarkIDs(func() string {
			ids++
			return "gen-" + string(rune('a'+ids-1))
		}),
	}, opts...)

	tm, err := New(cfg, tb.EventBus, opts...)
	require.NoError(t, err)
	t.Cleanup(tm.Destroy)

	return harness{timer: tm, bus: tb, clock: clk}
}

func payload[P eventbus.Payload](t *testing.T, e eventbus.Event) P {
	t.Helper()
	p, ok := e.Payload.(P)
	require.True(t, ok, "payload is %T", e.Payload)
	return p
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     timer.Configuration
		wantErr error
	}{
		{
			name:    "countdown without target",
			cfg:     countdown("0"),
			wantErr: timer.ErrValidation,
		},
		{
			name:    "duplicate mark times",
			cfg:     countdown("10.00", mark("a", "a", "5.00"), mark("b", "b", "5.00")),
			wantErr: timer.ErrDuplicateMarkTime,
		},
		{
			name:    "mark beyond target",
			cfg:     countdown("10.00", mark("a", "a", "11.00")),
			wantErr: timer.ErrOutOfBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, eventbus.New())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTimer_InitialState(t *testing.T) {
	h := newHarness(t, countdown("10.00"))

	assert.Equal(t, timer.StateIdle, h.timer.State())
	assert.Equal(t, ptime.MustParse("10.00"), h.timer.Current())

	up := newHarness(t, countup())
	assert.Equal(t, ptime.Zero, up.timer.Current())
}

func TestTimer_StartFromIdle(t *testing.T) {
	h := newHarness(t, countdown("10.00"))

	require.NoError(t, h.timer.Start())
	assert.Equal(t, timer.StateRunning, h.timer.State())
	assert.Equal(t, t0, h.timer.Runtime().StartedAt)

	h.clock.Advance(time.Second)
	assert.Equal(t, ptime.MustParse("9.00"), h.timer.Current())

	started, ok := h.bus.Last(eventbus.KindTimerStarted)
	require.True(t, ok)
	assert.Equal(t, timer.StateIdle, payload[eventbus.TimerStartedPayload](t, started).From)
}

func TestTimer_StartWhileRunningFails(t *testing.T) {
	h := newHarness(t, countdown("10.00"))
	require.NoError(t, h.timer.Start())

	err := h.timer.Start()
	require.ErrorIs(t, err, timer.ErrInvalidState)

	var se *timer.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, timer.StateRunning, se.State)
	assert.Equal(t, timer.StateRunning, h.timer.State())
	assert.Equal(t, 1, h.bus.Count(eventbus.KindTimerStarted))
}

func TestTimer_IllegalTransitions(t *testing.T) {
	h := newHarness(t, countdown("10.00"))

	assert.ErrorIs(t, h.timer.Pause(), timer.ErrInvalidState)
	assert.ErrorIs(t, h.timer.Resume(), timer.ErrInvalidState)

	require.NoError(t, h.timer.Start())
	assert.ErrorIs(t, h.timer.Resume(), timer.ErrInvalidState)
}

func TestTimer_CountdownCompletesOnce(t *testing.T) {
	h := newHarness(t, countdown("10.00"))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(10 * time.Second)

	assert.Equal(t, timer.StateCompleted, h.timer.State())
	assert.Equal(t, ptime.Zero, h.timer.Current())
	assert.Equal(t, "00:00.00", h.timer.Current().String())
	assert.Equal(t, 1, h.bus.Count(eventbus.KindTimerCompleted))

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 1, h.bus.Count(eventbus.KindTimerCompleted))
	assert.Equal(t, ptime.Zero, h.timer.Current())
	assert.Zero(t, h.clock.Pending(), "no work scheduled after completion")

	done, _ := h.bus.Last(eventbus.KindTimerCompleted)
	p := payload[eventbus.TimerCompletedPayload](t, done)
	assert.Equal(t, ptime.MustParse("10.00"), p.Elapsed)
	assert.Equal(t, t0.Add(10*time.Second), h.timer.Runtime().EndedAt)
}

func TestTimer_CountdownNeverNegative(t *testing.T) {
	// Seconds precision ticks every 100ms; a 0.05 target overshoots on
	// the first tick.
	cfg := countdown("0.05")
	cfg.Precision = ptime.PrecisionSeconds
	h := newHarness(t, cfg)
	require.NoError(t, h.timer.Start())

	h.clock.Advance(100 * time.Millisecond)

	assert.Equal(t, timer.StateCompleted, h.timer.State())
	assert.Equal(t, ptime.Zero, h.timer.Current())
}

func TestTimer_CountUpHasNoUpperBound(t *testing.T) {
	h := newHarness(t, countup(mark("m", "one", "1.00")))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(90 * time.Second)

	assert.Equal(t, timer.StateRunning, h.timer.State())
	assert.Equal(t, ptime.MustParse("01:30.00"), h.timer.Current())
	assert.Equal(t, 1, h.bus.Count(eventbus.KindMarkTriggered))
}

func TestTimer_OvershootingMarkTriggersOnce(t *testing.T) {
	cfg := countdown("10.00", mark("m", "half", "4.95"))
	cfg.Precision = ptime.PrecisionSeconds
	h := newHarness(t, cfg)
	require.NoError(t, h.timer.Start())

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, ptime.MustParse("5.00"), h.timer.Current())
	assert.Zero(t, h.bus.Count(eventbus.KindMarkTriggered))

	h.clock.Advance(100 * time.Millisecond)
	require.Equal(t, 1, h.bus.Count(eventbus.KindMarkTriggered))

	e, _ := h.bus.Last(eventbus.KindMarkTriggered)
	p := payload[eventbus.MarkTriggeredPayload](t, e)
	assert.Equal(t, ptime.MustParse("4.90"), p.Current)
	assert.Equal(t, "half", p.Mark.Name)

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, h.bus.Count(eventbus.KindMarkTriggered))
	assert.True(t, h.timer.Runtime().IsTriggered("m"))
}

func TestTimer_DisabledMarkNeverTriggers(t *testing.T) {
	m := mark("m", "off", "5.00")
	m.Enabled = false
	h := newHarness(t, countdown("10.00", m))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(10 * time.Second)
	h.bus.AssertNotPublished(t, eventbus.KindMarkTriggered)
}

func TestTimer_MarksCrossedTogetherTriggerInOrder(t *testing.T) {
	h := newHarness(t, countdown("10.00",
		mark("low", "low", "2.00"),
		mark("high", "high", "8.00"),
	))

	require.NoError(t, h.timer.SetTime(ptime.MustParse("1.00")))

	events := h.bus.OfKind(eventbus.KindMarkTriggered)
	require.Len(t, events, 2)
	assert.Equal(t, "high", payload[eventbus.MarkTriggeredPayload](t, events[0]).Mark.ID)
	assert.Equal(t, "low", payload[eventbus.MarkTriggeredPayload](t, events[1]).Mark.ID)
}

func TestTimer_PauseResumeExcludesPausedInterval(t *testing.T) {
	h := newHarness(t, countdown("10.00"))
	require.NoError(t, h.timer.Start())
	h.clock.Advance(time.Second)

	require.NoError(t, h.timer.Pause())
	before := h.timer.Current()
	assert.Zero(t, h.clock.Pending())

	h.clock.Advance(time.Hour)
	assert.Equal(t, before, h.timer.Current())

	require.NoError(t, h.timer.Resume())
	assert.Equal(t, before, h.timer.Current(), "resume must not count the paused interval")
	assert.Equal(t, time.Hour, h.timer.Runtime().PausedFor)

	h.clock.Advance(10 * time.Millisecond)
	assert.Equal(t, ptime.MustParse("8.99"), h.timer.Current())

	resumed, _ := h.bus.Last(eventbus.KindTimerResumed)
	assert.Equal(t, time.Hour, payload[eventbus.TimerResumedPayload](t, resumed).Paused)
}

func TestTimer_MillisecondPrecisionCarriesRemainder(t *testing.T) {
	cfg := countup()
	cfg.Precision = ptime.PrecisionMilliseconds
	h := newHarness(t, cfg)
	require.NoError(t, h.timer.Start())

	h.clock.AdvanceSteps(25, time.Millisecond)

	assert.Equal(t, ptime.FromTotal(2), h.timer.Current())
	assert.Equal(t, 2, h.bus.Count(eventbus.KindTimerTicked))
}

func TestTimer_Stop(t *testing.T) {
	t.Run("idle is a no-op", func(t *testing.T) {
		h := newHarness(t, countdown("10.00"))
		require.NoError(t, h.timer.Stop())
		assert.Equal(t, timer.StateIdle, h.timer.State())
		h.bus.AssertNotPublished(t, eventbus.KindTimerStopped)
	})

	t.Run("running clears notifications", func(t *testing.T) {
		h := newHarness(t, countdown("10.00", mark("m", "m", "7.00")))
		require.NoError(t, h.timer.Start())
		h.clock.Advance(3 * time.Second)
		require.Len(t, h.timer.Runtime().Notifications, 1)

		require.NoError(t, h.timer.Stop())

		rt := h.timer.Runtime()
		assert.Equal(t, timer.StateStopped, rt.State)
		assert.Empty(t, rt.Notifications)
		assert.Equal(t, t0.Add(3*time.Second), rt.EndedAt)
		assert.Zero(t, h.clock.Pending())

		// Stopping again is a no-op.
		require.NoError(t, h.timer.Stop())
		assert.Equal(t, 1, h.bus.Count(eventbus.KindTimerStopped))
	})

	t.Run("paused", func(t *testing.T) {
		h := newHarness(t, countdown("10.00"))
		require.NoError(t, h.timer.Start())
		require.NoError(t, h.timer.Pause())
		h.clock.Advance(time.Minute)

		require.NoError(t, h.timer.Stop())
		assert.Equal(t, timer.StateStopped, h.timer.State())
		assert.Equal(t, time.Minute, h.timer.Runtime().PausedFor)
	})

	t.Run("completed fails", func(t *testing.T) {
		h := newHarness(t, countdown("1.00"))
		require.NoError(t, h.timer.Start())
		h.clock.Advance(time.Second)

		assert.ErrorIs(t, h.timer.Stop(), timer.ErrInvalidState)
		assert.Equal(t, timer.StateCompleted, h.timer.State())
	})

	t.Run("restart from stopped keeps time", func(t *testing.T) {
		h := newHarness(t, countdown("10.00"))
		require.NoError(t, h.timer.Start())
		h.clock.Advance(2 * time.Second)
		require.NoError(t, h.timer.Stop())

		require.NoError(t, h.timer.Start())
		assert.Equal(t, ptime.MustParse("8.00"), h.timer.Current())
		assert.True(t, h.timer.Runtime().EndedAt.IsZero())
	})
}

func TestTimer_ResetCancelsEverything(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("m", "m", "7.00")))
	require.NoError(t, h.timer.Start())
	h.clock.Advance(3 * time.Second)
	require.Positive(t, h.clock.Pending())

	require.NoError(t, h.timer.Reset())

	rt := h.timer.Runtime()
	assert.Equal(t, timer.StateIdle, rt.State)
	assert.Equal(t, ptime.MustParse("10.00"), rt.Current)
	assert.Empty(t, rt.Triggered)
	assert.Empty(t, rt.Notifications)
	assert.Zero(t, h.clock.Pending())

	h.bus.Reset()
	h.clock.Advance(10 * time.Second)
	assert.Empty(t, h.bus.Events(), "no callbacks after reset")
}

func TestTimer_ResetIsAlwaysLegal(t *testing.T) {
	h := newHarness(t, countup())
	for range 3 {
		require.NoError(t, h.timer.Reset())
	}
	assert.Equal(t, 3, h.bus.Count(eventbus.KindTimerReset))
}

func TestTimer_AutoReset(t *testing.T) {
	cfg := countdown("1.00")
	cfg.AutoReset = true
	h := newHarness(t, cfg, WithAutoResetDelay(200*time.Millisecond))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(time.Second)
	require.Equal(t, timer.StateCompleted, h.timer.State())

	h.clock.Advance(199 * time.Millisecond)
	assert.Equal(t, timer.StateCompleted, h.timer.State())

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, timer.StateIdle, h.timer.State())
	assert.Equal(t, ptime.MustParse("1.00"), h.timer.Current())

	kinds := h.bus.Kinds(eventbus.KindTimerTicked)
	assert.Equal(t, []eventbus.Kind{
		eventbus.KindTimerStarted,
		eventbus.KindTimerCompleted,
		eventbus.KindTimerReset,
	}, kinds)
}

func TestTimer_AutoResetCancelledByManualReset(t *testing.T) {
	cfg := countdown("1.00")
	cfg.AutoReset = true
	h := newHarness(t, cfg)
	require.NoError(t, h.timer.Start())
	h.clock.Advance(time.Second)

	require.NoError(t, h.timer.Reset())
	require.NoError(t, h.timer.Start())
	h.clock.Advance(500 * time.Millisecond)

	assert.Equal(t, timer.StateRunning, h.timer.State(), "stale auto-reset must not fire")
}

func TestTimer_SetTime(t *testing.T) {
	t.Run("re-evaluates marks", func(t *testing.T) {
		h := newHarness(t, countdown("10.00", mark("m", "m", "5.00")))

		require.NoError(t, h.timer.SetTime(ptime.MustParse("3.00")))

		assert.Equal(t, ptime.MustParse("3.00"), h.timer.Current())
		assert.Equal(t, timer.StateIdle, h.timer.State())
		assert.Equal(t, []eventbus.Kind{
			eventbus.KindTimerTimeSet,
			eventbus.KindMarkTriggered,
			eventbus.KindNotificationStarted,
		}, h.bus.Kinds())
	})

	t.Run("countdown bound", func(t *testing.T) {
		h := newHarness(t, countdown("10.00"))
		err := h.timer.SetTime(ptime.MustParse("11.00"))
		require.ErrorIs(t, err, timer.ErrOutOfBounds)
		assert.Equal(t, ptime.MustParse("10.00"), h.timer.Current())
	})

	t.Run("zero completes a running countdown", func(t *testing.T) {
		h := newHarness(t, countdown("10.00"))
		require.NoError(t, h.timer.Start())
		require.NoError(t, h.timer.SetTime(ptime.Zero))
		assert.Equal(t, timer.StateCompleted, h.timer.State())
	})
}

func TestTimer_NotificationSequence(t *testing.T) {
	m := mark("m", "m", "7.00")
	m.Notification.BlinkCount = 3
	m.Notification.BlinkInterval = 500 * time.Millisecond
	h := newHarness(t, countdown("10.00", m))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(3 * time.Second)
	require.Equal(t, 1, h.bus.Count(eventbus.KindNotificationStarted))
	n, ok := h.timer.Runtime().NotificationFor("m")
	require.True(t, ok)
	assert.Equal(t, timer.NotificationTriggered, n.Status)
	assert.Equal(t, 3, n.MaxBlinks)

	h.clock.Advance(time.Second)
	assert.Equal(t, 2, h.bus.Count(eventbus.KindNotificationBlinked))
	n, _ = h.timer.Runtime().NotificationFor("m")
	assert.Equal(t, 2, n.Blinks)

	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 3, h.bus.Count(eventbus.KindNotificationBlinked))
	assert.Equal(t, 1, h.bus.Count(eventbus.KindNotificationCompleted))
	assert.Empty(t, h.timer.Runtime().Notifications)

	done, _ := h.bus.Last(eventbus.KindNotificationCompleted)
	assert.False(t, payload[eventbus.NotificationCompletedPayload](t, done).Acknowledged)

	blink, _ := h.bus.Last(eventbus.KindNotificationBlinked)
	assert.Equal(t, m.Notification.Color, payload[eventbus.NotificationBlinkedPayload](t, blink).Color)

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 3, h.bus.Count(eventbus.KindNotificationBlinked))
}

func TestTimer_Acknowledge(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("m", "m", "7.00")))
	require.NoError(t, h.timer.Start())
	h.clock.Advance(3*time.Second + 500*time.Millisecond)
	require.Equal(t, 1, h.bus.Count(eventbus.KindNotificationBlinked))

	require.NoError(t, h.timer.Acknowledge("m"))
	assert.Empty(t, h.timer.Runtime().Notifications)

	done, ok := h.bus.Last(eventbus.KindNotificationCompleted)
	require.True(t, ok)
	p := payload[eventbus.NotificationCompletedPayload](t, done)
	assert.True(t, p.Acknowledged)
	assert.Equal(t, timer.NotificationAcknowledged, p.Notification.Status)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 1, h.bus.Count(eventbus.KindNotificationBlinked), "no blinks after acknowledge")

	// Idempotent.
	require.NoError(t, h.timer.Acknowledge("m"))
	require.NoError(t, h.timer.Acknowledge("unknown"))
	assert.Equal(t, 1, h.bus.Count(eventbus.KindNotificationCompleted))
}

func TestTimer_AddMark(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("m", "first", "5.00")))
	h.clock.Advance(time.Minute)

	added, err := h.timer.AddMark(timer.NewMark("second", ptime.MustParse("3.00")))
	require.NoError(t, err)
	assert.Equal(t, "gen-a", added.ID)
	assert.Equal(t, t0.Add(time.Minute), added.CreatedAt)

	cfg := h.timer.Configuration()
	require.Len(t, cfg.Marks, 2)
	assert.Equal(t, t0.Add(time.Minute), cfg.UpdatedAt)
	h.bus.AssertPublished(t, eventbus.KindMarkAdded)
}

func TestTimer_AddMarkRejects(t *testing.T) {
	tests := []struct {
		name    string
		mark    timer.Mark
		wantErr error
	}{
		{"duplicate time", timer.NewMark("dup", ptime.MustParse("5.00")), timer.ErrDuplicateMarkTime},
		{"beyond target", timer.NewMark("late", ptime.MustParse("20.00")), timer.ErrOutOfBounds},
		{"blank name", timer.NewMark("", ptime.MustParse("2.00")), timer.ErrValidation},
		{"duplicate id", mark("m", "again", "2.00"), timer.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, countdown("10.00", mark("m", "first", "5.00")))

			_, err := h.timer.AddMark(tt.mark)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, h.timer.Configuration().Marks, 1, "marks unchanged")
			h.bus.AssertNotPublished(t, eventbus.KindMarkAdded)
		})
	}
}

func TestTimer_AddMarkNearlyIdenticalTimeAllowed(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("m", "first", "5.00")))

	_, err := h.timer.AddMark(timer.NewMark("close", ptime.MustParse("5.01")))
	require.NoError(t, err)
}

func TestTimer_UpdateMark(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "5.00"), mark("b", "b", "3.00")))

	name := "renamed"
	updated, err := h.timer.UpdateMark("a", timer.MarkPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	e, _ := h.bus.Last(eventbus.KindMarkUpdated)
	p := payload[eventbus.MarkUpdatedPayload](t, e)
	assert.Equal(t, "a", p.Previous.Name)
	assert.Equal(t, "renamed", p.Mark.Name)

	clash := ptime.MustParse("3.00")
	_, err = h.timer.UpdateMark("a", timer.MarkPatch{Time: &clash})
	require.ErrorIs(t, err, timer.ErrDuplicateMarkTime)

	blank := ""
	_, err = h.timer.UpdateMark("a", timer.MarkPatch{Name: &blank})
	require.ErrorIs(t, err, timer.ErrValidation)

	var fe criterio.FieldErrors
	require.ErrorAs(t, err, &fe)

	_, err = h.timer.UpdateMark("missing", timer.MarkPatch{Name: &name})
	require.ErrorIs(t, err, timer.ErrNotFound)

	m, _, _ := h.timer.Configuration().MarkByID("a")
	assert.Equal(t, "renamed", m.Name)
	assert.Equal(t, ptime.MustParse("5.00"), m.Time)
}

func TestTimer_MovingMarkRearmsIt(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "5.00")))
	require.NoError(t, h.timer.SetTime(ptime.MustParse("4.00")))
	require.True(t, h.timer.Runtime().IsTriggered("a"))

	moved := ptime.MustParse("2.00")
	_, err := h.timer.UpdateMark("a", timer.MarkPatch{Time: &moved})
	require.NoError(t, err)

	rt := h.timer.Runtime()
	assert.False(t, rt.IsTriggered("a"))
	assert.Empty(t, rt.Notifications)
}

func TestTimer_ToggleMark(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "5.00")))

	m, err := h.timer.ToggleMark("a")
	require.NoError(t, err)
	assert.False(t, m.Enabled)

	m, err = h.timer.ToggleMark("a")
	require.NoError(t, err)
	assert.True(t, m.Enabled)

	_, err = h.timer.ToggleMark("nope")
	assert.ErrorIs(t, err, timer.ErrNotFound)
	assert.Equal(t, 2, h.bus.Count(eventbus.KindMarkUpdated))
}

func TestTimer_RemoveMark(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "7.00")))
	require.NoError(t, h.timer.Start())
	h.clock.Advance(3 * time.Second)
	require.Len(t, h.timer.Runtime().Notifications, 1)

	removed, err := h.timer.RemoveMark("a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)

	rt := h.timer.Runtime()
	assert.Empty(t, rt.Notifications)
	assert.Empty(t, rt.Triggered)
	assert.Empty(t, h.timer.Configuration().Marks)

	h.bus.Reset()
	h.clock.Advance(2 * time.Second)
	h.bus.AssertNotPublished(t, eventbus.KindNotificationBlinked)

	_, err = h.timer.RemoveMark("a")
	assert.ErrorIs(t, err, timer.ErrNotFound)
}

func TestTimer_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		cmd      timer.Command
		wantCode string
	}{
		{"illegal transition", timer.Pause{}, timer.CodeInvalidState},
		{"invalid payload", timer.RemoveMark{MarkID: ""}, timer.CodeValidation},
		{"unknown mark", timer.RemoveMark{MarkID: "nope"}, timer.CodeNotFound},
		{"duplicate time", timer.AddMark{Mark: timer.NewMark("dup", ptime.MustParse("5.00"))}, timer.CodeDuplicateMarkTime},
		{"empty patch", timer.UpdateMark{MarkID: "a"}, timer.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, countdown("10.00", mark("a", "a", "5.00")))

			err := h.timer.Dispatch(tt.cmd)
			require.Error(t, err)

			e, ok := h.bus.Last(eventbus.KindError)
			require.True(t, ok, "error event published")
			assert.Equal(t, "t1", e.TimerID)

			p := payload[eventbus.ErrorPayload](t, e)
			assert.Equal(t, tt.cmd.Name(), p.Command)
			assert.Equal(t, tt.wantCode, p.Code)
			assert.Equal(t, err.Error(), p.Message)
		})
	}
}

func TestTimer_DispatchSuccess(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "5.00")))

	require.NoError(t, h.timer.Dispatch(timer.Start{}))
	require.NoError(t, h.timer.Dispatch(timer.Pause{}))
	require.NoError(t, h.timer.Dispatch(timer.Resume{}))
	require.NoError(t, h.timer.Dispatch(timer.ToggleMark{MarkID: "a"}))
	require.NoError(t, h.timer.Dispatch(timer.SetTime{Time: ptime.MustParse("6.00")}))
	require.NoError(t, h.timer.Dispatch(timer.AcknowledgeNotification{MarkID: "a"}))
	require.NoError(t, h.timer.Dispatch(timer.Stop{}))
	require.NoError(t, h.timer.Dispatch(timer.Reset{}))

	h.bus.AssertNotPublished(t, eventbus.KindError)
}

func TestTimer_Destroy(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "7.00")))
	require.NoError(t, h.timer.Start())
	h.clock.Advance(3 * time.Second)

	h.timer.Destroy()
	h.timer.Destroy()

	assert.True(t, h.timer.Destroyed())
	assert.Zero(t, h.clock.Pending())

	h.bus.Reset()
	h.clock.Advance(10 * time.Second)
	assert.Empty(t, h.bus.Events())

	err := h.timer.Start()
	require.ErrorIs(t, err, ErrDestroyed)
	assert.True(t, errors.Is(err, timer.ErrInvalidState))
}

func TestTimer_EventOrdering(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "9.99")))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(10 * time.Millisecond)

	assert.Equal(t, []eventbus.Kind{
		eventbus.KindTimerStarted,
		eventbus.KindTimerTicked,
		eventbus.KindMarkTriggered,
		eventbus.KindNotificationStarted,
	}, h.bus.Kinds())

	for _, e := range h.bus.Events() {
		assert.Equal(t, "t1", e.TimerID)
		assert.False(t, e.At.IsZero())
	}
}

func TestTimer_HandlersMayReenter(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "9.00")))

	_, err := eventbus.On(h.bus, func(_ eventbus.Event, _ eventbus.MarkTriggeredPayload) {
		_ = h.timer.Pause()
		_ = h.timer.State()
	})
	require.NoError(t, err)

	require.NoError(t, h.timer.Start())
	h.clock.Advance(2 * time.Second)

	assert.Equal(t, timer.StatePaused, h.timer.State())
	assert.Equal(t, ptime.MustParse("9.00"), h.timer.Current())

	kinds := h.bus.Kinds(eventbus.KindTimerTicked, eventbus.KindNotificationBlinked, eventbus.KindNotificationCompleted)
	assert.Equal(t, []eventbus.Kind{
		eventbus.KindTimerStarted,
		eventbus.KindMarkTriggered,
		eventbus.KindNotificationStarted,
		eventbus.KindTimerPaused,
	}, kinds)
}

func TestTimer_ReentrantCommandPublishesAfterHandler(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "9.00")))

	pausedInHandler := -1
	_, err := eventbus.On(h.bus, func(_ eventbus.Event, _ eventbus.MarkTriggeredPayload) {
		require.NoError(t, h.timer.Pause())
		pausedInHandler = h.bus.Count(eventbus.KindTimerPaused)
	})
	require.NoError(t, err)

	require.NoError(t, h.timer.Start())
	h.clock.Advance(time.Second)

	assert.Equal(t, 0, pausedInHandler, "the pause is queued behind the event being handled")
	assert.Equal(t, 1, h.bus.Count(eventbus.KindTimerPaused), "the draining goroutine publishes it afterwards")
}

func TestTimer_SnapshotIsACopy(t *testing.T) {
	h := newHarness(t, countdown("10.00", mark("a", "a", "5.00")))

	snap := h.timer.Snapshot()
	snap.Configuration.Marks[0].Name = "mutated"
	snap.Runtime.Triggered = append(snap.Runtime.Triggered, "x")

	m, _, _ := h.timer.Configuration().MarkByID("a")
	assert.Equal(t, "a", m.Name)
	assert.Empty(t, h.timer.Runtime().Triggered)
}

// Countdown from 0:10.00 with a "check" mark at 0:07.00.
func TestTimer_CheckScenario(t *testing.T) {
	h := newHarness(t, countdown("00:10.00", mark("check", "check", "00:07.00")))
	require.NoError(t, h.timer.Start())

	h.clock.Advance(3 * time.Second)
	require.Equal(t, 1, h.bus.Count(eventbus.KindMarkTriggered))

	e, _ := h.bus.Last(eventbus.KindMarkTriggered)
	p := payload[eventbus.MarkTriggeredPayload](t, e)
	assert.Equal(t, "check", p.Mark.Name)
	assert.Equal(t, "00:07.00", p.Current.String())

	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.bus.Count(eventbus.KindMarkTriggered), "subsequent ticks do not re-fire")

	h.clock.Advance(6 * time.Second)
	assert.Equal(t, 1, h.bus.Count(eventbus.KindTimerCompleted))
	assert.Equal(t, "00:00.00", h.timer.Current().String())
	assert.Equal(t, timer.StateCompleted, h.timer.State())

	assert.Equal(t, []eventbus.Kind{
		eventbus.KindTimerStarted,
		eventbus.KindMarkTriggered,
		eventbus.KindNotificationStarted,
		eventbus.KindNotificationCompleted,
		eventbus.KindTimerCompleted,
	}, h.bus.Kinds(eventbus.KindTimerTicked, eventbus.KindNotificationBlinked))
}
