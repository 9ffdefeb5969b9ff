package eventbus_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

func started(id string) eventbus.Event {
	return eventbus.Event{TimerID: id, Payload: eventbus.TimerStartedPayload{From: timer.StateIdle}}
}

func mustSubscribe(t *testing.T, s eventbus.Subscriber, kind eventbus.Kind, h eventbus.Handler, opts ...eventbus.SubscribeOption) *eventbus.Subscription {
	t.Helper()
	sub, err := s.Subscribe(kind, h, opts...)
	require.NoError(t, err)
	return sub
}

func TestPublish_RegistrationOrder(t *testing.T) {
	bus := eventbus.New()
	var order []int

	for i := range 5 {
		mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) { order = append(order, i) })
	}
	mustSubscribe(t, bus, eventbus.KindTimerPaused, func(eventbus.Event) { order = append(order, 99) })

	bus.Publish(started("a"))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPublish_StampsTime(t *testing.T) {
	bus := eventbus.New()
	var got eventbus.Event
	_, err := bus.SubscribeAll(func(e eventbus.Event) { got = e })
	require.NoError(t, err)

	bus.Publish(started("a"))
	assert.False(t, got.At.IsZero())

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bus.Publish(eventbus.Event{TimerID: "a", At: at, Payload: eventbus.TimerPausedPayload{}})
	assert.Equal(t, at, got.At)
}

func TestPublish_TimerFilter(t *testing.T) {
	bus := eventbus.New()
	var got []string

	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(e eventbus.Event) { got = append(got, "a:"+e.TimerID) }, eventbus.ForTimer("a"))
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(e eventbus.Event) { got = append(got, "any:"+e.TimerID) })

	bus.Publish(started("b"))
	bus.Publish(started("a"))

	assert.Equal(t, []string{"any:b", "a:a", "any:a"}, got)
}

func TestUnsubscribe_MidBatch(t *testing.T) {
	bus := eventbus.New()
	var calls []string

	var second *eventbus.Subscription
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) {
		calls = append(calls, "first")
		second.Unsubscribe()
	})
	second = mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) {
		calls = append(calls, "second")
	})
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) {
		calls = append(calls, "third")
	})

	bus.Publish(started("a"))
	bus.Publish(started("a"))

	assert.Equal(t, []string{"first", "third", "first", "third"}, calls)
	assert.False(t, second.Active())
	assert.Equal(t, 2, bus.Len())
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	bus := eventbus.New()
	count := 0

	sub := mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) { count++ })
	sub.Unsubscribe()
	sub.Unsubscribe()

	bus.Publish(started("a"))
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, bus.Len())
}

func TestPublish_PanicIsolation(t *testing.T) {
	bus := eventbus.New()
	var panics []any
	bus.OnPanic(func(_ eventbus.Event, r any) { panics = append(panics, r) })

	reached := false
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) { panic("bad handler") })
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) { reached = true })

	assert.NotPanics(t, func() { bus.Publish(started("a")) })
	assert.True(t, reached)
	assert.Equal(t, []any{"bad handler"}, panics)
}

func TestPublish_PanicWithoutHookIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	bus := eventbus.New()
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) { panic("bad handler") })

	assert.NotPanics(t, func() { bus.Publish(started("a")) })
	assert.Contains(t, buf.String(), "subscriber panicked")
	assert.Contains(t, buf.String(), `"panic":"bad handler"`)
	assert.Contains(t, buf.String(), `"event":"timer.started"`)
}

func TestDestroy(t *testing.T) {
	bus := eventbus.New()
	var dropped []eventbus.Kind
	bus.OnDrop(func(e eventbus.Event) { dropped = append(dropped, e.Kind()) })

	count := 0
	sub := mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) { count++ })

	bus.Destroy()
	bus.Destroy()

	assert.True(t, bus.Destroyed())
	assert.False(t, sub.Active())

	bus.Publish(started("a"))
	assert.Equal(t, 0, count)
	assert.Equal(t, []eventbus.Kind{eventbus.KindTimerStarted}, dropped)

	_, err := bus.Subscribe(eventbus.KindTimerStarted, func(eventbus.Event) {})
	require.ErrorIs(t, err, eventbus.ErrDestroyed)
	assert.ErrorIs(t, err, timer.ErrInvalidState)
	assert.Equal(t, timer.CodeInvalidState, timer.Code(err))
}

func TestDestroy_DuringDelivery(t *testing.T) {
	bus := eventbus.New()
	var calls []string

	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) {
		calls = append(calls, "first")
		bus.Destroy()
	})
	mustSubscribe(t, bus, eventbus.KindTimerStarted, func(eventbus.Event) {
		calls = append(calls, "second")
	})

	bus.Publish(started("a"))
	assert.Equal(t, []string{"first"}, calls)
}

func TestScope(t *testing.T) {
	bus := eventbus.New()
	scope := bus.Scoped("t1")
	assert.Equal(t, "t1", scope.TimerID())

	var scoped, global []string
	_, err := scope.SubscribeAll(func(e eventbus.Event) { scoped = append(scoped, string(e.Kind())) })
	require.NoError(t, err)
	_, err = bus.SubscribeAll(func(e eventbus.Event) { global = append(global, e.TimerID) })
	require.NoError(t, err)

	scope.Publish(eventbus.TimerPausedPayload{})
	bus.Publish(started("t2"))

	assert.Equal(t, []string{"timer.paused"}, scoped)
	assert.Equal(t, []string{"t1", "t2"}, global)
}

func TestOn_Typed(t *testing.T) {
	bus := eventbus.New()
	var got eventbus.MarkTriggeredPayload

	_, err := eventbus.On(bus, func(_ eventbus.Event, p eventbus.MarkTriggeredPayload) { got = p })
	require.NoError(t, err)

	bus.Publish(eventbus.Event{TimerID: "t1", Payload: eventbus.MarkTriggeredPayload{
		Mark:    timer.Mark{Name: "check"},
		Current: ptime.MustParse("7"),
	}})

	assert.Equal(t, "check", got.Mark.Name)
	assert.Equal(t, int64(700), got.Current.Total())
}

func TestPayloads_Complete(t *testing.T) {
	assert.Len(t, eventbus.Payloads, 18)
	for kind, p := range eventbus.Payloads {
		assert.Equal(t, kind, p.Kind())
	}
}

func TestEvent_MarshalJSON(t *testing.T) {
	e := eventbus.Event{
		TimerID: "t1",
		At:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload: eventbus.TimerTickedPayload{Current: ptime.FromTotal(250), Delta: ptime.FromTotal(1)},
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "timer.ticked",
		"timer_id": "t1",
		"at": "2025-01-01T00:00:00Z",
		"payload": {"current": 250, "delta": 1}
	}`, string(data))
}

func TestNotificationRouter(t *testing.T) {
	bus := eventbus.New()
	buf := notify.NewBuffer(10)

	router := eventbus.NewNotificationRouter(bus, func(n notify.Notification) { buf.Push(n) })
	require.NoError(t, router.Register())

	bus.Publish(eventbus.Event{TimerID: "t1", Payload: eventbus.MarkTriggeredPayload{
		Mark:    timer.Mark{Name: "check"},
		Current: ptime.MustParse("7"),
	}})
	bus.Publish(eventbus.Event{TimerID: "t1", Payload: eventbus.ErrorPayload{Command: "start", Message: "nope"}})
	bus.Publish(eventbus.Event{TimerID: "t1", Payload: eventbus.TimerTickedPayload{}})

	items := buf.List()
	require.Len(t, items, 2)
	assert.Equal(t, notify.LevelInfo, items[0].Level)
	assert.Contains(t, items[0].Message, `mark "check"`)
	assert.Equal(t, "t1", items[0].TimerID)
	assert.Equal(t, notify.LevelError, items[1].Level)

	router.Close()
	bus.Publish(eventbus.Event{TimerID: "t1", Payload: eventbus.ErrorPayload{Command: "stop"}})
	assert.Equal(t, 2, buf.Len())
}
