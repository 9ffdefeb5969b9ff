package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/marktimer/internal/core/config"
	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/kv"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/data/stores"
	"github.com/hay-kot/marktimer/internal/marktimer"
	"github.com/hay-kot/marktimer/pkg/clock/clocktest"
)

type testEnv struct {
	router http.Handler
	mgr    *marktimer.Manager
	clock  *clocktest.Clock
	notes  *notify.Buffer
}

func newTestEnv(t *testing.T, token string) testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Presets = map[string]config.Preset{
		"pomodoro": {
			Target: ptime.MustParse("25:00"),
			Marks:  []config.PresetMark{{Name: "halfway", At: ptime.MustParse("12:30")}},
		},
	}

	clk := clocktest.New(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	timerN, markN := 0, 0
	bus := eventbus.New()
	mgr, err := marktimer.NewManager(bus, stores.NewMemoryStore(kv.JSON),
		marktimer.WithTimerOptions(
			marktimer.WithClock(clk),
			marktimer.WithMarkIDs(func() string {
				markN++
				return fmt.Sprintf("m%d", markN)
			}),
		),
		marktimer.WithIDs(func() string {
			timerN++
			return fmt.Sprintf("timer-%d", timerN)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mgr.Close(context.Background())
		bus.Destroy()
	})

	notes := notify.NewBuffer(10)
	h := NewHandler(mgr, &cfg, BufferSource{notes})
	router := NewRouter(h, RouterOptions{Token: token, Logger: zerolog.Nop()})

	return testEnv{router: router, mgr: mgr, clock: clk, notes: notes}
}

func (e testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rdr)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e testEnv) createTimer(t *testing.T, body map[string]any) TimerView {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/timers", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[TimerView](t, w)
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t, "secret")

	w := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong", header: []string{"Authorization", "Bearer nope"}, want: http.StatusUnauthorized},
		{name: "wrong scheme", header: []string{"Authorization", "Basic secret"}, want: http.StatusUnauthorized},
		{name: "valid", header: []string{"Authorization", "Bearer secret"}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/timers", nil, tt.header...)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCreateAndGetTimer(t *testing.T) {
	env := newTestEnv(t, "")

	created := env.createTimer(t, map[string]any{
		"name":   "check",
		"target": "00:10.00",
		"marks":  []map[string]any{{"name": "check", "at": "00:07.00", "color": "#00ff00"}},
	})

	assert.Equal(t, "timer-1", created.ID)
	assert.Equal(t, timer.StateIdle, created.State)
	assert.Equal(t, timer.CountDown, created.Direction)
	assert.Equal(t, ptime.PrecisionHundredths, created.Precision)
	assert.Equal(t, "00:10.00", created.Current)
	require.Len(t, created.Marks, 1)
	assert.Equal(t, "m1", created.Marks[0].ID)
	assert.Equal(t, "00:07.00", created.Marks[0].At)
	assert.Equal(t, "#00ff00", created.Marks[0].Notification.Color)
	assert.True(t, created.Marks[0].Enabled)

	w := env.do(t, http.MethodGet, "/api/timers/timer-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodeBody[TimerView](t, w).ID)
}

func TestCreateTimer_Rejects(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		body   any
		status int
		field  string
	}{
		{name: "missing name", body: map[string]any{"target": "10"}, status: http.StatusBadRequest, field: "name"},
		{name: "bad direction", body: map[string]any{"name": "x", "direction": "sideways"}, status: http.StatusBadRequest, field: "direction"},
		{name: "bad id", body: map[string]any{"name": "x", "id": "Not Valid"}, status: http.StatusBadRequest, field: "id"},
		{name: "bad mark colour", body: map[string]any{"name": "x", "target": "10", "marks": []map[string]any{{"name": "m", "at": "5", "color": "red"}}}, status: http.StatusBadRequest, field: "marks"},
		{name: "bad blink interval", body: map[string]any{"name": "x", "target": "10", "marks": []map[string]any{{"name": "m", "at": "5", "blink_interval": "soon"}}}, status: http.StatusBadRequest, field: "marks"},
		{name: "mark beyond target", body: map[string]any{"name": "x", "target": "10", "marks": []map[string]any{{"name": "m", "at": "20"}}}, status: http.StatusUnprocessableEntity},
		{name: "unknown preset", body: map[string]any{"preset": "nope"}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/timers", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			if tt.field != "" {
				body := decodeBody[errResponse](t, w)
				assert.Equal(t, timer.CodeValidation, body.Code)
				assert.Contains(t, body.Fields, tt.field)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/timers", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateTimer_FromPreset(t *testing.T) {
	env := newTestEnv(t, "")

	created := env.createTimer(t, map[string]any{"preset": "pomodoro"})

	assert.Equal(t, "pomodoro", created.Name)
	assert.Equal(t, "25:00.00", created.Target)
	require.Len(t, created.Marks, 1)
	assert.Equal(t, "halfway", created.Marks[0].Name)
}

func TestGetTimer_NotFound(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodGet, "/api/timers/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, timer.CodeNotFound, decodeBody[errResponse](t, w).Code)
}

func TestDispatchCommand(t *testing.T) {
	env := newTestEnv(t, "")
	env.createTimer(t, map[string]any{
		"name":   "check",
		"target": "00:10.00",
		"marks":  []map[string]any{{"name": "check", "at": "00:07.00"}},
	})

	command := func(body map[string]any) *httptest.ResponseRecorder {
		return env.do(t, http.MethodPost, "/api/timers/timer-1/commands", body)
	}

	w := command(map[string]any{"type": "start"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, timer.StateRunning, decodeBody[TimerView](t, w).State)

	env.clock.Advance(3 * time.Second)

	w = command(map[string]any{"type": "pause"})
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeBody[TimerView](t, w)
	assert.Equal(t, "00:07.00", view.Current)
	assert.True(t, view.Marks[0].Triggered)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{name: "illegal transition", body: map[string]any{"type": "pause"}, status: http.StatusConflict, code: timer.CodeInvalidState},
		{name: "unknown type", body: map[string]any{"type": "explode"}, status: http.StatusBadRequest, code: timer.CodeValidation},
		{name: "set-time without time", body: map[string]any{"type": "set-time"}, status: http.StatusBadRequest, code: timer.CodeValidation},
		{name: "set-time beyond target", body: map[string]any{"type": "set-time", "time": "00:30.00"}, status: http.StatusUnprocessableEntity, code: timer.CodeOutOfBounds},
		{name: "duplicate mark time", body: map[string]any{"type": "add-mark", "mark": map[string]any{"name": "again", "at": "00:07.00"}}, status: http.StatusConflict, code: timer.CodeDuplicateMarkTime},
		{name: "toggle without mark id", body: map[string]any{"type": "toggle-mark"}, status: http.StatusBadRequest, code: timer.CodeValidation},
		{name: "update unknown mark", body: map[string]any{"type": "update-mark", "mark_id": "nope", "patch": map[string]any{"name": "x"}}, status: http.StatusNotFound, code: timer.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := command(tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeBody[errResponse](t, w).Code)
		})
	}

	t.Run("update mark merges notification", func(t *testing.T) {
		w := command(map[string]any{
			"type":    "update-mark",
			"mark_id": "m1",
			"patch":   map[string]any{"name": "renamed", "blink_count": 5},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		mk := decodeBody[TimerView](t, w).Marks[0]
		assert.Equal(t, "renamed", mk.Name)
		assert.Equal(t, 5, mk.Notification.BlinkCount)
		assert.Equal(t, timer.DefaultNotificationSettings().BlinkInterval, mk.Notification.BlinkInterval)
	})

	t.Run("add mark", func(t *testing.T) {
		w := command(map[string]any{"type": "add-mark", "mark": map[string]any{"name": "late", "at": "00:02.00"}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, decodeBody[TimerView](t, w).Marks, 2)
	})

	t.Run("unknown timer", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/timers/missing/commands", map[string]any{"type": "start"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListTimers_Filters(t *testing.T) {
	env := newTestEnv(t, "")
	env.createTimer(t, map[string]any{"name": "tea-green", "target": "03:00"})
	env.createTimer(t, map[string]any{"name": "tea-black", "target": "04:00"})
	env.createTimer(t, map[string]any{"name": "laps"})

	w := env.do(t, http.MethodPost, "/api/timers/timer-2/commands", map[string]any{"type": "start"})
	require.Equal(t, http.StatusOK, w.Code)

	type list struct {
		Timers []TimerView `json:"timers"`
		Total  int         `json:"total"`
	}

	got := decodeBody[list](t, env.do(t, http.MethodGet, "/api/timers?match=tea-*", nil))
	assert.Equal(t, 2, got.Total)

	got = decodeBody[list](t, env.do(t, http.MethodGet, "/api/timers?state=running", nil))
	require.Equal(t, 1, got.Total)
	assert.Equal(t, "tea-black", got.Timers[0].Name)

	w = env.do(t, http.MethodGet, "/api/timers?match=[", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t, "")
	env.createTimer(t, map[string]any{"name": "tea-green", "target": "03:00"})
	env.createTimer(t, map[string]any{"name": "tea-black", "target": "04:00"})
	env.createTimer(t, map[string]any{"name": "laps"})

	w := env.do(t, http.MethodPost, "/api/batch/start?match=tea-*", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody[BatchResponse](t, w)
	assert.Equal(t, []string{"timer-1", "timer-2"}, res.Succeeded)
	assert.Empty(t, res.Failed)

	// Every matched timer is already running.
	w = env.do(t, http.MethodPost, "/api/batch/start?match=tea-*", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, decodeBody[BatchResponse](t, w).Failed, 2)

	// Without a match only timers in a legal state are touched.
	w = env.do(t, http.MethodPost, "/api/batch/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"timer-1", "timer-2"}, decodeBody[BatchResponse](t, w).Succeeded)

	w = env.do(t, http.MethodPost, "/api/batch/explode", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTimer(t *testing.T) {
	env := newTestEnv(t, "")
	env.createTimer(t, map[string]any{"name": "gone"})

	w := env.do(t, http.MethodDelete, "/api/timers/timer-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/timers/timer-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsAndNotifications(t *testing.T) {
	env := newTestEnv(t, "")
	env.createTimer(t, map[string]any{"name": "one", "target": "10", "marks": []map[string]any{{"name": "m", "at": "5"}}})

	stats := decodeBody[marktimer.Stats](t, env.do(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Marks)
	assert.Equal(t, 1, stats.ByState[timer.StateIdle])

	env.notes.Push(notify.Notification{Message: "first"})
	env.notes.Push(notify.Notification{Message: "second"})

	type list struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	got := decodeBody[list](t, env.do(t, http.MethodGet, "/api/notifications?limit=1", nil))
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, "second", got.Notifications[0].Message)
}

func TestClient(t *testing.T) {
	env := newTestEnv(t, "secret")
	env.createTimer(t, map[string]any{"name": "tea", "target": "03:00"})

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx := context.Background()

	_, err := NewClient(srv.URL, "wrong").Timers(ctx, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	c := NewClient(srv.URL, "secret")

	res, err := c.Batch(ctx, "start", "tea")
	require.NoError(t, err)
	assert.Equal(t, []string{"timer-1"}, res.Succeeded)

	res, err = c.Batch(ctx, "start", "tea")
	require.NoError(t, err)
	assert.Contains(t, res.Failed, "timer-1")

	view, err := c.Command(ctx, "timer-1", CommandRequest{Type: "stop"})
	require.NoError(t, err)
	assert.Equal(t, timer.StateStopped, view.State)

	_, err = c.Command(ctx, "timer-1", CommandRequest{Type: "pause"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, timer.CodeInvalidState, apiErr.Body.Code)

	views, err := c.Timers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestMarkRequests_Sound(t *testing.T) {
	d := config.DefaultConfig().Timers

	quiet := MarkRequest{Name: "quiet", At: ptime.MustParse("1.00")}.Build(d)
	assert.False(t, quiet.Notification.Sound)

	loud := MarkRequest{Name: "loud", At: ptime.MustParse("2.00"), Sound: true}.Build(d)
	assert.True(t, loud.Notification.Sound)

	off := false
	patch := PatchRequest{Sound: &off}.Build(loud)
	require.NotNil(t, patch.Notification)
	assert.False(t, patch.Notification.Sound)
	assert.Equal(t, loud.Notification.BlinkCount, patch.Notification.BlinkCount)

	assert.Nil(t, PatchRequest{}.Build(loud).Notification)
}
