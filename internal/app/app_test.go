package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/marktimer/internal/app"
	"github.com/hay-kot/marktimer/internal/core/config"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/data/stores"
	"github.com/hay-kot/marktimer/internal/marktimer"
	"github.com/hay-kot/marktimer/pkg/clock/clocktest"
	"github.com/hay-kot/marktimer/pkg/executil"
)

func newApp(t *testing.T, cfg *config.Config, exec executil.Executor) (*app.App, *clocktest.Clock) {
	t.Helper()

	clk := clocktest.New(time.Date(2026, 2, 3, 7, 0, 0, 0, time.UTC))
	backend, err := stores.Open(context.Background(), stores.Options{Driver: stores.DriverMemory, Codec: "json"})
	require.NoError(t, err)

	a, err := app.New(cfg, backend, app.Options{
		Logger:   zerolog.Nop(),
		Timer:    []marktimer.Option{marktimer.WithClock(clk)},
		Executor: exec,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, clk
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestApp_NotificationsReachRecent(t *testing.T) {
	a, clk := newApp(t, testConfig(t), nil)
	ctx := context.Background()

	tm, err := a.Manager.Create(ctx, marktimer.CreateParams{
		Name:      "tea",
		Target:    ptime.MustParse("2.00"),
		Marks:     []timer.Mark{a.Config.Timers.NewMark("steep", ptime.MustParse("1.00"))},
		AutoStart: true,
	})
	require.NoError(t, err)

	clk.AdvanceSteps(30, 100*time.Millisecond)
	require.Equal(t, timer.StateCompleted, tm.State())

	require.Error(t, a.Manager.Dispatch(ctx, tm.ID(), timer.Pause{}))

	recent := a.Recent.List()
	require.Len(t, recent, 3)

	assert.Equal(t, notify.LevelInfo, recent[0].Level)
	assert.Equal(t, tm.ID(), recent[0].TimerID)
	assert.Contains(t, recent[0].Message, `mark "steep" reached`)

	assert.Contains(t, recent[1].Message, "completed after 00:02.00")

	assert.Equal(t, notify.LevelError, recent[2].Level)
	assert.Contains(t, recent[2].Message, "pause failed")
}

func TestApp_MemoryBackendKeepsRecentOnly(t *testing.T) {
	a, _ := newApp(t, testConfig(t), nil)
	assert.Nil(t, a.Notifications, "memory backend has no notification table")
	assert.NotNil(t, a.Recent)
}

func TestApp_SoundHook(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timers.SoundCommand = `say {{ .Mark | shq }} on {{ .Timer | shq }}`
	rec := &executil.RecordingExecutor{}
	a, clk := newApp(t, cfg, rec)

	loud := a.Config.Timers.NewMark("loud", ptime.MustParse("1.00"))
	loud.Notification.Sound = true
	quiet := a.Config.Timers.NewMark("quiet", ptime.MustParse("2.00"))

	_, err := a.Manager.Create(context.Background(), marktimer.CreateParams{
		Name:      "intervals",
		Marks:     []timer.Mark{loud, quiet},
		AutoStart: true,
	})
	require.NoError(t, err)

	clk.AdvanceSteps(25, 100*time.Millisecond)

	require.Eventually(t, func() bool { return len(rec.Commands()) > 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Close(context.Background()), "close waits for running commands")

	cmds := rec.Commands()
	require.Len(t, cmds, 1, "marks without sound run nothing")
	assert.Equal(t, "sh", cmds[0].Cmd)
	assert.Equal(t, []string{"-c", "say 'loud' on 'intervals'", "marktimer", "intervals", "loud"}, cmds[0].Args)
}

func TestApp_OpenRestoresTimers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "file"
	ctx := context.Background()

	first, err := app.Open(ctx, cfg, app.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	tm, err := first.Manager.Create(ctx, marktimer.CreateParams{Name: "egg", Target: ptime.MustParse("6:00")})
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	second, err := app.Open(ctx, cfg, app.Options{Logger: zerolog.Nop(), Restore: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close(ctx) })

	restored, err := second.Manager.Get(tm.ID())
	require.NoError(t, err)
	assert.Equal(t, "egg", restored.Name())
}

func TestApp_ReopenKeepsTriggeredMarksQuiet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "file"
	cfg.Timers.SoundCommand = `say {{ .Mark | shq }}`
	ctx := context.Background()
	clk := clocktest.New(time.Date(2026, 2, 3, 7, 0, 0, 0, time.UTC))
	timerOpts := []marktimer.Option{marktimer.WithClock(clk)}

	firstExec := &executil.RecordingExecutor{}
	first, err := app.Open(ctx, cfg, app.Options{Logger: zerolog.Nop(), Timer: timerOpts, Executor: firstExec})
	require.NoError(t, err)

	loud := first.Config.Timers.NewMark("loud", ptime.MustParse("1.00"))
	loud.Notification.Sound = true
	tm, err := first.Manager.Create(ctx, marktimer.CreateParams{
		Name:      "egg",
		Marks:     []timer.Mark{loud},
		AutoStart: true,
	})
	require.NoError(t, err)

	clk.AdvanceSteps(15, 100*time.Millisecond)
	require.NoError(t, first.Close(ctx))
	require.Len(t, firstExec.Commands(), 1)

	secondExec := &executil.RecordingExecutor{}
	second, err := app.Open(ctx, cfg, app.Options{Logger: zerolog.Nop(), Timer: timerOpts, Executor: secondExec, Restore: true})
	require.NoError(t, err)

	restored, err := second.Manager.Get(tm.ID())
	require.NoError(t, err)
	assert.Equal(t, timer.StateStopped, restored.State())
	assert.True(t, restored.Runtime().IsTriggered(restored.Configuration().Marks[0].ID))

	require.NoError(t, second.Close(ctx))
	assert.Empty(t, secondExec.Commands(), "restoring a crossed mark plays nothing")
	for _, n := range second.Recent.List() {
		assert.NotContains(t, n.Message, "reached")
	}
}
