package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/marktimer"
	"github.com/hay-kot/marktimer/pkg/executil"
	"github.com/hay-kot/marktimer/pkg/tmpl"
)

const soundTimeout = 10 * time.Second

// soundData is the template data for the sound command.
type soundData struct {
	Timer   string
	TimerID string
	Mark    string
	Time    string
}

// soundHook runs the configured sound command for marks with sound
// enabled. Commands run in the background so the bus never waits on them.
type soundHook struct {
	exec   executil.Executor
	script string
	mgr    *marktimer.Manager
	log    zerolog.Logger

	sub *eventbus.Subscription
	wg  sync.WaitGroup
}

func newSoundHook(e executil.Executor, script string, mgr *marktimer.Manager, log zerolog.Logger) *soundHook {
	return &soundHook{exec: e, script: script, mgr: mgr, log: log}
}

func (h *soundHook) register(bus *eventbus.EventBus) error {
	sub, err := eventbus.On(bus, func(e eventbus.Event, p eventbus.MarkTriggeredPayload) {
		if !p.Mark.Notification.Sound {
			return
		}
		h.wg.Add(1)
		go h.play(e.TimerID, p.Mark.Name, p.Current)
	})
	if err != nil {
		return err
	}
	h.sub = sub
	return nil
}

func (h *soundHook) play(timerID, markName string, at ptime.Time) {
	defer h.wg.Done()

	name := timerID
	if t, err := h.mgr.Get(timerID); err == nil {
		name = t.Name()
	}

	script, err := tmpl.Render(h.script, soundData{Timer: name, TimerID: timerID, Mark: markName, Time: at.String()})
	if err != nil {
		h.log.Warn().Err(err).Str("timer_id", timerID).Msg("render sound command")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), soundTimeout)
	defer cancel()

	if err := executil.Shell(ctx, h.exec, script, name, markName); err != nil {
		h.log.Warn().Err(err).Str("timer_id", timerID).Str("mark", markName).Msg("sound command failed")
	}
}

// close stops listening and waits for running commands.
func (h *soundHook) close() {
	if h.sub != nil {
		h.sub.Unsubscribe()
	}
	h.wg.Wait()
}
