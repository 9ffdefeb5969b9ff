package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/internal/app"
	"github.com/hay-kot/marktimer/internal/core/eventbus"
	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

type RunCmd struct {
	flags *Flags
	rt    *Runtime

	quiet bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, rt *Runtime) *RunCmd {
	return &RunCmd{flags: flags, rt: rt}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run a timer in the foreground",
		UsageText: "marktimer run [options] <timer|preset>",
		Description: `Starts a timer and follows it until it completes. Marks print as they
trigger. On a terminal the current time updates in place.

A paused timer resumes and a completed one starts over. When no timer
matches but a preset does, a timer is created from the preset first.

Ctrl-C pauses the timer and exits.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "quiet",
				Aliases:     []string{"q"},
				Usage:       "only print marks and completion",
				Destination: &cmd.quiet,
			},
		},
		ShellComplete: TimerCompleter(cmd.rt),
		Action:        cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("timer or preset required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}

	t, err := findTimer(a.Manager, ref)
	if errors.Is(err, timer.ErrNotFound) {
		if _, ok := cmd.flags.Config.Presets[ref]; ok {
			params, perr := api.CreateTimerRequest{Preset: ref}.Params(cmd.flags.Config)
			if perr != nil {
				return perr
			}
			t, err = a.Manager.Create(ctx, params)
		}
	}
	if err != nil {
		return err
	}

	p := newPrinter(c)
	return follow(ctx, a, t, p, p.color && !cmd.quiet)
}

// follow starts t and prints its events until it completes, stops, is
// removed or ctx ends. Ending ctx pauses the timer. With live set, ticks
// redraw the current time in place.
func follow(ctx context.Context, a *app.App, t *marktimer.Timer, p *printer, live bool) error {
	events := make(chan eventbus.Event, 64)
	done := make(chan struct{})
	release := sync.OnceFunc(func() { close(done) })
	defer release()

	sub, err := a.Bus.SubscribeAll(func(e eventbus.Event) {
		if e.Kind() == eventbus.KindTimerTicked {
			select {
			case events <- e:
			default:
			}
			return
		}
		select {
		case events <- e:
		case <-done:
		}
	}, eventbus.ForTimer(t.ID()))
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	if err := a.Manager.Begin(ctx, t.ID()); err != nil {
		return err
	}

	line := func(format string, args ...any) {
		if live {
			_, _ = fmt.Fprint(p.out, "\r\033[K")
		}
		p.Printf(format, args...)
	}

	p.Printf("%s %s %s", styles.StateIcon(timer.StateRunning), p.style(styles.NameStyle, t.Name()), p.style(styles.MutedStyle, t.Current().String()))

	for {
		select {
		case <-ctx.Done():
			release()
			if err := a.Manager.Dispatch(context.Background(), t.ID(), timer.Pause{}); err != nil && !errors.Is(err, timer.ErrInvalidState) {
				return err
			}
			line("%s paused at %s", styles.IconPaused, t.Current())
			return nil

		case e := <-events:
			switch pl := e.Payload.(type) {
			case eventbus.TimerTickedPayload:
				if live {
					_, _ = fmt.Fprintf(p.out, "\r%s %s", styles.DirectionIcon(t.Configuration().Direction), p.style(styles.TimeLargeStyle, pl.Current.String()))
				}
			case eventbus.MarkTriggeredPayload:
				line("%s %s at %s", p.style(styles.BlinkStyle(pl.Mark.Notification.Color), styles.IconMark), pl.Mark.Name, pl.Current)
				if pl.Mark.Notification.Sound {
					_, _ = fmt.Fprint(p.out, "\a")
				}
			case eventbus.TimerCompletedPayload:
				line("%s %s completed after %s", styles.IconCompleted, t.Name(), pl.Elapsed)
				return nil
			case eventbus.TimerStoppedPayload:
				line("%s stopped at %s", styles.IconStopped, pl.Current)
				return nil
			case eventbus.TimerRemovedPayload:
				line("%s removed", pl.Name)
				return nil
			case eventbus.ErrorPayload:
				line("%s %s: %s", p.style(styles.ErrorStyle, "✘"), pl.Command, pl.Message)
			}
		}
	}
}
