package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/pkg/iojson"
)

var lifecycleUsage = map[string]string{
	"start":  "Start idle or stopped timers",
	"pause":  "Pause running timers",
	"resume": "Resume paused timers",
	"stop":   "Stop running or paused timers",
	"reset":  "Reset timers to their initial time",
}

// BatchCmd registers the lifecycle commands. Each runs against the local
// store, or against a running server when --server is set.
type BatchCmd struct {
	flags *Flags
	rt    *Runtime

	server     string
	token      string
	jsonOutput bool
}

func NewBatchCmd(flags *Flags, rt *Runtime) *BatchCmd {
	return &BatchCmd{flags: flags, rt: rt}
}

func (cmd *BatchCmd) remoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "server",
			Usage:       "address of a running `marktimer serve`",
			Sources:     cli.EnvVars("MARKTIMER_SERVER"),
			Destination: &cmd.server,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "bearer token for --server",
			Sources:     cli.EnvVars("MARKTIMER_TOKEN"),
			Destination: &cmd.token,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "output the result as JSON",
			Destination: &cmd.jsonOutput,
		},
	}
}

func (cmd *BatchCmd) Register(app *cli.Command) *cli.Command {
	for _, action := range []string{"start", "pause", "resume", "stop", "reset"} {
		app.Commands = append(app.Commands, &cli.Command{
			Name:      action,
			Usage:     lifecycleUsage[action],
			UsageText: fmt.Sprintf("marktimer %s [options] [glob]", action),
			Description: fmt.Sprintf(`Runs %s on every timer whose name or id matches the glob. Without a
glob it runs on every timer %s applies to.

  marktimer %s 'tea*'

Timers are handled concurrently and independently; one failure does not
undo the others.`, action, action, action),
			Flags:         cmd.remoteFlags(),
			ShellComplete: TimerCompleter(cmd.rt),
			Action:        cmd.lifecycle(action),
		})
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:      "set",
		Usage:     "Set a timer's current time",
		UsageText: "marktimer set [options] <timer> <time>",
		Description: `Jumps a timer to the given time. Marks between the old and the new time
trigger when the jump moves forward in the timer's direction.`,
		Flags:         cmd.remoteFlags(),
		ShellComplete: TimerCompleter(cmd.rt),
		Action:        cmd.runSet,
	})

	return app
}

func (cmd *BatchCmd) lifecycle(action string) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		command, err := timer.ParseAction(action)
		if err != nil {
			return err
		}
		pattern := c.Args().First()

		var res api.BatchResponse
		if cmd.server != "" {
			res, err = api.NewClient(cmd.server, cmd.token).Batch(ctx, action, pattern)
			if err != nil {
				return err
			}
		} else {
			a, err := cmd.rt.App(ctx)
			if err != nil {
				return err
			}
			br, err := a.Manager.Batch(ctx, command, pattern)
			if err != nil {
				return err
			}
			res = api.BatchResponse{Command: br.Command, Succeeded: br.Succeeded, Failed: br.Errors()}
		}

		return cmd.report(c, res)
	}
}

// report prints a batch result. It fails only when nothing succeeded.
func (cmd *BatchCmd) report(c *cli.Command, res api.BatchResponse) error {
	p := newPrinter(c)

	if cmd.jsonOutput {
		if err := iojson.WriteWith(p.out, p.err, res); err != nil {
			return err
		}
	} else {
		for _, id := range res.Succeeded {
			p.Successf("%s %s", res.Command, id)
		}
		failed := make([]string, 0, len(res.Failed))
		for id := range res.Failed {
			failed = append(failed, id)
		}
		sort.Strings(failed)
		for _, id := range failed {
			p.Errorf("%s %s: %s", res.Command, id, res.Failed[id])
		}
		if len(res.Succeeded) == 0 && len(res.Failed) == 0 {
			p.Infof("No timers to %s", res.Command)
		}
	}

	if len(res.Succeeded) == 0 && len(res.Failed) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *BatchCmd) runSet(ctx context.Context, c *cli.Command) error {
	args := c.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("expected <timer> <time>, got %d arguments", len(args))
	}
	at, err := ptime.Parse(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}

	p := newPrinter(c)

	if cmd.server != "" {
		view, err := api.NewClient(cmd.server, cmd.token).Command(ctx, args[0], api.CommandRequest{
			Type: timer.SetTime{}.Name(),
			Time: &at,
		})
		if err != nil {
			return err
		}
		if cmd.jsonOutput {
			return iojson.WriteWith(p.out, p.err, view)
		}
		p.Successf("%s set to %s", view.Name, view.Current)
		return nil
	}

	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}
	t, err := findTimer(a.Manager, args[0])
	if err != nil {
		return err
	}
	if err := a.Manager.Dispatch(ctx, t.ID(), timer.SetTime{Time: at}); err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(p.out, p.err, api.ViewOf(t.Snapshot()))
	}
	p.Successf("%s set to %s", t.Name(), t.Current())
	return nil
}
