package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

type RmCmd struct {
	flags *Flags
	rt    *Runtime

	match string
}

func NewRmCmd(flags *Flags, rt *Runtime) *RmCmd {
	return &RmCmd{flags: flags, rt: rt}
}

func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Aliases:   []string{"remove"},
		Usage:     "Delete timers",
		UsageText: "marktimer rm <timer>... | marktimer rm --match <glob>",
		Description: `Stops and deletes timers along with their stored snapshots.

Each <timer> is an id or a name. --match deletes every timer whose name or
id matches the glob.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "match",
				Usage:       "delete every timer matching the glob",
				Destination: &cmd.match,
			},
		},
		ShellComplete: TimerCompleter(cmd.rt),
		Action:        cmd.run,
	})
	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	refs := c.Args().Slice()
	if len(refs) == 0 && cmd.match == "" {
		return fmt.Errorf("timer id, name or --match required")
	}

	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}

	var ids []string
	for _, ref := range refs {
		t, err := findTimer(a.Manager, ref)
		if err != nil {
			return err
		}
		ids = append(ids, t.ID())
	}
	if cmd.match != "" {
		matched, err := a.Manager.Match(cmd.match)
		if err != nil {
			return err
		}
		for _, t := range matched {
			ids = append(ids, t.ID())
		}
	}

	p := newPrinter(c)
	if len(ids) == 0 {
		p.Infof("No timers matched")
		return nil
	}

	var errs []error
	removed := map[string]bool{}
	for _, id := range ids {
		if removed[id] {
			continue
		}
		if err := a.Manager.Remove(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed[id] = true
		p.Successf("Removed %s", id)
	}
	return errors.Join(errs...)
}
