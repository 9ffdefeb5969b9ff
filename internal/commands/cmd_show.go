package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/pkg/iojson"
)

type ShowCmd struct {
	flags *Flags
	rt    *Runtime

	jsonOutput bool
}

func NewShowCmd(flags *Flags, rt *Runtime) *ShowCmd {
	return &ShowCmd{flags: flags, rt: rt}
}

func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show one timer with its marks",
		UsageText: "marktimer show [--json] <timer>",
		Description: `Prints a timer's settings, its marks and any blinking notifications.
The description is rendered as markdown on a terminal.

<timer> is an id or a name.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: TimerCompleter(cmd.rt),
		Action:        cmd.run,
	})
	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("timer id or name required")
	}

	snaps, err := cmd.rt.Snapshots(ctx)
	if err != nil {
		return err
	}
	s, err := findSnapshot(snaps, ref)
	if err != nil {
		return err
	}

	p := newPrinter(c)
	if cmd.jsonOutput {
		return iojson.WriteWith(p.out, p.err, api.ViewOf(s))
	}
	p.writeTimerDetail(s)
	return nil
}
