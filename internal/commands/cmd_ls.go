package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	rt    *Runtime

	// flags
	jsonOutput bool
	match      string
	states     []string
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, rt *Runtime) *LsCmd {
	return &LsCmd{flags: flags, rt: rt}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Aliases:   []string{"list"},
		Usage:     "List timers",
		UsageText: "marktimer ls [--json] [--match glob] [--state state]",
		Description: `Displays a table of all timers with their state, time and mark progress.

The table reads the store and never changes a timer. Use --json for one JSON
object per line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.StringFlag{
				Name:        "match",
				Usage:       "only timers whose name or id matches the glob",
				Destination: &cmd.match,
			},
			&cli.StringSliceFlag{
				Name:        "state",
				Usage:       "only timers in this state (repeatable)",
				Destination: &cmd.states,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	p := newPrinter(c)

	states, err := parseStates(cmd.states)
	if err != nil {
		return err
	}

	snaps, err := cmd.rt.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("list timers: %w", err)
	}
	snaps, err = filterSnapshots(snaps, cmd.match, states)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		for _, s := range snaps {
			if err := iojson.WriteLine(p.out, api.ViewOf(s)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(snaps) == 0 {
		p.Infof("No timers found")
		return nil
	}

	p.writeTimerTable(snaps)
	return nil
}
