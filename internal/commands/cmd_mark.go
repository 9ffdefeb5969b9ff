package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/marktimer"
)

type MarkCmd struct {
	flags *Flags
	rt    *Runtime

	// add / edit flags
	name          string
	at            string
	description   string
	color         string
	blinkCount    int
	blinkInterval time.Duration
	sound         bool
	disabled      bool
}

func NewMarkCmd(flags *Flags, rt *Runtime) *MarkCmd {
	return &MarkCmd{flags: flags, rt: rt}
}

func (cmd *MarkCmd) notificationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "description",
			Aliases:     []string{"d"},
			Usage:       "mark description",
			Destination: &cmd.description,
		},
		&cli.StringFlag{
			Name:        "color",
			Usage:       "blink colour as #rrggbb",
			Destination: &cmd.color,
		},
		&cli.IntFlag{
			Name:        "blinks",
			Usage:       "number of blinks when the mark triggers",
			Destination: &cmd.blinkCount,
		},
		&cli.DurationFlag{
			Name:        "blink-interval",
			Usage:       "time between blinks",
			Destination: &cmd.blinkInterval,
		},
		&cli.BoolFlag{
			Name:        "sound",
			Usage:       "run the configured sound command when the mark triggers",
			Destination: &cmd.sound,
		},
	}
}

func (cmd *MarkCmd) Register(app *cli.Command) *cli.Command {
	complete := TimerCompleter(cmd.rt)

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "mark",
		Usage: "Manage the marks of a timer",
		Description: `Marks are named times on a timer. When the timer crosses a mark, the mark
triggers and blinks.

<timer> is a timer id or name, <mark> a mark id or name.`,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a mark",
				UsageText: "marktimer mark add [options] <timer> <name@time>",
				Flags: append(cmd.notificationFlags(),
					&cli.BoolFlag{
						Name:        "disabled",
						Usage:       "add the mark switched off",
						Destination: &cmd.disabled,
					},
				),
				ShellComplete: complete,
				Action:        cmd.runAdd,
			},
			{
				Name:      "edit",
				Usage:     "Change a mark",
				UsageText: "marktimer mark edit [options] <timer> <mark>",
				Flags: append(cmd.notificationFlags(),
					&cli.StringFlag{
						Name:        "name",
						Aliases:     []string{"n"},
						Usage:       "new name",
						Destination: &cmd.name,
					},
					&cli.StringFlag{
						Name:        "at",
						Usage:       "new time",
						Destination: &cmd.at,
					},
				),
				ShellComplete: complete,
				Action:        cmd.runEdit,
			},
			{
				Name:          "rm",
				Aliases:       []string{"remove"},
				Usage:         "Remove a mark",
				UsageText:     "marktimer mark rm <timer> <mark>",
				ShellComplete: complete,
				Action: cmd.markAction(func(id string) timer.Command {
					return timer.RemoveMark{MarkID: id}
				}, "Removed"),
			},
			{
				Name:          "toggle",
				Usage:         "Enable or disable a mark",
				UsageText:     "marktimer mark toggle <timer> <mark>",
				ShellComplete: complete,
				Action: cmd.markAction(func(id string) timer.Command {
					return timer.ToggleMark{MarkID: id}
				}, "Toggled"),
			},
			{
				Name:          "ack",
				Usage:         "Stop a blinking mark",
				UsageText:     "marktimer mark ack <timer> <mark>",
				ShellComplete: complete,
				Action: cmd.markAction(func(id string) timer.Command {
					return timer.AcknowledgeNotification{MarkID: id}
				}, "Acknowledged"),
			},
		},
	})
	return app
}

// findMark looks a mark up by id, then by case-insensitive name.
func findMark(cfg timer.Configuration, ref string) (timer.Mark, error) {
	if m, _, ok := cfg.MarkByID(ref); ok {
		return m, nil
	}
	for _, m := range cfg.Marks {
		if strings.EqualFold(m.Name, ref) {
			return m, nil
		}
	}
	return timer.Mark{}, fmt.Errorf("mark %q on %s: %w", ref, cfg.ID, timer.ErrNotFound)
}

func (cmd *MarkCmd) timerArg(ctx context.Context, c *cli.Command, want int) (*marktimer.Timer, []string, error) {
	args := c.Args().Slice()
	if len(args) != want {
		return nil, nil, fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}
	a, err := cmd.rt.App(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := findTimer(a.Manager, args[0])
	if err != nil {
		return nil, nil, err
	}
	return t, args[1:], nil
}

func (cmd *MarkCmd) dispatch(ctx context.Context, t *marktimer.Timer, command timer.Command) error {
	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}
	return a.Manager.Dispatch(ctx, t.ID(), command)
}

func (cmd *MarkCmd) runAdd(ctx context.Context, c *cli.Command) error {
	t, rest, err := cmd.timerArg(ctx, c, 2)
	if err != nil {
		return err
	}

	req, err := parseMarkFlag(rest[0], len(t.Configuration().Marks)+1)
	if err != nil {
		return fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}
	req.Description = cmd.description
	req.Color = cmd.color
	req.BlinkCount = cmd.blinkCount
	if cmd.blinkInterval > 0 {
		req.BlinkInterval = cmd.blinkInterval.String()
	}
	req.Sound = cmd.sound
	req.Disabled = cmd.disabled
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}

	if err := cmd.dispatch(ctx, t, timer.AddMark{Mark: req.Build(cmd.flags.Config.Timers)}); err != nil {
		return err
	}
	newPrinter(c).Successf("Added %s at %s to %s", req.Name, req.At, t.Name())
	return nil
}

func (cmd *MarkCmd) runEdit(ctx context.Context, c *cli.Command) error {
	t, rest, err := cmd.timerArg(ctx, c, 2)
	if err != nil {
		return err
	}
	m, err := findMark(t.Configuration(), rest[0])
	if err != nil {
		return err
	}

	var patch api.PatchRequest
	if c.IsSet("name") {
		patch.Name = &cmd.name
	}
	if c.IsSet("at") {
		at, err := ptime.Parse(cmd.at)
		if err != nil {
			return fmt.Errorf("%w: --at: %w", timer.ErrValidation, err)
		}
		patch.Time = &at
	}
	if c.IsSet("description") {
		patch.Description = &cmd.description
	}
	if c.IsSet("color") {
		patch.Color = &cmd.color
	}
	if c.IsSet("blinks") {
		patch.BlinkCount = &cmd.blinkCount
	}
	if c.IsSet("blink-interval") {
		iv := cmd.blinkInterval.String()
		patch.BlinkInterval = &iv
	}
	if c.IsSet("sound") {
		patch.Sound = &cmd.sound
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}

	mp := patch.Build(m)
	if mp.IsEmpty() {
		return fmt.Errorf("nothing to change: %w", timer.ErrValidation)
	}
	if err := cmd.dispatch(ctx, t, timer.UpdateMark{MarkID: m.ID, Patch: mp}); err != nil {
		return err
	}
	newPrinter(c).Successf("Updated %s on %s", m.Name, t.Name())
	return nil
}

func (cmd *MarkCmd) markAction(build func(markID string) timer.Command, verb string) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		t, rest, err := cmd.timerArg(ctx, c, 2)
		if err != nil {
			return err
		}
		m, err := findMark(t.Configuration(), rest[0])
		if err != nil {
			return err
		}
		if err := cmd.dispatch(ctx, t, build(m.ID)); err != nil {
			return err
		}
		newPrinter(c).Successf("%s %s on %s", verb, m.Name, t.Name())
		return nil
	}
}
