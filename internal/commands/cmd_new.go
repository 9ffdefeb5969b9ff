package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/internal/core/ptime"
	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/core/timer"
	"github.com/hay-kot/marktimer/internal/core/validate"
	"github.com/hay-kot/marktimer/pkg/iojson"
)

type NewCmd struct {
	flags *Flags
	rt    *Runtime
	fr    *iojson.FileReader[api.CreateTimerRequest]

	// Command-specific flags
	name        string
	description string
	target      string
	direction   string
	precision   string
	preset      string
	marks       []string
	autoStart   bool
	autoReset   bool
	form        bool
	jsonOutput  bool
}

// NewNewCmd creates a new new command
func NewNewCmd(flags *Flags, rt *Runtime) *NewCmd {
	return &NewCmd{
		flags: flags,
		rt:    rt,
		fr:    &iojson.FileReader[api.CreateTimerRequest]{},
	}
}

// Register adds the new command to the application
func (cmd *NewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "new",
		Usage:     "Create a timer",
		UsageText: "marktimer new [options] [preset]",
		Description: `Creates a timer and persists it.

A timer with a target counts down by default. Without a target it counts up.
Marks are given as name@time and may be repeated:

  marktimer new -n tea -t 4:00 --mark steep@3:00 --mark strong@1:00

Times use MM:SS.hh, so 1:30.50 is one minute, thirty and a half seconds.

Use --preset to start from a preset in the config file, -f to read a JSON
timer definition, or --form for an interactive form. The form also opens
when no name or preset is given and stdin is a terminal.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "timer name",
				Destination: &cmd.name,
			},
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "markdown description shown by `show`",
				Destination: &cmd.description,
			},
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "target time, e.g. 25:00",
				Destination: &cmd.target,
			},
			&cli.StringFlag{
				Name:        "direction",
				Usage:       "countdown or countup",
				Destination: &cmd.direction,
			},
			&cli.StringFlag{
				Name:        "precision",
				Usage:       "seconds, hundredths or milliseconds",
				Destination: &cmd.precision,
			},
			&cli.StringFlag{
				Name:        "preset",
				Aliases:     []string{"p"},
				Usage:       "start from a configured preset",
				Destination: &cmd.preset,
			},
			&cli.StringSliceFlag{
				Name:        "mark",
				Aliases:     []string{"m"},
				Usage:       "add a mark as name@time (repeatable)",
				Destination: &cmd.marks,
			},
			&cli.BoolFlag{
				Name:        "auto-start",
				Usage:       "start the timer after creating it",
				Destination: &cmd.autoStart,
			},
			&cli.BoolFlag{
				Name:        "auto-reset",
				Usage:       "reset the timer shortly after it completes",
				Destination: &cmd.autoReset,
			},
			&cli.BoolFlag{
				Name:        "form",
				Usage:       "fill in the timer interactively",
				Destination: &cmd.form,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the created timer as JSON",
				Destination: &cmd.jsonOutput,
			},
			cmd.fr.Flag(),
		},
		ShellComplete: presetCompleter(cmd.flags),
		Action:        cmd.run,
	})

	return app
}

func (cmd *NewCmd) run(ctx context.Context, c *cli.Command) error {
	p := newPrinter(c)

	if preset := c.Args().First(); preset != "" && cmd.preset == "" {
		cmd.preset = preset
	}

	var (
		req api.CreateTimerRequest
		err error
	)

	switch {
	case c.IsSet("file"):
		req, err = cmd.fr.Read()
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	default:
		if cmd.form || (cmd.name == "" && cmd.preset == "" && term.IsTerminal(int(os.Stdin.Fd()))) {
			if err := cmd.runForm(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return fmt.Errorf("form: %w", err)
			}
		}
		req, err = cmd.request()
		if err != nil {
			return err
		}
	}

	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", timer.ErrValidation, err)
	}
	params, err := req.Params(cmd.flags.Config)
	if err != nil {
		return err
	}

	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}
	t, err := a.Manager.Create(ctx, params)
	if err != nil {
		return fmt.Errorf("create timer: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteLine(p.out, api.ViewOf(t.Snapshot()))
	}
	p.Successf("Created %s (%s)", t.Name(), t.ID())
	return nil
}

// request builds a create request from the command flags.
func (cmd *NewCmd) request() (api.CreateTimerRequest, error) {
	req := api.CreateTimerRequest{
		Name:        strings.TrimSpace(cmd.name),
		Description: cmd.description,
		Preset:      cmd.preset,
		Direction:   timer.Direction(cmd.direction),
		Precision:   ptime.Precision(cmd.precision),
		AutoStart:   cmd.autoStart,
		AutoReset:   cmd.autoReset,
	}

	if cmd.target != "" {
		target, err := ptime.Parse(cmd.target)
		if err != nil {
			return req, fmt.Errorf("%w: target: %w", timer.ErrValidation, err)
		}
		req.Target = target
	}

	for i, raw := range cmd.marks {
		m, err := parseMarkFlag(raw, i+1)
		if err != nil {
			return req, fmt.Errorf("%w: --mark %q: %w", timer.ErrValidation, raw, err)
		}
		req.Marks = append(req.Marks, m)
	}
	return req, nil
}

// parseMarkFlag reads "name@time" or a bare time. A bare time is named
// after its position.
func parseMarkFlag(s string, n int) (api.MarkRequest, error) {
	name, at, found := strings.Cut(s, "@")
	if !found {
		name, at = fmt.Sprintf("Mark %d", n), s
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return api.MarkRequest{}, fmt.Errorf("name is empty")
	}

	t, err := ptime.Parse(strings.TrimSpace(at))
	if err != nil {
		return api.MarkRequest{}, err
	}
	return api.MarkRequest{Name: name, At: t}, nil
}

func (cmd *NewCmd) runForm() error {
	if cmd.direction == "" {
		cmd.direction = string(timer.CountDown)
	}
	marks := strings.Join(cmd.marks, "\n")

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Validate(validate.Name).
				Value(&cmd.name),
			huh.NewInput().
				Title("Target").
				Description("MM:SS.hh, leave empty for an open count-up").
				Validate(validateOptionalTime).
				Value(&cmd.target),
			huh.NewSelect[string]().
				Title("Direction").
				Options(
					huh.NewOption("Count down", string(timer.CountDown)),
					huh.NewOption("Count up", string(timer.CountUp)),
				).
				Value(&cmd.direction),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Marks").
				Description("One per line as name@time").
				Validate(validateMarkLines).
				Value(&marks),
			huh.NewText().
				Title("Description").
				Description("Markdown").
				Value(&cmd.description),
			huh.NewConfirm().
				Title("Start now?").
				Value(&cmd.autoStart),
		),
	).WithTheme(styles.FormTheme()).Run()
	if err != nil {
		return err
	}

	cmd.marks = markLines(marks)
	if strings.TrimSpace(cmd.target) == "" {
		cmd.direction = string(timer.CountUp)
	}
	return nil
}

func validateOptionalTime(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := ptime.Parse(strings.TrimSpace(s))
	return err
}

func markLines(s string) []string {
	var out []string
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func validateMarkLines(s string) error {
	for i, line := range markLines(s) {
		if _, err := parseMarkFlag(line, i+1); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}
