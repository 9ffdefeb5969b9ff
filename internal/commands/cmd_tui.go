package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/core/logging"
	"github.com/hay-kot/marktimer/internal/profiler"
	"github.com/hay-kot/marktimer/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	rt    *Runtime

	bell bool
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, rt *Runtime) *TuiCmd {
	return &TuiCmd{flags: flags, rt: rt}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "profiler-addr",
			Usage:       "enable pprof HTTP endpoint on this address (e.g. 127.0.0.1:6060)",
			Sources:     cli.EnvVars("MARKTIMER_PROFILER_ADDR"),
			Destination: &cmd.flags.ProfilerAddr,
		},
	}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tui",
		Usage:     "Open the live timer dashboard",
		UsageText: "marktimer tui [--bell]",
		Description: `Shows every timer with its current time, state and marks. Timers tick
while the dashboard is open and triggered marks flash in their colour.

This is also the default command when marktimer runs without arguments.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "bell",
				Usage:       "ring the terminal bell for marks with sound",
				Value:       true,
				Destination: &cmd.bell,
			},
		},
		Action: cmd.run,
	})
	return app
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	cmd.bell = true
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	if cmd.flags.ProfilerAddr != "" {
		prof := profiler.New(cmd.flags.ProfilerAddr, logging.Component("profiler"))
		if err := prof.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := prof.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", prof.Addr())).
			Msg("profiler endpoint available")
	}

	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}

	m, err := tui.New(tui.Options{
		Manager: a.Manager,
		Logger:  logging.Component("tui"),
		Bell:    cmd.bell,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
