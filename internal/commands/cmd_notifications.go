package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/app"
	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/data/stores"
	"github.com/hay-kot/marktimer/pkg/iojson"
)

type NotificationsCmd struct {
	flags *Flags

	limit      int
	clear      bool
	jsonOutput bool
}

func NewNotificationsCmd(flags *Flags) *NotificationsCmd {
	return &NotificationsCmd{flags: flags}
}

func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "notifications",
		Aliases:   []string{"log"},
		Usage:     "Show the notification history",
		UsageText: "marktimer notifications [--limit n] [--json] [--clear]",
		Description: `Lists triggered marks, completed timers and failed commands, newest first.

History is kept by the sqlite storage driver only.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "number of entries to show",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "clear",
				Usage:       "delete the history",
				Destination: &cmd.clear,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *NotificationsCmd) run(ctx context.Context, c *cli.Command) error {
	p := newPrinter(c)

	backend, err := stores.Open(ctx, app.StorageOptions(cmd.flags.Config))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	if backend.DB == nil {
		p.Infof("The %s storage driver keeps no notification history", cmd.flags.Config.Storage.Driver)
		return nil
	}
	store := stores.NewNotifyStore(backend.DB)

	if cmd.clear {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		p.Successf("Notification history cleared")
		return nil
	}

	items, err := store.List(ctx, cmd.limit)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		for _, n := range items {
			if err := iojson.WriteLine(p.out, n); err != nil {
				return err
			}
		}
		return nil
	}

	if len(items) == 0 {
		p.Infof("No notifications")
		return nil
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	for _, n := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			p.style(styles.MutedStyle, n.CreatedAt.Local().Format("Jan 02 15:04:05")),
			levelLabel(p, n.Level),
			n.TimerID,
			n.Message,
		)
	}
	return w.Flush()
}

func levelLabel(p *printer, l notify.Level) string {
	switch l {
	case notify.LevelError:
		return p.style(styles.ErrorStyle, string(l))
	case notify.LevelWarning:
		return p.style(styles.WarningStyle, string(l))
	default:
		return p.style(styles.MutedStyle, string(l))
	}
}
