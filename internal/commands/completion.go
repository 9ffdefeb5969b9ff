package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

// completingFlag reports whether the last typed argument is a flag, in
// which case the default flag completion applies.
func completingFlag(ctx context.Context, cmd *cli.Command) bool {
	if args := cmd.Args(); args.Present() {
		last := args.Slice()[args.Len()-1]
		if len(last) > 0 && last[0] == '-' {
			cli.DefaultCompleteWithFlags(ctx, cmd)
			return true
		}
	}
	return false
}

// TimerCompleter returns a ShellCompleteFunc that suggests persisted timer
// ids as positional completions.
func TimerCompleter(rt *Runtime) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if completingFlag(ctx, cmd) {
			return
		}

		snaps, err := rt.Snapshots(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, s := range snaps {
			_, _ = fmt.Fprintf(w, "%s:%s\n", s.ID(), s.Configuration.Name)
		}
	}
}

func presetCompleter(flags *Flags) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if completingFlag(ctx, cmd) || flags.Config == nil {
			return
		}

		keys := make([]string, 0, len(flags.Config.Presets))
		for k := range flags.Config.Presets {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		w := cmd.Root().Writer
		for _, k := range keys {
			_, _ = fmt.Fprintln(w, k)
		}
	}
}
