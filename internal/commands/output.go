package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

// printer writes status lines, styled when the output is a terminal.
type printer struct {
	out   io.Writer
	err   io.Writer
	color bool
}

func newPrinter(c *cli.Command) *printer {
	out := c.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	errOut := c.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	return &printer{out: out, err: errOut, color: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.style(styles.SuccessStyle, "✔ ")+fmt.Sprintf(format, args...))
}

func (p *printer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, p.style(styles.MutedStyle, "• "+fmt.Sprintf(format, args...)))
}

func (p *printer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.err, p.style(styles.ErrorStyle, "✘ ")+fmt.Sprintf(format, args...))
}

func markProgress(s timer.Snapshot) string {
	return fmt.Sprintf("%d/%d", len(s.Runtime.Triggered), len(s.Configuration.Marks))
}

// timerRows renders snapshots as table rows.
func timerRows(snaps []timer.Snapshot, badge func(timer.State) string) [][]string {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		cfg, rt := s.Configuration, s.Runtime
		target := "-"
		if !cfg.Target.IsZero() {
			target = cfg.Target.String()
		}
		rows = append(rows, []string{
			cfg.ID,
			cfg.Name,
			badge(rt.State),
			styles.DirectionIcon(cfg.Direction) + " " + string(cfg.Direction),
			rt.Current.String(),
			target,
			markProgress(s),
		})
	}
	return rows
}

var timerHeaders = []string{"ID", "NAME", "STATE", "DIRECTION", "CURRENT", "TARGET", "MARKS"}

// writeTimerTable prints a lipgloss table on terminals and a plain
// tab-aligned table otherwise.
func (p *printer) writeTimerTable(snaps []timer.Snapshot) {
	if !p.color {
		w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, strings.Join(timerHeaders, "\t"))
		for _, row := range timerRows(snaps, func(s timer.State) string { return string(s) }) {
			_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		_ = w.Flush()
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.DividerStyle).
		Headers(timerHeaders...).
		Rows(timerRows(snaps, styles.StateBadge)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	_, _ = fmt.Fprintln(p.out, t.Render())
}

// writeTimerDetail prints a single timer with its marks and notifications.
func (p *printer) writeTimerDetail(s timer.Snapshot) {
	cfg, rt := s.Configuration, s.Runtime

	badge := string(rt.State)
	if p.color {
		badge = styles.StateBadge(rt.State)
	}
	p.Printf("%s  %s", p.style(styles.HeaderStyle, cfg.Name), badge)
	p.Printf("%s", p.style(styles.MutedStyle, cfg.ID))
	p.Printf("")

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	field := func(k, v string) { _, _ = fmt.Fprintf(w, "%s\t%s\n", p.style(styles.MutedStyle, k), v) }
	field("current", p.style(styles.TimeStyle, rt.Current.String()))
	if !cfg.Target.IsZero() {
		field("target", cfg.Target.String())
	}
	field("direction", styles.DirectionIcon(cfg.Direction)+" "+string(cfg.Direction))
	field("precision", string(cfg.Precision))
	field("auto reset", fmt.Sprint(cfg.AutoReset))
	field("created", cfg.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if !rt.StartedAt.IsZero() {
		field("started", rt.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()

	if len(cfg.Marks) > 0 {
		p.Printf("")
		p.Printf("%s", p.style(styles.HeaderStyle, "Marks"))
		mw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		for _, m := range cfg.Marks {
			icon, st := styles.IconMark, styles.MarkStyle
			switch {
			case !m.Enabled:
				icon, st = styles.IconMarkOff, styles.MarkOffStyle
			case rt.IsTriggered(m.ID):
				icon, st = styles.IconMarkHit, styles.MarkHitStyle
			}
			_, _ = fmt.Fprintf(mw, "  %s\t%s\t%s\t%s\n",
				p.style(st, icon), m.Time, p.style(st, m.Name), p.style(styles.MutedStyle, m.ID))
		}
		_ = mw.Flush()
	}

	for _, n := range rt.Notifications {
		p.Printf("%s mark %s blinking (%d/%d)", styles.IconBell, n.MarkID, n.Blinks, n.MaxBlinks)
	}

	if cfg.Description != "" {
		p.Printf("")
		p.Printf("%s", p.renderMarkdown(cfg.Description))
	}
}

// renderMarkdown renders md with glamour on terminals. Plain output and
// renderer failures print the source unchanged.
func (p *printer) renderMarkdown(md string) string {
	if !p.color {
		return md
	}

	width := 80
	if f, ok := p.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = min(w, 100)
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
