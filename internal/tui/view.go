package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/marktimer/internal/core/styles"
	"github.com/hay-kot/marktimer/internal/core/timer"
)

const maxPanelWidth = 64

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	if len(m.timers) == 0 {
		b.WriteString(styles.MutedStyle.Render("No timers. Create one with: marktimer new --name tea --target 4:00"))
		b.WriteString("\n")
	}

	width := m.panelWidth()
	for _, s := range m.timers {
		b.WriteString(m.renderTimer(s, width))
		b.WriteString("\n")
	}

	if toasts := m.toasts.View(m.width); toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(styles.ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) header() string {
	stats := m.mgr.Stats()
	parts := []string{fmt.Sprintf("%d timers", stats.Total)}
	for _, state := range []timer.State{timer.StateRunning, timer.StatePaused, timer.StateCompleted} {
		if n := stats.ByState[state]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, state))
		}
	}
	if stats.ActiveNotifications > 0 {
		parts = append(parts, fmt.Sprintf("%s %d", styles.IconBell, stats.ActiveNotifications))
	}

	return styles.HeaderStyle.Render("marktimer") + "  " + styles.StatusBarStyle.Render(strings.Join(parts, " · "))
}

func (m Model) panelWidth() int {
	if m.width <= 0 {
		return maxPanelWidth
	}
	return min(m.width-2, maxPanelWidth)
}

func (m Model) renderTimer(s timer.Snapshot, width int) string {
	cfg, rt := s.Configuration, s.Runtime
	selected := s.ID() == m.selected

	cursor := "  "
	if selected {
		cursor = styles.CursorStyle.Render("▸ ")
	}
	title := cursor + styles.NameStyle.Render(cfg.Name) + " " + styles.StateBadge(rt.State)

	clock := styles.TimeLargeStyle.Render(rt.Current.String())
	if b := m.blinks.Get(s.ID()); b != nil && b.On {
		clock = styles.BlinkStyle(b.Color).Render(rt.Current.String())
	}

	meta := styles.DirectionIcon(cfg.Direction)
	if !cfg.Target.IsZero() {
		meta += " " + cfg.Target.String()
	}
	line := clock + "  " + styles.MutedStyle.Render(meta)
	if markID, ok := m.blinks.Active(s.ID()); ok {
		if mk, _, found := cfg.MarkByID(markID); found {
			line += "  " + styles.WarningStyle.Render(styles.IconBell+" "+mk.Name)
		}
	}

	rows := []string{title, line}
	if marks := renderMarks(s); marks != "" {
		rows = append(rows, marks)
	}

	panel := styles.PanelStyle
	if selected {
		panel = styles.PanelSelectedStyle
	}
	return panel.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderMarks lists marks in time order with their trigger state.
func renderMarks(s timer.Snapshot) string {
	if len(s.Configuration.Marks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(s.Configuration.Marks))
	for _, mk := range s.Configuration.Marks {
		label := mk.Name + " " + mk.Time.Compact()
		switch {
		case !mk.Enabled:
			parts = append(parts, styles.MarkOffStyle.Render(styles.IconMarkOff+" "+label))
		case s.Runtime.IsTriggered(mk.ID):
			parts = append(parts, styles.MarkHitStyle.Render(styles.IconMarkHit+" "+label))
		default:
			parts = append(parts, styles.MarkStyle.Render(styles.IconMark+" "+label))
		}
	}
	return strings.Join(parts, "  ")
}
