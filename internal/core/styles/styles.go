// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"sort"

	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/marktimer/internal/core/timer"
)

// Palette defines a minimal semantic theme palette.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// themes holds the built-in named palettes.
var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    lipgloss.Color("#7aa2f7"),
		Secondary:  lipgloss.Color("#7dcfff"),
		Foreground: lipgloss.Color("#c0caf5"),
		Muted:      lipgloss.Color("#565f89"),
		Background: lipgloss.Color("#1a1b26"),
		Surface:    lipgloss.Color("#3b4261"),
		Success:    lipgloss.Color("#9ece6a"),
		Warning:    lipgloss.Color("#e0af68"),
		Error:      lipgloss.Color("#f7768e"),
	},
	"gruvbox": {
		Primary:    lipgloss.Color("#83a598"),
		Secondary:  lipgloss.Color("#8ec07c"),
		Foreground: lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#665c54"),
		Background: lipgloss.Color("#282828"),
		Surface:    lipgloss.Color("#3c3836"),
		Success:    lipgloss.Color("#b8bb26"),
		Warning:    lipgloss.Color("#fabd2f"),
		Error:      lipgloss.Color("#fb4934"),
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	// CLI styles.
	HeaderStyle  lipgloss.Style
	CommandStyle lipgloss.Style
	DividerStyle lipgloss.Style
	MutedStyle   lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	SuccessStyle lipgloss.Style

	// Timer display.
	TimeStyle      lipgloss.Style
	TimeLargeStyle lipgloss.Style
	NameStyle      lipgloss.Style
	MarkStyle      lipgloss.Style
	MarkHitStyle   lipgloss.Style
	MarkOffStyle   lipgloss.Style

	// TUI shared styles.
	PanelStyle         lipgloss.Style
	PanelSelectedStyle lipgloss.Style
	HelpStyle          lipgloss.Style
	StatusBarStyle     lipgloss.Style
	CursorStyle        lipgloss.Style

	// Toasts.
	ToastInfoStyle    lipgloss.Style
	ToastWarningStyle lipgloss.Style
	ToastErrorStyle   lipgloss.Style

	stateStyles map[timer.State]lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	CommandStyle = lipgloss.NewStyle().
		Foreground(p.Foreground)
	DividerStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	MutedStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	ErrorStyle = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)
	WarningStyle = lipgloss.NewStyle().
		Foreground(p.Warning)
	SuccessStyle = lipgloss.NewStyle().
		Foreground(p.Success)

	TimeStyle = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Bold(true)
	TimeLargeStyle = TimeStyle.
		Padding(0, 1)
	NameStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	MarkStyle = lipgloss.NewStyle().
		Foreground(p.Foreground)
	MarkHitStyle = lipgloss.NewStyle().
		Foreground(p.Success)
	MarkOffStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Strikethrough(true)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface).
		Padding(0, 1)
	PanelSelectedStyle = PanelStyle.
		BorderForeground(p.Primary)
	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		MarginTop(1)
	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)
	CursorStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)

	toast := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Foreground(p.Foreground)
	ToastInfoStyle = toast.BorderForeground(p.Primary)
	ToastWarningStyle = toast.BorderForeground(p.Warning)
	ToastErrorStyle = toast.BorderForeground(p.Error)

	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	stateStyles = map[timer.State]lipgloss.Style{
		timer.StateIdle:      badge.Foreground(p.Muted),
		timer.StateRunning:   badge.Foreground(p.Background).Background(p.Success),
		timer.StatePaused:    badge.Foreground(p.Background).Background(p.Warning),
		timer.StateStopped:   badge.Foreground(p.Foreground).Background(p.Surface),
		timer.StateCompleted: badge.Foreground(p.Background).Background(p.Primary),
	}
}

// StateBadge renders the state as a coloured badge with its icon.
func StateBadge(s timer.State) string {
	style, ok := stateStyles[s]
	if !ok {
		style = stateStyles[timer.StateIdle]
	}
	return style.Render(StateIcon(s) + " " + string(s))
}

// BlinkStyle returns the style used while a mark notification blinks.
// An empty colour falls back to the warning colour.
func BlinkStyle(color string) lipgloss.Style {
	c := lipgloss.Color(color)
	if color == "" {
		c = CurrentPalette.Warning
	}
	return lipgloss.NewStyle().
		Foreground(CurrentPalette.Background).
		Background(c).
		Bold(true).
		Padding(0, 1)
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

func colorHexPtr(c lipgloss.Color) *string {
	if c == "" {
		return nil
	}
	hex := string(c)
	return &hex
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	p := CurrentPalette

	fg := colorHexPtr(p.Foreground)
	primary := colorHexPtr(p.Primary)
	secondary := colorHexPtr(p.Secondary)
	muted := colorHexPtr(p.Muted)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = primary
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	return cfg
}

// FormTheme returns a huh theme using the active palette.
func FormTheme() *huh.Theme {
	p := CurrentPalette
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(p.Primary)
	t.Focused.Title = t.Focused.Title.Foreground(p.Primary).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(p.Muted)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(p.Error)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(p.Error)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(p.Secondary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(p.Success)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	return t
}
