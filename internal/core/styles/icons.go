package styles

import "github.com/hay-kot/marktimer/internal/core/timer"

// State icons. Plain unicode so they render without a patched font.
var (
	IconIdle      = "○"
	IconRunning   = "▶"
	IconPaused    = "⏸"
	IconStopped   = "■"
	IconCompleted = "✔"

	IconMark      = "◆"
	IconMarkHit   = "◇"
	IconMarkOff   = "·"
	IconBell      = "🔔"
	IconCountDown = "↓"
	IconCountUp   = "↑"

	IconNotifyInfo    = "●"
	IconNotifyWarning = "▲"
	IconNotifyError   = "✘"
)

// StateIcon returns the icon for s.
func StateIcon(s timer.State) string {
	switch s {
	case timer.StateRunning:
		return IconRunning
	case timer.StatePaused:
		return IconPaused
	case timer.StateStopped:
		return IconStopped
	case timer.StateCompleted:
		return IconCompleted
	default:
		return IconIdle
	}
}

// DirectionIcon returns the arrow for d.
func DirectionIcon(d timer.Direction) string {
	if d == timer.CountDown {
		return IconCountDown
	}
	return IconCountUp
}
