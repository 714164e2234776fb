package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// Board palette
const (
	ColorBorder = "#3A3F55" // Grey-blue

	ColorPrimaryText   = "#E6EAF2" // Titles
	ColorSecondaryText = "#B1B8C7" // Labels, start time
	ColorDisabledText  = "#6D7383" // Stopped timers
	ColorHelpText      = "240"

	ColorAccentMain   = "#7C3AED" // Panel headers
	ColorAccentBright = "#A78BFA" // Running clock, selection

	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E" // Earnings
	ColorWarning = "#F59E0B" // Paused, unsynced
)

func helpStyles() help.Styles {
	styles := help.New().Styles
	key := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	desc := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText))
	styles.ShortKey, styles.FullKey = key, key
	styles.ShortDesc, styles.FullDesc = desc, desc
	return styles
}
