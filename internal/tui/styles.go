package tui

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/streamscribe/internal/display"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(display.ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(display.ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(display.ColorSuccess)

	StyleWarning = lipgloss.NewStyle().
			Foreground(display.ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(display.ColorMuted)
)

const logoASCII = `
     _                                          _ _
 ___| |_ _ __ ___  __ _ _ __ ___  ___  ___ _ __(_) |__   ___
/ __| __| '__/ _ \/ _' | '_ ' _ \/ __|/ __| '__| | '_ \ / _ \
\__ \ |_| | |  __/ (_| | | | | | \__ \ (__| |  | | |_) |  __/
|___/\__|_|  \___|\__,_|_| |_| |_|___/\___|_|  |_|_.__/ \___|`

// Logo returns the streamscribe ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(display.ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(display.ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(display.ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(display.ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(display.ColorText)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(display.ColorError)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(display.ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(display.ColorSubtle)

	return t
}
