package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorForeground = "#F8F8F2"
	colorCyan       = "#8BE9FD"
	colorGreen      = "#50FA7B"
	colorOrange     = "#FFB86C"
	colorPurple     = "#BD93F9"
	colorRed        = "#FF5555"
	colorYellow     = "#F1FA8C"
	colorComment    = "#6272A4"
)

type styles struct {
	title    lipgloss.Style
	group    lipgloss.Style
	online   lipgloss.Style
	offline  lipgloss.Style
	warn     lipgloss.Style
	dim      lipgloss.Style
	selected lipgloss.Style
	banner   lipgloss.Style
	footer   lipgloss.Style
	app      lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPurple)).
			Bold(true),
		group: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCyan)).
			Bold(true),
		online: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)),
		offline: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)).
			Bold(true),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorOrange)),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorForeground)).
			Background(lipgloss.Color(colorComment)),
		banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorYellow)).
			Bold(true),
		footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		app: lipgloss.NewStyle().
			Padding(0, 1),
	}
}
