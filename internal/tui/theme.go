package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorCoral  lipgloss.Color = "#FF6B6B"
	colorSun    lipgloss.Color = "#FFD93D"
	colorMint   lipgloss.Color = "#6BCB77"
	colorSky    lipgloss.Color = "#4D96FF"
	colorText   lipgloss.Color = "#EDEDED"
	colorSubtle lipgloss.Color = "#8A8A8A"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCoral).
			MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtle)
	focusStyle   = lipgloss.NewStyle().Foreground(colorSky).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	errorStyle   = lipgloss.NewStyle().Foreground(colorCoral)
	okStyle      = lipgloss.NewStyle().Foreground(colorMint)
	cursorStyle  = lipgloss.NewStyle().Foreground(colorSun).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(colorSubtle).MarginTop(1)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSky).
			Padding(0, 2)
)
