package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#AFAFAF")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	writingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	readingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
)
