package main

import "github.com/charmbracelet/lipgloss"

// Styles for command output on stderr.
var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green

	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	diffRemoveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
)
