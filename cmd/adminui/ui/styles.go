package ui

import "github.com/charmbracelet/lipgloss"

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0C1021")).
			Background(lipgloss.Color("#4C9AFF")).
			Bold(true).
			Padding(0, 2)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203")).
				Bold(true).
				Render
)
