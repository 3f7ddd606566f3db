package ui

import "github.com/charmbracelet/lipgloss"

// Common UI styles
var (
	FocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	BlurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	TitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).MarginLeft(2)
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("140"))
)

// Table styles
var (
	TableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("28")).
			Padding(0, 1).
			Margin(0, 1)

	ActiveTableStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("46")).
				Padding(0, 1).
				Margin(0, 1)

	SelectedTableStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("39")).
				Padding(0, 1).
				Margin(0, 1)

	EmptySeatStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LeaderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
)

// Event log styles
var (
	EliminationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	MoveStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	WinnerStyle      = lipgloss.NewStyle().
				Background(lipgloss.Color("22")).
				Foreground(lipgloss.Color("46")).
				Padding(0, 2).
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("46")).
				Bold(true)
)
