package cmd

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	borderColor  = lipgloss.Color("#6B7280")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(18)
	okStyle    = lipgloss.NewStyle().Foreground(successColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderColor).Padding(0, 1)
)
