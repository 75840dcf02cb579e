package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/homestock/internal/domain"
)

var (
	// TitleStyle is used for screen titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")) // Purple

	// SelectedItemStyle is used for the row under the cursor.
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")). // Light purple
				Bold(true)

	// NormalItemStyle is used for other rows.
	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	// ErrorStyle is used for failure toasts.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// PromptStyle is used for input prompts.
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")) // Light blue

	// HelpStyle is used for hint lines.
	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")) // Dark gray
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	pinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	deleteStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("196")).
			Foreground(lipgloss.Color("231")).
			Bold(true)

	pressedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236"))

	pickerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	pickerSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("231")).
				Padding(0, 1)

	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	shoppingModeStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("205")).
				Foreground(lipgloss.Color("0")).
				Padding(0, 1)
)

// stateColors maps stock levels to their badge colors.
var stateColors = map[domain.State]lipgloss.Color{
	domain.StateNeed: lipgloss.Color("196"),
	domain.StateLow:  lipgloss.Color("214"),
	domain.StateOK:   lipgloss.Color("42"),
}

// stateBadge renders a fixed-width state label.
func stateBadge(s domain.State) string {
	style := lipgloss.NewStyle().Width(badgeWidth).Bold(true)
	if c, ok := stateColors[s]; ok {
		style = style.Foreground(c)
	}
	return style.Render(s.Label())
}
