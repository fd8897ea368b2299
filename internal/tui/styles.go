package tui

import "github.com/charmbracelet/lipgloss"

var (
	userPromptStyle lipgloss.Style
	toolStyle       lipgloss.Style
	toolDoneStyle   lipgloss.Style
	systemStyle     lipgloss.Style
	errorTitleStyle lipgloss.Style
	errorBodyStyle  lipgloss.Style
	statusStyle     lipgloss.Style
	questionStyle   lipgloss.Style
	optionStyle     lipgloss.Style
)

func init() {
	userPromptStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	toolStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	toolDoneStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	systemStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	errorTitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	errorBodyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
		Faint(true)

	questionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 1)

	optionStyle = lipgloss.NewStyle().
		PaddingLeft(2)
}
