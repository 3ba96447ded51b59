package tui

import "github.com/charmbracelet/lipgloss"

// styles groups the lipgloss styles used by the chat shell.
type styles struct {
	header   lipgloss.Style
	user     lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
	cursor   lipgloss.Style
	muted    lipgloss.Style
	card     lipgloss.Style
	spinner  lipgloss.Style
	high     lipgloss.Style
	medium   lipgloss.Style
	low      lipgloss.Style
	selected lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		user:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).Width(28),
		spinner:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		high:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		medium:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		low:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
}

// relevance picks the style for a relevance CSS class.
func (s styles) relevance(class string) lipgloss.Style {
	switch class {
	case "relevance-high":
		return s.high
	case "relevance-medium":
		return s.medium
	default:
		return s.low
	}
}
