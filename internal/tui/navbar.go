package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/seitenleiste/internal/types"
)

// TreeWidthPct is the percentage of terminal width used for the tree pane.
const TreeWidthPct = 60

// renderNavbar draws the space switcher on the left and the connection
// status on the right.
func renderNavbar(spaces []types.Space, active types.ID, status string, width int) string {
	sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var tabs string
	for i, sp := range spaces {
		if i > 0 {
			tabs += sepStyle.Render(" │ ")
		}
		label := string(rune('1'+i)) + " " + sp.Title
		style := lipgloss.NewStyle().Foreground(lipglossColor(sp.Color))
		if sp.ID == active {
			style = style.Bold(true).Underline(true)
		} else {
			style = style.Faint(true)
		}
		tabs += style.Render(label)
	}

	left := " " + tabs
	right := statusStyle.Render(status)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	padding := lipgloss.NewStyle().Width(gap)

	return left + padding.Render("") + right + " "
}
