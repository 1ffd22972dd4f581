package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/seitenleiste/internal/types"
)

// ColorPicker chooses the color of a new space. Colors already taken by a
// space are left out.
type ColorPicker struct {
	Colors []types.Color
	Cursor int
	Width  int
	Height int
}

func NewColorPicker(spaces []types.Space) ColorPicker {
	used := map[types.Color]bool{}
	for _, sp := range spaces {
		used[sp.Color.OrGrey()] = true
	}
	var colors []types.Color
	for _, c := range types.Palette {
		if !used[c] {
			colors = append(colors, c)
		}
	}
	return ColorPicker{Colors: colors}
}

func (m *ColorPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *ColorPicker) MoveDown() {
	if m.Cursor < len(m.Colors)-1 {
		m.Cursor++
	}
}

// Selected returns the highlighted color, or "" when none is free.
func (m ColorPicker) Selected() types.Color {
	if m.Cursor >= 0 && m.Cursor < len(m.Colors) {
		return m.Colors[m.Cursor]
	}
	return ""
}

func (m ColorPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("New space color:") + "\n\n")

	for i, c := range m.Colors {
		swatch := lipgloss.NewStyle().Foreground(lipglossColor(c)).Render("■ ")
		label := c.Title()
		if i == m.Cursor {
			label = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1).Render(label)
		} else {
			label = normalStyle.Render(label)
		}
		b.WriteString(" " + swatch + label + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter select · esc cancel"))

	return boxStyle.Render(b.String())
}
