package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptKind says what a submitted prompt value is used for.
type PromptKind int

const (
	PromptNewGroup PromptKind = iota
	PromptSubgroup
	PromptRenameGroup
	PromptRenameSpace
)

// Prompt is a one-line text input overlay.
type Prompt struct {
	Kind  PromptKind
	Title string
	Value []rune
}

func NewPrompt(kind PromptKind, title, initial string) Prompt {
	return Prompt{Kind: kind, Title: title, Value: []rune(initial)}
}

// HandleKey edits the value. It reports done when enter or esc was
// pressed, with ok false for esc.
func (p *Prompt) HandleKey(msg tea.KeyMsg) (done, ok bool) {
	switch msg.Type {
	case tea.KeyEnter:
		return true, true
	case tea.KeyEsc:
		return true, false
	case tea.KeyBackspace:
		if len(p.Value) > 0 {
			p.Value = p.Value[:len(p.Value)-1]
		}
	case tea.KeyCtrlU:
		p.Value = nil
	case tea.KeySpace:
		p.Value = append(p.Value, ' ')
	case tea.KeyRunes:
		p.Value = append(p.Value, msg.Runes...)
	}
	return false, false
}

func (p Prompt) String() string {
	return strings.TrimSpace(string(p.Value))
}

func (p Prompt) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	inputStyle := lipgloss.NewStyle().Padding(0, 1).Underline(true)
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(50)

	return boxStyle.Render(
		titleStyle.Render(p.Title) + "\n\n" +
			inputStyle.Render(string(p.Value)+"█") + "\n\n" +
			hintStyle.Render("enter confirm · esc cancel · ctrl+u clear"))
}
