package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

// GroupOption is one destination in the move-to-group picker.
type GroupOption struct {
	Target types.ID // model.TargetNew or model.TargetInbox for the fixed entries
	Label  string
	Count  int
}

type GroupPicker struct {
	Options []GroupOption
	Cursor  int
	Width   int
	Height  int
}

// NewGroupPicker lists the Inbox, the groups of the active space except the
// one the tab is in, and a "new group" entry last.
func NewGroupPicker(v model.View, current types.ID) GroupPicker {
	var opts []GroupOption
	for _, sec := range v.Sections {
		if sec.Group.ID == current {
			continue
		}
		target := sec.Group.ID
		if sec.IsInbox() {
			target = model.TargetInbox
		}
		opts = append(opts, GroupOption{Target: target, Label: sec.Group.Title, Count: sec.Count})
	}
	opts = append(opts, GroupOption{Target: model.TargetNew, Label: "New group…", Count: -1})
	return GroupPicker{Options: opts}
}

func (m *GroupPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *GroupPicker) MoveDown() {
	if m.Cursor < len(m.Options)-1 {
		m.Cursor++
	}
}

func (m GroupPicker) Selected() *GroupOption {
	if m.Cursor >= 0 && m.Cursor < len(m.Options) {
		return &m.Options[m.Cursor]
	}
	return nil
}

func (m GroupPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Move to group:") + "\n\n")

	for i, o := range m.Options {
		label := o.Label
		if o.Count >= 0 {
			label = fmt.Sprintf("%s (%d tabs)", o.Label, o.Count)
		}
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter confirm · esc cancel"))

	return boxStyle.Render(b.String())
}
