package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

// DetailModel shows information about the selected item.
type DetailModel struct {
	Width      int
	Height     int
	Scroll     int    // scroll offset
	Content    string // rendered content (cached)
	ContentLen int    // total lines in content
}

// ScrollUp adjusts the scroll offset upward.
func (m *DetailModel) ScrollUp() {
	if m.Scroll > 0 {
		m.Scroll--
	}
}

// ScrollDown adjusts the scroll offset downward.
func (m *DetailModel) ScrollDown() {
	if m.Scroll < m.ContentLen-m.Height {
		m.Scroll++
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}
}

// ResetScroll resets the scroll offset to 0.
func (m *DetailModel) ResetScroll() {
	m.Scroll = 0
}

func (m DetailModel) ViewTab(tab *types.Tab, st types.State) string {
	if tab == nil {
		return ""
	}

	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle()
	ghostStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true)
	liveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)

	var b strings.Builder

	b.WriteString(labelStyle.Render("Title") + "\n")
	title := tab.Title
	if r := []rune(title); m.Width > 3 && len(r) > m.Width-2 {
		title = string(r[:m.Width-3]) + "…"
	}
	b.WriteString(valueStyle.Render(title) + "\n\n")

	b.WriteString(labelStyle.Render("URL") + "\n")
	url := tab.URL
	// Wrap long URLs
	for m.Width > 2 && len(url) > m.Width-2 {
		b.WriteString(valueStyle.Render(url[:m.Width-2]) + "\n")
		url = url[m.Width-2:]
	}
	b.WriteString(valueStyle.Render(url) + "\n\n")

	b.WriteString(labelStyle.Render("Group") + "\n")
	group := model.InboxTitle
	if g, ok := st.Group(tab.GroupID); ok && !tab.InInbox() {
		group = g.Title
	}
	if tab.Subgroup != "" {
		group += " / " + tab.Subgroup
	}
	b.WriteString(valueStyle.Render(group) + "\n\n")

	b.WriteString(labelStyle.Render("Status") + "\n")
	if tab.IsGhost {
		b.WriteString(ghostStyle.Render("Closed (enter reopens)") + "\n")
	} else if tab.ID == st.ActiveTabID {
		b.WriteString(liveStyle.Render("Open, focused") + "\n")
	} else {
		b.WriteString(liveStyle.Render("Open") + "\n")
	}
	if tab.IsPinned {
		b.WriteString(valueStyle.Render("Pinned") + "\n")
	}

	return b.String()
}

// ViewScrolled applies scroll offset and height truncation to the content string.
func (m *DetailModel) ViewScrolled(content string) string {
	if content == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	m.ContentLen = len(lines)

	// Clamp scroll
	maxScroll := m.ContentLen - m.Height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.Scroll > maxScroll {
		m.Scroll = maxScroll
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}

	end := m.Scroll + m.Height
	if end > len(lines) {
		end = len(lines)
	}

	if m.Scroll >= len(lines) {
		return ""
	}

	return strings.Join(lines[m.Scroll:end], "\n")
}

func (m DetailModel) ViewGroup(sec *model.Section) string {
	if sec == nil {
		return ""
	}

	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle()

	var b strings.Builder

	b.WriteString(labelStyle.Render("Group") + "\n")
	b.WriteString(valueStyle.Render(sec.Group.Title) + "\n\n")

	var ghosts int
	for _, bucket := range sec.Buckets {
		for _, t := range bucket.Tabs {
			if t.IsGhost {
				ghosts++
			}
		}
	}
	b.WriteString(labelStyle.Render("Tabs") + "\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d (%d open, %d closed)", sec.Count, sec.Count-ghosts, ghosts)) + "\n\n")

	if !sec.IsInbox() {
		b.WriteString(labelStyle.Render("Color") + "\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipglossColor(sec.Group.Color)).Render(sec.Group.Color.OrGrey().Title()) + "\n\n")

		state := "expanded"
		if sec.Group.Collapsed {
			state = "collapsed"
		}
		b.WriteString(labelStyle.Render("State") + "\n")
		b.WriteString(valueStyle.Render(state) + "\n\n")
	}

	if sec.Group.AutoGroup {
		b.WriteString(labelStyle.Render("Auto-group") + "\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("by host name, %d buckets", len(sec.Buckets))) + "\n")
	}

	return b.String()
}
