package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

// NodeKind tells the row types of the tree apart.
type NodeKind int

const (
	NodePinned  NodeKind = iota // header of the pinned tray
	NodeSection                 // Inbox or group header
	NodeBucket                  // sub-group or host name label
	NodeTab
)

// TreeNode represents a visible row in the tree.
type TreeNode struct {
	Kind    NodeKind
	Section *model.Section // owning section; nil for pinned rows
	Label   string         // bucket label
	Tab     *types.Tab     // non-nil for tab rows
}

// GroupID returns the id of the group the row belongs to, or "" for the
// pinned tray.
func (n TreeNode) GroupID() types.ID {
	if n.Section == nil {
		return ""
	}
	return n.Section.Group.ID
}

// TreeModel manages the sidebar tree of the active space.
type TreeModel struct {
	SpaceView model.View
	ActiveID  types.ID
	Cursor    int
	Offset    int // scroll offset
	Width     int
	Height    int
}

func NewTreeModel(v model.View, activeID types.ID) TreeModel {
	return TreeModel{SpaceView: v, ActiveID: activeID}
}

// VisibleNodes returns the flat list of currently visible rows.
func (m TreeModel) VisibleNodes() []TreeNode {
	var nodes []TreeNode
	if len(m.SpaceView.Pinned) > 0 {
		nodes = append(nodes, TreeNode{Kind: NodePinned})
		for i := range m.SpaceView.Pinned {
			nodes = append(nodes, TreeNode{Kind: NodeTab, Tab: &m.SpaceView.Pinned[i]})
		}
	}
	for si := range m.SpaceView.Sections {
		sec := &m.SpaceView.Sections[si]
		nodes = append(nodes, TreeNode{Kind: NodeSection, Section: sec})
		if sec.Group.Collapsed {
			continue
		}
		for bi := range sec.Buckets {
			b := &sec.Buckets[bi]
			if b.Label != "" {
				nodes = append(nodes, TreeNode{Kind: NodeBucket, Section: sec, Label: b.Label})
			}
			for ti := range b.Tabs {
				nodes = append(nodes, TreeNode{Kind: NodeTab, Section: sec, Label: b.Label, Tab: &b.Tabs[ti]})
			}
		}
	}
	return nodes
}

// SelectedNode returns the currently selected node, or nil.
func (m TreeModel) SelectedNode() *TreeNode {
	nodes := m.VisibleNodes()
	if m.Cursor >= 0 && m.Cursor < len(nodes) {
		return &nodes[m.Cursor]
	}
	return nil
}

func (m TreeModel) visibleRows() int {
	rows := m.Height - 2 // account for padding
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *TreeModel) scrollToCursor() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if rows := m.visibleRows(); m.Cursor >= m.Offset+rows {
		m.Offset = m.Cursor - rows + 1
	}
}

// MoveUp moves the cursor up.
func (m *TreeModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	m.scrollToCursor()
}

// MoveDown moves the cursor down.
func (m *TreeModel) MoveDown() {
	if m.Cursor < len(m.VisibleNodes())-1 {
		m.Cursor++
	}
	m.scrollToCursor()
}

// Parent jumps from a tab or bucket row to its section header.
func (m *TreeModel) Parent() {
	nodes := m.VisibleNodes()
	for i := m.Cursor - 1; i >= 0; i-- {
		if nodes[i].Kind == NodeSection || nodes[i].Kind == NodePinned {
			m.Cursor = i
			m.scrollToCursor()
			return
		}
	}
}

// SetView swaps in a fresh view, keeping the cursor on the same tab or
// section when it still exists.
func (m *TreeModel) SetView(v model.View, activeID types.ID) {
	var tabID, groupID types.ID
	kind := NodeTab
	if n := m.SelectedNode(); n != nil {
		kind = n.Kind
		groupID = n.GroupID()
		if n.Tab != nil {
			tabID = n.Tab.ID
		}
	}

	m.SpaceView = v
	m.ActiveID = activeID
	nodes := m.VisibleNodes()
	for i, n := range nodes {
		if (tabID != "" && n.Tab != nil && n.Tab.ID == tabID) ||
			(tabID == "" && n.Kind == kind && n.GroupID() == groupID) {
			m.Cursor = i
			m.scrollToCursor()
			return
		}
	}
	if m.Cursor >= len(nodes) {
		m.Cursor = len(nodes) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	m.scrollToCursor()
}

// lipglossColor maps the palette onto terminal colors.
func lipglossColor(c types.Color) lipgloss.Color {
	switch c {
	case types.ColorBlue:
		return lipgloss.Color("33")
	case types.ColorRed:
		return lipgloss.Color("196")
	case types.ColorYellow:
		return lipgloss.Color("220")
	case types.ColorGreen:
		return lipgloss.Color("42")
	case types.ColorPink:
		return lipgloss.Color("212")
	case types.ColorPurple:
		return lipgloss.Color("135")
	case types.ColorCyan:
		return lipgloss.Color("51")
	case types.ColorOrange:
		return lipgloss.Color("214")
	}
	return lipgloss.Color("245")
}

// View renders the tree.
func (m TreeModel) View() string {
	nodes := m.VisibleNodes()
	if len(nodes) == 0 {
		return "No tabs."
	}

	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 20
	}
	end := m.Offset + visibleRows
	if end > len(nodes) {
		end = len(nodes)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	ghostStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	activeStyle := lipgloss.NewStyle().Bold(true)
	bucketStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pinStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		node := nodes[i]
		var line string

		switch node.Kind {
		case NodePinned:
			line = pinStyle.Render(fmt.Sprintf("★ Pinned (%d)", len(m.SpaceView.Pinned)))
		case NodeSection:
			g := node.Section.Group
			icon := "▼"
			if g.Collapsed {
				icon = "▶"
			}
			label := fmt.Sprintf("%s %s (%d)", icon, g.Title, node.Section.Count)
			if g.AutoGroup {
				label += " ⌗"
			}
			style := lipgloss.NewStyle().Bold(true).Foreground(lipglossColor(g.Color))
			if node.Section.IsInbox() {
				style = lipgloss.NewStyle().Bold(true)
			}
			line = style.Render(label)
		case NodeBucket:
			line = bucketStyle.Render("  · " + node.Label)
		case NodeTab:
			indent := "  "
			if node.Label != "" {
				indent = "    "
			}
			marker := "  "
			if node.Tab.ID == m.ActiveID && !node.Tab.IsGhost {
				marker = "● "
			}
			title := node.Tab.Title
			if title == "" {
				title = node.Tab.URL
			}
			maxLen := m.Width - len(indent) - len(marker) - 2
			if maxLen < 10 {
				maxLen = 10
			}
			if r := []rune(title); len(r) > maxLen {
				title = string(r[:maxLen-1]) + "…"
			}
			switch {
			case node.Tab.IsGhost:
				line = indent + marker + ghostStyle.Render(title)
			case node.Tab.ID == m.ActiveID:
				line = indent + marker + activeStyle.Render(title)
			default:
				line = indent + marker + title
			}
		}

		if i == m.Cursor {
			if pad := m.Width - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			line = cursorStyle.Render(line)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
