package tui

import (
	"testing"

	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

func treeState() types.State {
	s := types.NewState(types.DefaultSnapshot())
	s.Groups = []types.Group{
		{ID: "g1", Title: "Work", Color: types.ColorRed, SpaceID: types.DefaultSpaceID},
		{ID: "g2", Title: "Later", Color: types.ColorBlue, SpaceID: types.DefaultSpaceID, Collapsed: true},
	}
	s.Tabs = []types.Tab{
		{ID: "1", Title: "Pinned", URL: "https://p.example", IsPinned: true, GroupID: types.InboxID},
		{ID: "2", Title: "Loose", URL: "https://l.example", GroupID: types.InboxID},
		{ID: "3", Title: "Doc", URL: "https://d.example", GroupID: "g1", Subgroup: "docs"},
		{ID: "4", Title: "Mail", URL: "https://m.example", GroupID: "g1"},
		{ID: "5", Title: "Hidden", URL: "https://h.example", GroupID: "g2"},
	}
	return s
}

func TestVisibleNodes(t *testing.T) {
	m := NewTreeModel(model.ItemsToRender(treeState()), "4")
	nodes := m.VisibleNodes()

	want := []struct {
		kind NodeKind
		tab  types.ID
	}{
		{NodePinned, ""},
		{NodeTab, "1"},
		{NodeSection, ""}, // Inbox
		{NodeTab, "2"},
		{NodeSection, ""}, // Work
		{NodeTab, "4"},    // unlabelled bucket first
		{NodeBucket, ""},  // docs
		{NodeTab, "3"},
		{NodeSection, ""}, // Later, collapsed
	}
	if len(nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
	}
	for i, w := range want {
		if nodes[i].Kind != w.kind {
			t.Errorf("node %d kind = %v, want %v", i, nodes[i].Kind, w.kind)
		}
		if w.tab != "" && (nodes[i].Tab == nil || nodes[i].Tab.ID != w.tab) {
			t.Errorf("node %d tab = %+v, want %s", i, nodes[i].Tab, w.tab)
		}
	}
	if nodes[6].Label != "docs" || nodes[4].GroupID() != "g1" {
		t.Errorf("bucket = %+v section = %s", nodes[6], nodes[4].GroupID())
	}
}

func TestTreeNavigation(t *testing.T) {
	m := NewTreeModel(model.ItemsToRender(treeState()), "")
	m.Height = 20

	m.MoveUp()
	if m.Cursor != 0 {
		t.Errorf("cursor moved above the first row: %d", m.Cursor)
	}
	for i := 0; i < 20; i++ {
		m.MoveDown()
	}
	if last := len(m.VisibleNodes()) - 1; m.Cursor != last {
		t.Errorf("cursor = %d, want %d", m.Cursor, last)
	}

	m.Cursor = 7 // tab 3
	m.Parent()
	if n := m.SelectedNode(); n == nil || n.Kind != NodeSection || n.GroupID() != "g1" {
		t.Errorf("Parent landed on %+v", n)
	}
}

func TestSetViewKeepsSelection(t *testing.T) {
	s := treeState()
	m := NewTreeModel(model.ItemsToRender(s), "")
	m.Height = 20
	m.Cursor = 7 // tab 3

	// Unpinning tab 1 removes two rows above the cursor.
	s.Tabs[0].IsPinned = false
	m.SetView(model.ItemsToRender(s), "")
	if n := m.SelectedNode(); n == nil || n.Tab == nil || n.Tab.ID != "3" {
		t.Errorf("selection = %+v, want tab 3", n)
	}

	// Removing the selected tab clamps the cursor.
	s.Tabs = s.Tabs[:1]
	m.SetView(model.ItemsToRender(s), "")
	if m.Cursor >= len(m.VisibleNodes()) {
		t.Errorf("cursor %d out of range", m.Cursor)
	}
}

func TestGroupPickerOptions(t *testing.T) {
	v := model.ItemsToRender(treeState())
	p := NewGroupPicker(v, "g1")

	var targets []types.ID
	for _, o := range p.Options {
		targets = append(targets, o.Target)
	}
	want := []types.ID{model.TargetInbox, "g2", model.TargetNew}
	if len(targets) != len(want) {
		t.Fatalf("targets = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("targets = %v, want %v", targets, want)
		}
	}
}

func TestColorPickerSkipsUsedColors(t *testing.T) {
	p := NewColorPicker([]types.Space{types.DefaultSpace()})
	for _, c := range p.Colors {
		if c == types.ColorBlue {
			t.Error("default space color offered again")
		}
	}
	if len(p.Colors) != len(types.Palette)-1 {
		t.Errorf("got %d colors", len(p.Colors))
	}
}
