package model

import (
	"fmt"
	"strings"

	"github.com/lotas/seitenleiste/internal/ident"
	"github.com/lotas/seitenleiste/internal/types"
)

// Targets accepted by ChangeTabGroup besides an existing group id.
const (
	TargetNew   types.ID = "new"
	TargetInbox types.ID = "inbox"
)

// GroupUpdate carries the fields to change on a group; nil means unchanged.
type GroupUpdate struct {
	Title *string
	Color *types.Color
}

func updateGroup(s types.State, id types.ID, f func(*types.Group)) (types.State, bool) {
	i := s.GroupIndex(id)
	if i < 0 {
		return s, false
	}
	out := s.Clone()
	f(&out.Groups[i])
	return out, true
}

// ToggleGroupCollapse flips a group's collapsed display state.
func ToggleGroupCollapse(s types.State, groupID types.ID) (types.State, bool) {
	return updateGroup(s, groupID, func(g *types.Group) { g.Collapsed = !g.Collapsed })
}

// ToggleGroupAutoGroup flips splitting of a group's tabs by host name.
func ToggleGroupAutoGroup(s types.State, groupID types.ID) (types.State, bool) {
	return updateGroup(s, groupID, func(g *types.Group) { g.AutoGroup = !g.AutoGroup })
}

// SetInboxAutoGroup sets the Inbox's own auto-group flag.
func SetInboxAutoGroup(s types.State, on bool) types.State {
	out := s.Clone()
	out.InboxAutoGroup = on
	return out
}

// UpdateGroup renames and/or recolors a group.
func UpdateGroup(s types.State, groupID types.ID, u GroupUpdate) (types.State, bool) {
	return updateGroup(s, groupID, func(g *types.Group) {
		if u.Title != nil {
			g.Title = *u.Title
		}
		if u.Color != nil {
			g.Color = *u.Color
		}
	})
}

// SetGroupGhost sets whether a group lacks a live host counterpart.
func SetGroupGhost(s types.State, groupID types.ID, ghost bool) (types.State, bool) {
	return updateGroup(s, groupID, func(g *types.Group) { g.IsGhost = ghost })
}

// RemoveGroup moves the group's tabs to the Inbox, clears their sub-group and
// deletes the group.
func RemoveGroup(s types.State, groupID types.ID) (types.State, bool) {
	i := s.GroupIndex(groupID)
	if i < 0 {
		return s, false
	}
	out := mapTabs(s, func(t types.Tab) types.Tab {
		if t.GroupID == groupID {
			t.GroupID = types.InboxID
			t.Subgroup = ""
		}
		return t
	})
	out.Groups = append(out.Groups[:i:i], out.Groups[i+1:]...)
	return out, true
}

// MoveGroupToSpace reparents a group. Unknown spaces are rejected.
func MoveGroupToSpace(s types.State, groupID, spaceID types.ID) (types.State, bool) {
	if s.SpaceIndex(spaceID) < 0 {
		return s, false
	}
	return updateGroup(s, groupID, func(g *types.Group) { g.SpaceID = spaceID })
}

// AddGroupToSpace creates an empty grey group named "Group N" in the space
// (the default space when spaceID is empty). It starts as a ghost until a
// tab is moved into it.
func AddGroupToSpace(s types.State, spaceID types.ID, gen ident.Generator) (types.State, types.Group) {
	if spaceID == "" {
		spaceID = types.DefaultSpaceID
	}
	g := types.Group{
		ID:      ident.Unique(gen, func(id types.ID) bool { return s.GroupIndex(id) >= 0 }),
		Title:   fmt.Sprintf("Group %d", len(s.Groups)+1),
		Color:   types.ColorGrey,
		IsGhost: true,
		SpaceID: spaceID,
	}
	out := s.Clone()
	out.Groups = append(out.Groups, g)
	return out, g
}

// RekeyGroup changes a group's id and re-points its tabs, used when a host
// assigns its own id to a local group.
func RekeyGroup(s types.State, from, to types.ID) (types.State, bool) {
	i := s.GroupIndex(from)
	if i < 0 || from == to {
		return s, false
	}
	out := mapTabs(s, func(t types.Tab) types.Tab {
		if t.GroupID == from {
			t.GroupID = to
		}
		return t
	})
	out.Groups[i].ID = to
	return out, true
}

// ChangeTabGroup moves a tab to the Inbox, to a new group titled title, or to
// an existing group. target is TargetInbox, types.InboxID or empty for the
// Inbox; TargetNew (or empty with a title) for a new group; otherwise a group
// id. The destination group is revived from ghost state. It returns the
// resolved group id; false means nothing changed.
func ChangeTabGroup(s types.State, tabID, target types.ID, title string, gen ident.Generator) (types.State, types.ID, bool) {
	if s.TabIndex(tabID) < 0 {
		return s, "", false
	}
	title = strings.TrimSpace(title)

	out := s.Clone()
	var resolved types.ID
	switch {
	case target == TargetNew || (target == "" && title != ""):
		if title == "" {
			return s, "", false
		}
		resolved = ident.Unique(gen, func(id types.ID) bool { return s.GroupIndex(id) >= 0 })
		out.Groups = append(out.Groups, types.Group{
			ID:      resolved,
			Title:   title,
			Color:   types.ColorGrey,
			SpaceID: activeSpace(s),
		})
	case target == "" || target == TargetInbox || target == types.InboxID:
		resolved = types.InboxID
	default:
		if s.GroupIndex(target) < 0 {
			return s, "", false
		}
		resolved = target
	}

	i := out.TabIndex(tabID)
	out.Tabs[i].GroupID = resolved
	if gi := out.GroupIndex(resolved); gi >= 0 {
		out.Groups[gi].IsGhost = false
	}
	return out, resolved, true
}

func activeSpace(s types.State) types.ID {
	if s.ActiveSpaceID == "" || s.SpaceIndex(s.ActiveSpaceID) < 0 {
		return types.DefaultSpaceID
	}
	return s.ActiveSpaceID
}
