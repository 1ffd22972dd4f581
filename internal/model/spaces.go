package model

import (
	"github.com/lotas/seitenleiste/internal/ident"
	"github.com/lotas/seitenleiste/internal/types"
)

// SpaceUpdate carries the fields to change on a space; nil means unchanged.
type SpaceUpdate struct {
	Title *string
	Color *types.Color
}

func colorUsed(s types.State, c types.Color, except types.ID) bool {
	for _, sp := range s.Spaces {
		if sp.Color == c && sp.ID != except {
			return true
		}
	}
	return false
}

// AddSpace creates a space titled after its color. It fails when MaxSpaces
// already exist or another space has the same color.
func AddSpace(s types.State, color types.Color, gen ident.Generator) (types.State, types.Space, bool) {
	color = color.OrGrey()
	if len(s.Spaces) >= types.MaxSpaces || colorUsed(s, color, "") {
		return s, types.Space{}, false
	}
	sp := types.Space{
		ID:    ident.Unique(gen, func(id types.ID) bool { return s.SpaceIndex(id) >= 0 }),
		Title: color.Title(),
		Color: color,
	}
	out := s.Clone()
	out.Spaces = append(out.Spaces, sp)
	return out, sp, true
}

// UpdateSpace renames or recolors a space. A recolor to a color held by
// another space is rejected as a whole.
func UpdateSpace(s types.State, spaceID types.ID, u SpaceUpdate) (types.State, bool) {
	i := s.SpaceIndex(spaceID)
	if i < 0 {
		return s, false
	}
	if u.Color != nil && colorUsed(s, *u.Color, spaceID) {
		return s, false
	}
	out := s.Clone()
	if u.Title != nil {
		out.Spaces[i].Title = *u.Title
	}
	if u.Color != nil {
		out.Spaces[i].Color = *u.Color
	}
	return out, true
}

// SetActiveSpace switches the visible space. Unknown ids are ignored.
func SetActiveSpace(s types.State, spaceID types.ID) (types.State, bool) {
	if s.SpaceIndex(spaceID) < 0 || s.ActiveSpaceID == spaceID {
		return s, false
	}
	out := s.Clone()
	out.ActiveSpaceID = spaceID
	return out, true
}

// RemoveSpace deletes a non-default space. Each of its groups either merges
// into a default-space group with the same normalized title, taking its tabs
// along, or is reparented into the default space. Groups of the removed space
// that share a title end up as one.
func RemoveSpace(s types.State, spaceID types.ID) (types.State, bool) {
	if spaceID == types.DefaultSpaceID {
		return s, false
	}
	si := s.SpaceIndex(spaceID)
	if si < 0 {
		return s, false
	}

	survivors := make(map[string]types.ID)
	for _, g := range s.Groups {
		if InSpace(s, g, types.DefaultSpaceID) {
			key := ident.NormalizeTitle(g.Title)
			if _, ok := survivors[key]; !ok {
				survivors[key] = g.ID
			}
		}
	}

	repoint := make(map[types.ID]types.ID)
	out := s.Clone()
	groups := out.Groups[:0]
	for _, g := range out.Groups {
		if g.SpaceID != spaceID {
			groups = append(groups, g)
			continue
		}
		key := ident.NormalizeTitle(g.Title)
		if target, ok := survivors[key]; ok {
			repoint[g.ID] = target
			continue
		}
		g.SpaceID = types.DefaultSpaceID
		survivors[key] = g.ID
		groups = append(groups, g)
	}
	out.Groups = groups

	for i, t := range out.Tabs {
		if target, ok := repoint[t.GroupID]; ok {
			out.Tabs[i].GroupID = target
		}
		if t.SpaceID == spaceID {
			out.Tabs[i].SpaceID = types.DefaultSpaceID
		}
	}

	out.Spaces = append(out.Spaces[:si:si], out.Spaces[si+1:]...)
	if out.ActiveSpaceID == spaceID {
		out.ActiveSpaceID = types.DefaultSpaceID
	}
	return out, true
}
