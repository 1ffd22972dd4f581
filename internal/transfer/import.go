package transfer

import (
	"github.com/lotas/seitenleiste/internal/ident"
	"github.com/lotas/seitenleiste/internal/types"
)

// Result counts what an import added and what it recognized as already
// present.
type Result struct {
	AddedGroups   int `json:"addedGroups"`
	AddedTabs     int `json:"addedTabs"`
	SkippedGroups int `json:"skippedGroups"`
	SkippedTabs   int `json:"skippedTabs"`
}

// Import merges p into s without overwriting or duplicating anything.
// Spaces are keyed by color, groups by normalized title and tabs by URL plus
// the normalized title of their group. Everything added is a ghost with a
// fresh id from gen.
func Import(s types.State, p Payload, gen ident.Generator) (types.State, Result) {
	out := s.Clone()

	// Spaces
	colors := map[types.Color]bool{}
	for _, sp := range out.Spaces {
		colors[sp.Color.OrGrey()] = true
	}
	for _, sp := range p.Spaces {
		c := sp.Color.OrGrey()
		if len(out.Spaces) >= types.MaxSpaces || colors[c] {
			continue
		}
		if sp.ID == "" || out.SpaceIndex(sp.ID) >= 0 {
			sp.ID = ident.Unique(gen, func(id types.ID) bool { return out.SpaceIndex(id) >= 0 })
		}
		if sp.Title == "" {
			sp.Title = c.Title()
		}
		sp.Color = c
		out.Spaces = append(out.Spaces, sp)
		colors[c] = true
	}
	if out.SpaceIndex(types.DefaultSpaceID) < 0 {
		out.Spaces = append([]types.Space{types.DefaultSpace()}, out.Spaces...)
	}
	if p.ActiveSpaceID != "" && out.SpaceIndex(p.ActiveSpaceID) >= 0 {
		out.ActiveSpaceID = p.ActiveSpaceID
	} else {
		out.ActiveSpaceID = types.DefaultSpaceID
	}
	if p.Meta.InboxAutoGroup != nil {
		out.InboxAutoGroup = *p.Meta.InboxAutoGroup
	}
	spaceOr := func(id types.ID) types.ID {
		if id != "" && out.SpaceIndex(id) >= 0 {
			return id
		}
		return types.DefaultSpaceID
	}

	// Groups
	var res Result
	byTitle := map[string]types.ID{}
	groupIDs := ident.Set{}
	for _, g := range out.Groups {
		groupIDs.Add(g.ID)
		key := ident.NormalizeTitle(g.Title)
		if _, ok := byTitle[key]; !ok {
			byTitle[key] = g.ID
		}
	}
	for _, g := range p.Groups {
		key := ident.NormalizeTitle(g.Title)
		if _, ok := byTitle[key]; key == "" || ok {
			continue
		}
		g.ID = ident.Unique(gen, groupIDs.Has)
		groupIDs.Add(g.ID)
		g.Color = g.Color.OrGrey()
		g.IsGhost = true
		g.SpaceID = spaceOr(g.SpaceID)
		out.Groups = append(out.Groups, g)
		byTitle[key] = g.ID
		res.AddedGroups++
	}
	res.SkippedGroups = len(p.Groups) - res.AddedGroups

	// Tabs
	groupKey := map[types.ID]string{}
	for _, g := range out.Groups {
		groupKey[g.ID] = ident.NormalizeTitle(g.Title)
	}
	seen := map[string]bool{}
	for _, t := range out.Tabs {
		seen[t.URL+":::"+groupKey[t.GroupID]] = true
	}
	source := map[types.ID]types.Group{}
	for _, g := range p.Groups {
		if _, ok := source[g.ID]; !ok {
			source[g.ID] = g
		}
	}
	tabIDs := ident.Set{}
	for _, t := range out.Tabs {
		tabIDs.Add(t.ID)
	}
	for _, t := range p.Tabs {
		target := types.InboxID
		space := types.DefaultSpaceID
		var key string
		if g, ok := source[t.GroupID]; ok && !t.InInbox() {
			key = ident.NormalizeTitle(g.Title)
			if id, ok := byTitle[key]; ok && key != "" {
				target = id
			}
			space = spaceOr(g.SpaceID)
		}
		dedup := t.URL + ":::" + key
		if seen[dedup] {
			continue
		}
		seen[dedup] = true

		title := t.Title
		if title == "" {
			title = t.URL
		}
		if title == "" {
			title = "Untitled"
		}
		id := ident.Unique(gen, tabIDs.Has)
		tabIDs.Add(id)
		out.Tabs = append(out.Tabs, types.Tab{
			ID:         id,
			Title:      title,
			URL:        t.URL,
			FavIconURL: t.FavIconURL,
			IsGhost:    true,
			IsPinned:   t.IsPinned,
			GroupID:    target,
			Subgroup:   t.Subgroup,
			SpaceID:    space,
		})
		res.AddedTabs++
	}
	res.SkippedTabs = len(p.Tabs) - res.AddedTabs
	return out, res
}
