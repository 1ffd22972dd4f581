package model

import (
	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/types"
)

// Overlay copies the host-owned fields of live onto t and marks it live.
// Group, sub-group, space and pin stay as t has them; the host knows nothing
// of those. Empty live fields do not erase what t already has.
func Overlay(t types.Tab, live host.LiveTab) types.Tab {
	t.ID = live.ID
	if live.Title != "" {
		t.Title = live.Title
	}
	if u := liveURL(live); u != "" {
		t.URL = u
	}
	if live.FavIconURL != "" {
		t.FavIconURL = live.FavIconURL
	}
	if t.GroupID == "" {
		t.GroupID = types.InboxID
	}
	if t.SpaceID == "" {
		t.SpaceID = types.DefaultSpaceID
	}
	t.IsGhost = false
	return t
}

// NewLiveTab makes a model tab for a host tab the model has not seen. It
// lands in the Inbox of the default space.
func NewLiveTab(live host.LiveTab) types.Tab {
	return Overlay(types.Tab{}, live)
}

func liveURL(live host.LiveTab) string {
	if live.URL != "" {
		return live.URL
	}
	return live.PendingURL
}

// Merge reconciles persisted tabs with the host's live tabs at startup.
// Persisted tabs found live are overlaid in place, the rest become ghosts
// with their fields frozen, and unmatched live tabs are appended. It also
// returns the id of the tab the host reports active, or "".
func Merge(persisted []types.Tab, live []host.LiveTab) ([]types.Tab, types.ID) {
	byID := make(map[types.ID]host.LiveTab, len(live))
	for _, l := range live {
		byID[l.ID] = l
	}

	out := make([]types.Tab, 0, len(persisted)+len(live))
	for _, p := range persisted {
		if l, ok := byID[p.ID]; ok {
			out = append(out, Overlay(p, l))
			delete(byID, p.ID)
			continue
		}
		p.IsGhost = true
		out = append(out, p)
	}

	var active types.ID
	for _, l := range live {
		if l.Active && active == "" {
			active = l.ID
		}
		if _, ok := byID[l.ID]; ok {
			out = append(out, NewLiveTab(l))
			delete(byID, l.ID)
		}
	}
	return out, active
}

// ApplyCreated handles a host tab.created event. A tab the model already
// holds is absorbed as an update; anything else is appended.
func ApplyCreated(s types.State, live host.LiveTab) types.State {
	if next, ok := ApplyUpdated(s, live); ok {
		return next
	}
	out := s.Clone()
	out.Tabs = append(out.Tabs, NewLiveTab(live))
	if live.Active {
		out.ActiveTabID = live.ID
	}
	return out
}

// ApplyUpdated handles a host tab.updated event. Unknown ids are ignored.
func ApplyUpdated(s types.State, live host.LiveTab) (types.State, bool) {
	next, ok := updateTab(s, live.ID, func(t *types.Tab) { *t = Overlay(*t, live) })
	if ok && live.Active {
		next.ActiveTabID = live.ID
	}
	return next, ok
}

// Replace swaps the tab oldID for the freshly created live tab, keeping the
// old row's position and local metadata.
func Replace(s types.State, oldID types.ID, live host.LiveTab) (types.State, bool) {
	i := s.TabIndex(oldID)
	if i < 0 {
		return s, false
	}
	out := s.Clone()
	out.Tabs[i] = Overlay(out.Tabs[i], live)
	// A created event for the new id may already have appended a row.
	for j := len(out.Tabs) - 1; j >= 0; j-- {
		if j != i && out.Tabs[j].ID == live.ID {
			out.Tabs = append(out.Tabs[:j:j], out.Tabs[j+1:]...)
		}
	}
	out.ActiveTabID = live.ID
	return out, true
}
