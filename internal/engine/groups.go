package engine

import (
	"context"
	"fmt"

	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

// Mutation is a state transition applied under the engine lock. It reports
// false when nothing changed.
type Mutation func(types.State) (types.State, bool)

// GroupSync decides whether groups have host counterparts. Methods that talk
// to the host run outside the engine lock and hand back a Mutation for the
// engine to apply.
type GroupSync interface {
	// Discover runs once after the startup merge.
	Discover(ctx context.Context) (Mutation, error)
	// TabMoved mirrors a tab's new group membership on the host.
	TabMoved(ctx context.Context, s types.State, tabID types.ID) (Mutation, error)
	// GroupChanged pushes a group's title, color and collapsed state.
	GroupChanged(ctx context.Context, g types.Group) error
	// Event handles host group events.
	Event(ev host.Event) Mutation
}

// LocalGroups keeps groups as purely local constructs. It is the default.
type LocalGroups struct{}

func (LocalGroups) Discover(context.Context) (Mutation, error) { return nil, nil }

func (LocalGroups) TabMoved(context.Context, types.State, types.ID) (Mutation, error) {
	return nil, nil
}

func (LocalGroups) GroupChanged(context.Context, types.Group) error { return nil }

func (LocalGroups) Event(host.Event) Mutation { return nil }

// HostGroups mirrors groups onto real host tab groups. Groups whose id is a
// host integer id are considered host-known; local ids get a host group the
// first time a live tab is moved into them, and are re-keyed to its id.
type HostGroups struct {
	Host host.GroupHost
}

func hostKnown(id types.ID) bool {
	_, ok := id.Int()
	return ok && id != types.InboxID
}

func (h HostGroups) Discover(ctx context.Context) (Mutation, error) {
	live, err := h.Host.QueryGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	return func(s types.State) (types.State, bool) {
		out := s.Clone()
		seen := map[types.ID]bool{}
		for _, lg := range live {
			seen[lg.ID] = true
			out = upsertGroup(out, lg)
		}
		for i, g := range out.Groups {
			if hostKnown(g.ID) && !seen[g.ID] {
				out.Groups[i].IsGhost = true
			}
		}
		return out, true
	}, nil
}

func upsertGroup(s types.State, lg host.LiveGroup) types.State {
	if i := s.GroupIndex(lg.ID); i >= 0 {
		g := &s.Groups[i]
		if lg.Title != "" {
			g.Title = lg.Title
		}
		if lg.Color != "" {
			g.Color = lg.Color
		}
		g.Collapsed = lg.Collapsed
		g.IsGhost = false
		return s
	}
	s.Groups = append(s.Groups, types.Group{
		ID:        lg.ID,
		Title:     lg.Title,
		Color:     lg.Color.OrGrey(),
		Collapsed: lg.Collapsed,
		SpaceID:   types.DefaultSpaceID,
	})
	return s
}

func (h HostGroups) TabMoved(ctx context.Context, s types.State, tabID types.ID) (Mutation, error) {
	tab, ok := s.Tab(tabID)
	if !ok || tab.IsGhost {
		return nil, nil
	}
	if tab.InInbox() {
		if err := h.Host.UngroupTabs(ctx, []types.ID{tabID}); err != nil {
			return nil, fmt.Errorf("ungroup tab %s: %w", tabID, err)
		}
		return nil, nil
	}
	g, ok := s.Group(tab.GroupID)
	if !ok {
		return nil, nil
	}
	if hostKnown(g.ID) {
		if _, err := h.Host.GroupTabs(ctx, []types.ID{tabID}, g.ID); err != nil {
			return nil, fmt.Errorf("group tab %s: %w", tabID, err)
		}
		return nil, nil
	}

	hostID, err := h.Host.GroupTabs(ctx, []types.ID{tabID}, "")
	if err != nil {
		return nil, fmt.Errorf("group tab %s: %w", tabID, err)
	}
	title, color := g.Title, g.Color
	if err := h.Host.UpdateGroup(ctx, hostID, host.GroupUpdate{Title: &title, Color: &color}); err != nil {
		return nil, fmt.Errorf("update group %s: %w", hostID, err)
	}
	return func(s types.State) (types.State, bool) {
		next, ok := model.RekeyGroup(s, g.ID, hostID)
		if !ok {
			return s, false
		}
		next, _ = model.SetGroupGhost(next, hostID, false)
		return next, true
	}, nil
}

func (h HostGroups) GroupChanged(ctx context.Context, g types.Group) error {
	if !hostKnown(g.ID) || g.IsGhost {
		return nil
	}
	title, color, collapsed := g.Title, g.Color, g.Collapsed
	if err := h.Host.UpdateGroup(ctx, g.ID, host.GroupUpdate{Title: &title, Color: &color, Collapsed: &collapsed}); err != nil {
		return fmt.Errorf("update group %s: %w", g.ID, err)
	}
	return nil
}

func (h HostGroups) Event(ev host.Event) Mutation {
	switch ev.Kind {
	case host.GroupCreated, host.GroupUpdated:
		return func(s types.State) (types.State, bool) {
			return upsertGroup(s.Clone(), ev.Group), true
		}
	case host.GroupRemoved:
		return func(s types.State) (types.State, bool) {
			return model.SetGroupGhost(s, ev.GroupID, true)
		}
	}
	return nil
}
