// Package engine keeps the local sidebar model consistent with the browser's
// live tabs. It owns the only mutable copy of the state; callers get
// snapshots and change notifications.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/seitenleiste/internal/applog"
	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/ident"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/transfer"
	"github.com/lotas/seitenleiste/internal/types"
)

// Store persists snapshots. storage.Store satisfies it.
type Store interface {
	Load(ctx context.Context) (types.Snapshot, error)
	Save(ctx context.Context, snap types.Snapshot) error
}

// Options configures an Engine. The zero value uses local-only groups and
// random ids.
type Options struct {
	Groups GroupSync
	NewID  ident.Generator
}

// recreation is one in-flight reopen of a ghost tab.
type recreation struct {
	oldID types.ID
	url   string
	newID types.ID // set once a created event was matched to it
}

// Engine is the reconciliation engine.
type Engine struct {
	host   host.Host // nil when running without a browser
	store  Store
	groups GroupSync
	newID  ident.Generator

	mu      sync.Mutex
	ready   bool // set by the first successful Init
	state   types.State
	pending []*recreation
	subs    map[int]chan types.State
	nextSub int
}

// New returns an engine over h and store. h may be nil, in which case the
// engine only edits the persisted model.
func New(h host.Host, store Store, opts Options) *Engine {
	if opts.Groups == nil {
		opts.Groups = LocalGroups{}
	}
	if opts.NewID == nil {
		opts.NewID = ident.New
	}
	return &Engine{
		host:   h,
		store:  store,
		groups: opts.Groups,
		newID:  opts.NewID,
		state:  types.NewState(types.DefaultSnapshot()),
		subs:   make(map[int]chan types.State),
	}
}

// Init loads the snapshot and merges it with the host's live tabs. Until it
// succeeds once, events and edits are dropped and nothing is saved. Calling
// it again after a reconnect re-runs the merge.
func (e *Engine) Init(ctx context.Context) error {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	s := types.NewState(snap)

	if e.host != nil {
		live, err := e.host.QueryTabs(ctx)
		if err != nil {
			return fmt.Errorf("query tabs: %w", err)
		}
		s.Tabs, s.ActiveTabID = model.Merge(s.Tabs, live)
		applog.Info("engine.init", "persisted", len(snap.Tabs), "live", len(live), "tabs", len(s.Tabs))
	}

	e.mu.Lock()
	e.ready = true
	e.commit(s)
	e.mu.Unlock()

	if e.host != nil {
		m, err := e.groups.Discover(ctx)
		if err != nil {
			applog.Error("engine.groups.discover", err)
		} else if m != nil {
			e.apply(m)
		}
	}
	return nil
}

// State returns the current state. Callers must not modify its slices.
func (e *Engine) State() types.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// View returns the render tree of the active space.
func (e *Engine) View() model.View {
	return model.ItemsToRender(e.State())
}

// Subscribe returns a channel receiving every new state and a function that
// ends the subscription. Slow subscribers miss intermediate states rather
// than blocking the engine.
func (e *Engine) Subscribe(buf int) (<-chan types.State, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan types.State, buf)
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(ch)
		})
	}
}

// commit installs s, persists it and notifies subscribers. e.mu must be held.
func (e *Engine) commit(s types.State) {
	e.state = s
	if err := e.store.Save(context.Background(), s.Snapshot()); err != nil {
		applog.Error("engine.save", err)
	}
	for _, ch := range e.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// apply runs m under the lock and commits the result if it changed anything.
// Before Init the state is a placeholder, so nothing is applied.
func (e *Engine) apply(m Mutation) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		applog.Warn("engine.not_ready", nil)
		return false
	}
	next, ok := m(e.state)
	if ok {
		e.commit(next)
	}
	return ok
}

// Run dispatches host events one at a time until events closes or ctx ends.
func (e *Engine) Run(ctx context.Context, events <-chan host.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.HandleEvent(ev)
		}
	}
}

// HandleEvent applies a single host event to the model.
func (e *Engine) HandleEvent(ev host.Event) {
	switch ev.Kind {
	case host.TabCreated:
		e.apply(func(s types.State) (types.State, bool) {
			if p := e.matchPending(ev.Tab); p != nil {
				if next, ok := model.Replace(s, p.oldID, ev.Tab); ok {
					p.newID = ev.Tab.ID
					return next, true
				}
			}
			return model.ApplyCreated(s, ev.Tab), true
		})
	case host.TabUpdated:
		live := ev.Tab
		if live.ID == "" {
			live.ID = ev.TabID
		}
		e.apply(func(s types.State) (types.State, bool) {
			return model.ApplyUpdated(s, live)
		})
	case host.TabRemoved:
		e.apply(func(s types.State) (types.State, bool) {
			return model.MarkGhost(s, ev.TabID)
		})
	case host.TabActivated:
		e.apply(func(s types.State) (types.State, bool) {
			return model.SetActiveTab(s, ev.TabID), true
		})
	case host.GroupCreated, host.GroupUpdated, host.GroupRemoved:
		if m := e.groups.Event(ev); m != nil {
			e.apply(m)
		}
	default:
		applog.Warn("engine.event.unknown", nil, "kind", string(ev.Kind))
	}
}

// matchPending finds the unmatched re-creation a created event belongs to.
// e.mu must be held.
func (e *Engine) matchPending(live host.LiveTab) *recreation {
	for _, p := range e.pending {
		if p.newID != "" || p.url == "" {
			continue
		}
		if live.URL == p.url || live.PendingURL == p.url {
			return p
		}
	}
	return nil
}

// Activate focuses a tab, reopening it when it is a ghost or the host has
// forgotten it. Host failures never surface; the tab ends up live or ghost.
func (e *Engine) Activate(ctx context.Context, tabID types.ID) {
	tab, ok := e.State().Tab(tabID)
	if !ok {
		return
	}
	if e.host == nil {
		e.apply(func(s types.State) (types.State, bool) { return model.SetActiveTab(s, tabID), true })
		return
	}
	if tab.IsGhost {
		e.recreate(ctx, tab)
		return
	}

	err := e.host.ActivateTab(ctx, tabID)
	if err == nil {
		e.apply(func(s types.State) (types.State, bool) { return model.SetActiveTab(s, tabID), true })
		return
	}
	applog.Warn("engine.activate", err, "tab", tabID)

	// A discarded tab can refuse activation while still existing.
	if _, gerr := e.host.GetTab(ctx, tabID); gerr == nil {
		if err := e.host.ActivateTab(ctx, tabID); err == nil {
			e.apply(func(s types.State) (types.State, bool) { return model.SetActiveTab(s, tabID), true })
			return
		}
	}

	e.apply(func(s types.State) (types.State, bool) { return model.MarkGhost(s, tabID) })
	e.recreate(ctx, tab)
}

func (e *Engine) recreate(ctx context.Context, tab types.Tab) {
	if tab.URL == "" {
		applog.Warn("engine.recreate.no_url", nil, "tab", tab.ID)
		return
	}
	p := &recreation{oldID: tab.ID, url: tab.URL}
	e.mu.Lock()
	e.pending = append(e.pending, p)
	e.mu.Unlock()

	start := time.Now()
	live, err := e.host.CreateTab(ctx, tab.URL, true)

	e.apply(func(s types.State) (types.State, bool) {
		e.dropPending(p)
		if err != nil {
			return s, false
		}
		id := p.oldID
		if p.newID != "" {
			id = p.newID
		}
		return model.Replace(s, id, live)
	})
	if err != nil {
		applog.Error("engine.recreate", err, "tab", tab.ID, "url", tab.URL)
		return
	}
	applog.Info("engine.recreate", "old", tab.ID, "new", live.ID, "early_event", p.newID != "", "took", time.Since(start).Round(time.Millisecond))
}

// dropPending removes p. e.mu must be held.
func (e *Engine) dropPending(p *recreation) {
	for i, q := range e.pending {
		if q == p {
			e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
			return
		}
	}
}

// Close asks the host to close a live tab, retiring it into a ghost. Ghosts
// and unknown tabs are left alone.
func (e *Engine) Close(ctx context.Context, tabID types.ID) {
	tab, ok := e.State().Tab(tabID)
	if !ok || tab.IsGhost || e.host == nil {
		return
	}
	if err := e.host.RemoveTab(ctx, tabID); err != nil {
		applog.Error("engine.close", err, "tab", tabID)
	}
	e.apply(func(s types.State) (types.State, bool) { return model.MarkGhost(s, tabID) })
}

// Remove deletes a tab from the model, closing it on the host if it is live.
func (e *Engine) Remove(ctx context.Context, tabID types.ID) {
	tab, ok := e.State().Tab(tabID)
	if !ok {
		return
	}
	e.apply(func(s types.State) (types.State, bool) { return model.RemoveTab(s, tabID) })
	if tab.IsGhost || e.host == nil {
		return
	}
	if err := e.host.RemoveTab(ctx, tabID); err != nil {
		applog.Info("engine.remove.host", "tab", tabID, "err", err.Error())
	}
}

// ClearGhosts drops every ghost tab and returns how many went.
func (e *Engine) ClearGhosts() int {
	var n int
	e.apply(func(s types.State) (types.State, bool) {
		var next types.State
		next, n = model.ClearGhosts(s)
		return next, n > 0
	})
	return n
}

// SetTitles applies fetched titles to ghost tabs. urls holds the URL each
// title was fetched for.
func (e *Engine) SetTitles(urls, titles map[types.ID]string) int {
	var n int
	e.apply(func(s types.State) (types.State, bool) {
		var next types.State
		next, n = model.SetTitles(s, urls, titles)
		return next, n > 0
	})
	return n
}

// TogglePin pins or unpins a tab.
func (e *Engine) TogglePin(tabID types.ID) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.TogglePin(s, tabID) })
}

// SetTabSubgroup files a tab under a sub-group label; an empty name clears it.
func (e *Engine) SetTabSubgroup(tabID types.ID, name string) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.SetTabSubgroup(s, tabID, name) })
}

// ToggleGroupCollapse flips a group's collapsed state and mirrors it on the
// host group when there is one.
func (e *Engine) ToggleGroupCollapse(ctx context.Context, groupID types.ID) bool {
	if !e.apply(func(s types.State) (types.State, bool) { return model.ToggleGroupCollapse(s, groupID) }) {
		return false
	}
	e.pushGroup(ctx, groupID)
	return true
}

func (e *Engine) pushGroup(ctx context.Context, groupID types.ID) {
	g, ok := e.State().Group(groupID)
	if !ok {
		return
	}
	if err := e.groups.GroupChanged(ctx, g); err != nil {
		applog.Error("engine.group.push", err, "group", groupID)
	}
}

// ToggleGroupAutoGroup flips host-name bucketing for a group.
func (e *Engine) ToggleGroupAutoGroup(groupID types.ID) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.ToggleGroupAutoGroup(s, groupID) })
}

// ToggleInboxAutoGroup flips the Inbox's auto-group flag and returns the new
// value.
func (e *Engine) ToggleInboxAutoGroup() bool {
	var on bool
	e.apply(func(s types.State) (types.State, bool) {
		on = !s.InboxAutoGroup
		return model.SetInboxAutoGroup(s, on), true
	})
	return on
}

// SetInboxAutoGroup sets the Inbox's auto-group flag.
func (e *Engine) SetInboxAutoGroup(on bool) {
	e.apply(func(s types.State) (types.State, bool) {
		return model.SetInboxAutoGroup(s, on), s.InboxAutoGroup != on
	})
}

// ChangeTabGroup moves a tab; see model.ChangeTabGroup for the targets. It
// returns the resolved group id, or false when nothing changed.
func (e *Engine) ChangeTabGroup(ctx context.Context, tabID, target types.ID, title string) (types.ID, bool) {
	var gid types.ID
	ok := e.apply(func(s types.State) (types.State, bool) {
		var next types.State
		var changed bool
		next, gid, changed = model.ChangeTabGroup(s, tabID, target, title, e.newID)
		return next, changed
	})
	if !ok {
		return "", false
	}
	m, err := e.groups.TabMoved(ctx, e.State(), tabID)
	if err != nil {
		applog.Error("engine.group.move", err, "tab", tabID, "group", gid)
		return gid, true
	}
	if m != nil {
		e.apply(m)
		if t, found := e.State().Tab(tabID); found {
			gid = t.GroupID
		}
	}
	return gid, true
}

// UpdateGroup renames or recolors a group.
func (e *Engine) UpdateGroup(ctx context.Context, groupID types.ID, u model.GroupUpdate) bool {
	if !e.apply(func(s types.State) (types.State, bool) { return model.UpdateGroup(s, groupID, u) }) {
		return false
	}
	e.pushGroup(ctx, groupID)
	return true
}

// RemoveGroup deletes a group, sending its tabs to the Inbox.
func (e *Engine) RemoveGroup(groupID types.ID) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.RemoveGroup(s, groupID) })
}

// MoveGroupToSpace reassigns a group to another space.
func (e *Engine) MoveGroupToSpace(groupID, spaceID types.ID) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.MoveGroupToSpace(s, groupID, spaceID) })
}

// AddGroupToSpace creates an empty ghost group in the space.
func (e *Engine) AddGroupToSpace(spaceID types.ID) types.Group {
	var g types.Group
	e.apply(func(s types.State) (types.State, bool) {
		var next types.State
		next, g = model.AddGroupToSpace(s, spaceID, e.newID)
		return next, true
	})
	return g
}

// AddSpace creates a space of the given color. It fails at capacity or on a
// color already in use.
func (e *Engine) AddSpace(color types.Color) (types.Space, bool) {
	var sp types.Space
	ok := e.apply(func(s types.State) (types.State, bool) {
		var next types.State
		var added bool
		next, sp, added = model.AddSpace(s, color, e.newID)
		return next, added
	})
	return sp, ok
}

// RemoveSpace deletes a non-default space, folding its groups into the
// default space.
func (e *Engine) RemoveSpace(spaceID types.ID) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.RemoveSpace(s, spaceID) })
}

// UpdateSpace renames or recolors a space.
func (e *Engine) UpdateSpace(spaceID types.ID, u model.SpaceUpdate) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.UpdateSpace(s, spaceID, u) })
}

// SetActiveSpace switches the visible space.
func (e *Engine) SetActiveSpace(spaceID types.ID) bool {
	return e.apply(func(s types.State) (types.State, bool) { return model.SetActiveSpace(s, spaceID) })
}

// Export snapshots the model in the export file format.
func (e *Engine) Export(now time.Time) transfer.Payload {
	return transfer.Export(e.State(), now)
}

// Import merges a decoded export file into the model.
func (e *Engine) Import(p transfer.Payload) transfer.Result {
	var res transfer.Result
	e.apply(func(s types.State) (types.State, bool) {
		var next types.State
		next, res = transfer.Import(s, p, e.newID)
		return next, true
	})
	applog.Info("engine.import", "added_groups", res.AddedGroups, "added_tabs", res.AddedTabs,
		"skipped_groups", res.SkippedGroups, "skipped_tabs", res.SkippedTabs)
	return res
}
