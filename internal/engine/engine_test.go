package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/ident"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

// memStore is an in-memory Store.
type memStore struct {
	mu    sync.Mutex
	snap  types.Snapshot
	saves int
	err   error
}

func newMemStore(tabs []types.Tab, groups []types.Group) *memStore {
	snap := types.DefaultSnapshot()
	snap.Tabs = append(snap.Tabs, tabs...)
	snap.Groups = append(snap.Groups, groups...)
	return &memStore{snap: snap}
}

func (m *memStore) Load(ctx context.Context) (types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memStore) Save(ctx context.Context, snap types.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.snap = snap
	return m.err
}

func counter() ident.Generator {
	n := 0
	return func() types.ID {
		n++
		return types.ID(fmt.Sprintf("local-%d", n))
	}
}

// drain feeds every queued host event to the engine.
func drain(e *Engine, m *host.Memory) {
	for {
		select {
		case ev := <-m.Events():
			e.HandleEvent(ev)
		default:
			return
		}
	}
}

func persisted() ([]types.Tab, []types.Group) {
	groups := []types.Group{{ID: "work", Title: "Work", Color: types.ColorRed, SpaceID: types.DefaultSpaceID}}
	tabs := []types.Tab{
		{ID: "1", Title: "Docs", URL: "https://docs.example", GroupID: "work", Subgroup: "ref", SpaceID: types.DefaultSpaceID, IsPinned: true},
		{ID: "7", Title: "Old", URL: "https://old.example", FavIconURL: "https://old.example/f.ico", GroupID: "work", SpaceID: types.DefaultSpaceID},
	}
	return tabs, groups
}

func setup(t *testing.T, opts Options) (*Engine, *host.Memory, *memStore) {
	t.Helper()
	tabs, groups := persisted()
	store := newMemStore(tabs, groups)
	h := host.NewMemory(
		host.LiveTab{ID: "1", Title: "Docs (live)", URL: "https://docs.example", HostGroupID: "55"},
		host.LiveTab{ID: "2", Title: "News", URL: "https://news.example", Active: true},
	)
	if opts.NewID == nil {
		opts.NewID = counter()
	}
	e := New(h, store, opts)
	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e, h, store
}

func TestInitMerge(t *testing.T) {
	e, _, store := setup(t, Options{})
	s := e.State()

	if len(s.Tabs) != 3 {
		t.Fatalf("got %d tabs, want 3", len(s.Tabs))
	}
	docs, _ := s.Tab("1")
	if docs.IsGhost || docs.Title != "Docs (live)" || docs.GroupID != "work" || docs.Subgroup != "ref" || !docs.IsPinned {
		t.Errorf("docs = %+v", docs)
	}
	old, _ := s.Tab("7")
	if !old.IsGhost || old.Title != "Old" || old.FavIconURL != "https://old.example/f.ico" {
		t.Errorf("old = %+v", old)
	}
	news, _ := s.Tab("2")
	if news.GroupID != types.InboxID || news.SpaceID != types.DefaultSpaceID || news.IsGhost {
		t.Errorf("news = %+v", news)
	}
	if s.ActiveTabID != "2" {
		t.Errorf("ActiveTabID = %q", s.ActiveTabID)
	}
	if store.saves == 0 || len(store.snap.Tabs) != 3 {
		t.Errorf("merge not persisted: saves=%d tabs=%d", store.saves, len(store.snap.Tabs))
	}
}

func TestInitTwiceIsIdempotent(t *testing.T) {
	e, h, store := setup(t, Options{})
	first := e.State()

	again := New(h, store, Options{NewID: counter()})
	if err := again.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := again.State()
	if fmt.Sprint(first.Tabs) != fmt.Sprint(second.Tabs) {
		t.Errorf("second merge differs:\n%+v\n%+v", first.Tabs, second.Tabs)
	}
}

func TestInitWithoutHostKeepsSnapshot(t *testing.T) {
	tabs, groups := persisted()
	e := New(nil, newMemStore(tabs, groups), Options{})
	if err := e.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, tab := range e.State().Tabs {
		if tab.IsGhost {
			t.Errorf("tab %s ghosted without a host", tab.ID)
		}
	}
}

func TestEvents(t *testing.T) {
	e, h, _ := setup(t, Options{})

	fresh := h.Open("Fresh", "https://fresh.example")
	h.Navigate("1", "Docs v2", "https://docs.example/v2")
	drain(e, h)

	s := e.State()
	got, ok := s.Tab(fresh.ID)
	if !ok || got.GroupID != types.InboxID || got.SpaceID != types.DefaultSpaceID || got.IsGhost {
		t.Errorf("created tab = %+v (found %v)", got, ok)
	}
	docs, _ := s.Tab("1")
	if docs.Title != "Docs v2" || docs.URL != "https://docs.example/v2" || docs.GroupID != "work" || docs.Subgroup != "ref" {
		t.Errorf("updated tab = %+v", docs)
	}

	e.HandleEvent(host.Event{Kind: host.TabRemoved, TabID: "2"})
	e.HandleEvent(host.Event{Kind: host.TabActivated, TabID: fresh.ID})
	s = e.State()
	if news, _ := s.Tab("2"); !news.IsGhost || news.Title != "News" {
		t.Errorf("removed tab = %+v", news)
	}
	if s.ActiveTabID != fresh.ID {
		t.Errorf("ActiveTabID = %q", s.ActiveTabID)
	}

	// A created event for a tab already in the model is absorbed.
	e.HandleEvent(host.Event{Kind: host.TabCreated, Tab: host.LiveTab{ID: "2", Title: "News again", URL: "https://news.example"}})
	s = e.State()
	if len(s.Tabs) != 4 {
		t.Errorf("got %d tabs, want 4", len(s.Tabs))
	}
	if news, _ := s.Tab("2"); news.IsGhost {
		t.Error("tab not revived by created event")
	}
}

func TestCloseVsRemove(t *testing.T) {
	e, h, _ := setup(t, Options{})
	ctx := context.Background()

	before := e.State()
	e.Close(ctx, "7")
	if fmt.Sprint(e.State().Tabs) != fmt.Sprint(before.Tabs) {
		t.Error("closing a ghost changed the model")
	}

	e.Close(ctx, "2")
	drain(e, h)
	if news, ok := e.State().Tab("2"); !ok || !news.IsGhost {
		t.Errorf("closed live tab = %+v (present %v)", news, ok)
	}
	if _, err := h.GetTab(ctx, "2"); !errors.Is(err, host.ErrTabNotFound) {
		t.Errorf("host still has tab 2: %v", err)
	}

	e.Remove(ctx, "7")
	if _, ok := e.State().Tab("7"); ok {
		t.Error("removed ghost still present")
	}

	calls := len(h.Calls)
	e.Remove(ctx, "1")
	drain(e, h)
	if _, ok := e.State().Tab("1"); ok {
		t.Error("removed live tab still present")
	}
	if len(h.Calls) != calls+1 || h.Calls[calls] != "remove 1" {
		t.Errorf("host calls = %v", h.Calls[calls:])
	}

	// Removing a tab the host already lost is still a clean delete.
	e.HandleEvent(host.Event{Kind: host.TabCreated, Tab: host.LiveTab{ID: "99", URL: "https://x.example"}})
	e.Remove(ctx, "99")
	if _, ok := e.State().Tab("99"); ok {
		t.Error("tab 99 still present")
	}
}

func TestActivateLive(t *testing.T) {
	e, h, _ := setup(t, Options{})
	e.Activate(context.Background(), "1")
	if e.State().ActiveTabID != "1" {
		t.Errorf("ActiveTabID = %q", e.State().ActiveTabID)
	}
	for _, c := range h.Calls {
		if c == "create https://docs.example" {
			t.Error("live tab was re-created")
		}
	}
}

func TestActivateGhostRecreatesInPlace(t *testing.T) {
	e, h, _ := setup(t, Options{})
	e.Activate(context.Background(), "7")
	drain(e, h)

	s := e.State()
	if len(s.Tabs) != 3 {
		t.Fatalf("got %d tabs, want 3: %+v", len(s.Tabs), s.Tabs)
	}
	row := s.Tabs[1]
	if row.ID == "7" || row.IsGhost || row.GroupID != "work" || row.URL != "https://old.example" {
		t.Errorf("re-created row = %+v", row)
	}
	if s.ActiveTabID != row.ID {
		t.Errorf("ActiveTabID = %q, want %q", s.ActiveTabID, row.ID)
	}
}

// eagerHost delivers the created event before CreateTab returns, the way a
// fast browser does.
type eagerHost struct {
	*host.Memory
	e *Engine
}

func (h *eagerHost) CreateTab(ctx context.Context, url string, active bool) (host.LiveTab, error) {
	tab, err := h.Memory.CreateTab(ctx, url, active)
	drain(h.e, h.Memory)
	return tab, err
}

func TestRecreateWithEarlyCreatedEvent(t *testing.T) {
	tabs, groups := persisted()
	mem := host.NewMemory(host.LiveTab{ID: "1", URL: "https://docs.example"})
	eh := &eagerHost{Memory: mem}
	e := New(eh, newMemStore(tabs, groups), Options{NewID: counter()})
	eh.e = e
	if err := e.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	e.Activate(context.Background(), "7")
	drain(e, mem)

	s := e.State()
	if len(s.Tabs) != 2 {
		t.Fatalf("duplicate append: %+v", s.Tabs)
	}
	if row := s.Tabs[1]; row.IsGhost || row.ID == "7" || row.GroupID != "work" {
		t.Errorf("row = %+v", row)
	}
	e.mu.Lock()
	pending := len(e.pending)
	e.mu.Unlock()
	if pending != 0 {
		t.Errorf("%d re-creations still pending", pending)
	}
}

func TestActivateStaleIDRecreates(t *testing.T) {
	e, h, _ := setup(t, Options{})
	h.Forget("1")

	e.Activate(context.Background(), "1")
	drain(e, h)

	s := e.State()
	if len(s.Tabs) != 3 {
		t.Fatalf("got %d tabs", len(s.Tabs))
	}
	row := s.Tabs[0]
	if row.ID == "1" || row.IsGhost || row.GroupID != "work" || row.Subgroup != "ref" || !row.IsPinned {
		t.Errorf("row = %+v", row)
	}
}

func TestActivateDiscardedTabIsNotRecreated(t *testing.T) {
	e, h, _ := setup(t, Options{})
	h.FailActivate["1"] = errors.New("tab is discarded")

	e.Activate(context.Background(), "1")
	drain(e, h)

	s := e.State()
	if s.ActiveTabID != "1" {
		t.Errorf("ActiveTabID = %q", s.ActiveTabID)
	}
	if tab, _ := s.Tab("1"); tab.IsGhost {
		t.Error("discarded tab ghosted")
	}
	for _, c := range h.Calls {
		if c == "create https://docs.example" {
			t.Error("discarded tab re-created")
		}
	}
}

func TestRecreateFailureLeavesGhost(t *testing.T) {
	e, h, _ := setup(t, Options{})
	h.FailCreate = errors.New("window closed")

	e.Activate(context.Background(), "7")
	tab, ok := e.State().Tab("7")
	if !ok || !tab.IsGhost {
		t.Errorf("tab = %+v (present %v)", tab, ok)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) != 0 {
		t.Error("failed re-creation left pending entry")
	}
}

func TestActivateWithoutHost(t *testing.T) {
	tabs, groups := persisted()
	e := New(nil, newMemStore(tabs, groups), Options{})
	if err := e.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.Activate(context.Background(), "7")
	if e.State().ActiveTabID != "7" {
		t.Errorf("ActiveTabID = %q", e.State().ActiveTabID)
	}
}

func TestSubscribe(t *testing.T) {
	e, _, _ := setup(t, Options{})
	ch, cancel := e.Subscribe(4)

	e.TogglePin("2")
	select {
	case s := <-ch:
		if tab, _ := s.Tab("2"); !tab.IsPinned {
			t.Error("notified state missing the pin")
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel not closed after cancel")
	}
	e.TogglePin("2")
}

func TestRun(t *testing.T) {
	e, _, _ := setup(t, Options{})
	events := make(chan host.Event, 1)
	events <- host.Event{Kind: host.TabRemoved, TabID: "2"}
	close(events)

	if err := e.Run(context.Background(), events); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tab, _ := e.State().Tab("2"); !tab.IsGhost {
		t.Error("event not applied")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx, make(chan host.Event)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run after cancel = %v", err)
	}
}

func TestOrganizationOps(t *testing.T) {
	e, _, store := setup(t, Options{})
	ctx := context.Background()

	gid, ok := e.ChangeTabGroup(ctx, "2", model.TargetNew, "Reading")
	if !ok || gid == "" {
		t.Fatalf("ChangeTabGroup = %q, %v", gid, ok)
	}
	if !e.SetTabSubgroup("2", "morning") || !e.ToggleGroupCollapse(ctx, gid) || !e.ToggleGroupAutoGroup(gid) {
		t.Fatal("group ops rejected")
	}
	g, _ := e.State().Group(gid)
	if !g.Collapsed || !g.AutoGroup || g.Title != "Reading" {
		t.Errorf("group = %+v", g)
	}
	if on := e.ToggleInboxAutoGroup(); on {
		t.Error("inbox auto-group should flip to false")
	}

	sp, ok := e.AddSpace(types.ColorGreen)
	if !ok {
		t.Fatal("AddSpace rejected")
	}
	if _, ok := e.AddSpace(types.ColorGreen); ok {
		t.Error("duplicate color accepted")
	}
	if !e.MoveGroupToSpace(gid, sp.ID) || !e.SetActiveSpace(sp.ID) {
		t.Fatal("space ops rejected")
	}
	empty := e.AddGroupToSpace(sp.ID)
	if !empty.IsGhost || empty.SpaceID != sp.ID {
		t.Errorf("added group = %+v", empty)
	}
	v := e.View()
	if len(v.Sections) != 3 {
		t.Errorf("view sections = %d, want inbox + 2", len(v.Sections))
	}

	if !e.RemoveSpace(sp.ID) {
		t.Fatal("RemoveSpace rejected")
	}
	if e.State().ActiveSpaceID != types.DefaultSpaceID {
		t.Error("active space not reset")
	}
	if !e.RemoveGroup(gid) {
		t.Fatal("RemoveGroup rejected")
	}
	if tab, _ := e.State().Tab("2"); tab.GroupID != types.InboxID || tab.Subgroup != "" {
		t.Errorf("tab after group removal = %+v", tab)
	}
	if n := e.ClearGhosts(); n != 1 {
		t.Errorf("ClearGhosts = %d, want 1", n)
	}
	if len(store.snap.Tabs) != len(e.State().Tabs) {
		t.Error("store out of date")
	}
}

func TestExportImportThroughEngine(t *testing.T) {
	e, _, _ := setup(t, Options{})
	p := e.Export(time.Now())

	fresh := New(nil, newMemStore(nil, nil), Options{NewID: counter()})
	if err := fresh.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	res := fresh.Import(p)
	if res.AddedGroups != 1 || res.AddedTabs != 3 {
		t.Errorf("import = %+v", res)
	}
	if res := fresh.Import(p); res.AddedGroups != 0 || res.AddedTabs != 0 {
		t.Errorf("second import = %+v", res)
	}
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	e, _, store := setup(t, Options{})
	store.mu.Lock()
	store.err = errors.New("disk full")
	store.mu.Unlock()
	if !e.TogglePin("2") {
		t.Error("mutation rejected on save failure")
	}
	if tab, _ := e.State().Tab("2"); !tab.IsPinned {
		t.Error("state not updated")
	}
}

// downHost fails every tab query.
type downHost struct {
	*host.Memory
}

func (downHost) QueryTabs(ctx context.Context) ([]host.LiveTab, error) {
	return nil, host.ErrNotConnected
}

func TestEventsBeforeInitDoNotTouchStore(t *testing.T) {
	tabs, groups := persisted()
	tests := []struct {
		name string
		host host.Host
		init bool
	}{
		{"no init", host.NewMemory(), false},
		{"failed init", downHost{host.NewMemory()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(tabs, groups)
			e := New(tt.host, store, Options{NewID: counter()})
			if tt.init {
				if err := e.Init(context.Background()); err == nil {
					t.Fatal("Init succeeded against a failing host")
				}
			}

			e.HandleEvent(host.Event{Kind: host.TabActivated, TabID: "1"})
			e.HandleEvent(host.Event{Kind: host.TabRemoved, TabID: "7"})
			if e.TogglePin("7") {
				t.Error("edit applied before Init")
			}

			store.mu.Lock()
			defer store.mu.Unlock()
			if store.saves != 0 {
				t.Errorf("saves = %d, want 0", store.saves)
			}
			if len(store.snap.Tabs) != 2 || len(store.snap.Groups) != 1 {
				t.Errorf("store has %d tabs, %d groups", len(store.snap.Tabs), len(store.snap.Groups))
			}
		})
	}
}

func TestInitAfterEarlyEventKeepsMetadata(t *testing.T) {
	tabs, groups := persisted()
	store := newMemStore(tabs, groups)
	h := host.NewMemory(host.LiveTab{ID: "1", Title: "Docs", URL: "https://docs.example"})
	e := New(h, store, Options{NewID: counter()})

	e.HandleEvent(host.Event{Kind: host.TabActivated, TabID: "1"})
	if err := e.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := e.State()
	if _, ok := s.Group("work"); !ok {
		t.Error("user group lost")
	}
	tab, ok := s.Tab("1")
	if !ok || tab.GroupID != "work" || !tab.IsPinned {
		t.Errorf("tab 1 = %+v, found %v", tab, ok)
	}
	if _, ok := s.Tab("7"); !ok {
		t.Error("ghost 7 lost")
	}
}
