package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/lotas/seitenleiste/internal/types"
)

// Memory is an in-process Host used for demo mode and tests. Every mutating
// call emits the matching event on Events(), in call order.
type Memory struct {
	mu     sync.Mutex
	tabs   []LiveTab
	groups []LiveGroup
	nextID int
	events chan Event

	// FailActivate makes ActivateTab fail for the listed ids once, even if
	// the tab exists, the way a host errors on a discarded tab.
	FailActivate map[types.ID]error
	// FailCreate makes every CreateTab call fail.
	FailCreate error
	// Calls records the host commands received, e.g. "create https://a".
	Calls []string
}

// NewMemory returns a host holding tabs, with host ids continuing after the
// largest integer id among them.
func NewMemory(tabs ...LiveTab) *Memory {
	m := &Memory{
		tabs:         append([]LiveTab(nil), tabs...),
		nextID:       100,
		events:       make(chan Event, 256),
		FailActivate: make(map[types.ID]error),
	}
	for _, t := range tabs {
		if n, ok := t.ID.Int(); ok && n >= m.nextID {
			m.nextID = n + 1
		}
	}
	return m
}

// NewDemo returns a host with a couple of familiar sites open.
func NewDemo() *Memory {
	return NewMemory(
		LiveTab{ID: "1", Title: "Google", URL: "https://google.com", FavIconURL: "https://www.google.com/favicon.ico", Active: true},
		LiveTab{ID: "2", Title: "GitHub", URL: "https://github.com", FavIconURL: "https://github.com/favicon.ico"},
	)
}

// Events returns the event stream.
func (m *Memory) Events() <-chan Event {
	return m.events
}

func (m *Memory) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

func (m *Memory) index(id types.ID) int {
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) QueryTabs(ctx context.Context) ([]LiveTab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LiveTab(nil), m.tabs...), nil
}

func (m *Memory) GetTab(ctx context.Context, id types.ID) (LiveTab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		return m.tabs[i], nil
	}
	return LiveTab{}, fmt.Errorf("get tab %s: %w", id, ErrTabNotFound)
}

func (m *Memory) CreateTab(ctx context.Context, url string, active bool) (LiveTab, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "create "+url)
	if m.FailCreate != nil {
		m.mu.Unlock()
		return LiveTab{}, m.FailCreate
	}
	tab := LiveTab{ID: types.IntID(m.nextID), URL: url, PendingURL: url, Title: url, Active: active}
	m.nextID++
	if active {
		for i := range m.tabs {
			m.tabs[i].Active = false
		}
	}
	m.tabs = append(m.tabs, tab)
	m.mu.Unlock()

	m.emit(Event{Kind: TabCreated, Tab: tab})
	if active {
		m.emit(Event{Kind: TabActivated, TabID: tab.ID})
	}
	return tab, nil
}

func (m *Memory) ActivateTab(ctx context.Context, id types.ID) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "activate "+string(id))
	if err, ok := m.FailActivate[id]; ok {
		delete(m.FailActivate, id)
		m.mu.Unlock()
		return err
	}
	i := m.index(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("activate tab %s: %w", id, ErrTabNotFound)
	}
	for j := range m.tabs {
		m.tabs[j].Active = j == i
	}
	m.mu.Unlock()

	m.emit(Event{Kind: TabActivated, TabID: id})
	return nil
}

func (m *Memory) RemoveTab(ctx context.Context, id types.ID) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "remove "+string(id))
	i := m.index(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("remove tab %s: %w", id, ErrTabNotFound)
	}
	m.tabs = append(m.tabs[:i:i], m.tabs[i+1:]...)
	m.mu.Unlock()

	m.emit(Event{Kind: TabRemoved, TabID: id})
	return nil
}

// Forget drops a tab without emitting an event, as when the host loses
// track of it across a crash.
func (m *Memory) Forget(id types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		m.tabs = append(m.tabs[:i:i], m.tabs[i+1:]...)
	}
}

// Navigate changes a tab's title and URL and emits tab.updated.
func (m *Memory) Navigate(id types.ID, title, url string) {
	m.mu.Lock()
	i := m.index(id)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.tabs[i].Title, m.tabs[i].URL = title, url
	tab := m.tabs[i]
	m.mu.Unlock()

	m.emit(Event{Kind: TabUpdated, TabID: id, Tab: tab})
}

// Open adds a tab the way a user would in the browser and emits tab.created.
func (m *Memory) Open(title, url string) LiveTab {
	m.mu.Lock()
	tab := LiveTab{ID: types.IntID(m.nextID), Title: title, URL: url}
	m.nextID++
	m.tabs = append(m.tabs, tab)
	m.mu.Unlock()

	m.emit(Event{Kind: TabCreated, Tab: tab})
	return tab
}

func (m *Memory) QueryGroups(ctx context.Context) ([]LiveGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LiveGroup(nil), m.groups...), nil
}

func (m *Memory) GroupTabs(ctx context.Context, tabIDs []types.ID, groupID types.ID) (types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if groupID == "" {
		groupID = types.IntID(m.nextID)
		m.nextID++
		m.groups = append(m.groups, LiveGroup{ID: groupID, Color: types.ColorGrey})
	}
	for _, id := range tabIDs {
		i := m.index(id)
		if i < 0 {
			return "", fmt.Errorf("group tab %s: %w", id, ErrTabNotFound)
		}
		m.tabs[i].HostGroupID = groupID
	}
	return groupID, nil
}

func (m *Memory) UngroupTabs(ctx context.Context, tabIDs []types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range tabIDs {
		if i := m.index(id); i >= 0 {
			m.tabs[i].HostGroupID = ""
		}
	}
	return nil
}

func (m *Memory) UpdateGroup(ctx context.Context, id types.ID, u GroupUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.groups {
		if m.groups[i].ID != id {
			continue
		}
		if u.Title != nil {
			m.groups[i].Title = *u.Title
		}
		if u.Color != nil {
			m.groups[i].Color = *u.Color
		}
		if u.Collapsed != nil {
			m.groups[i].Collapsed = *u.Collapsed
		}
		return nil
	}
	return fmt.Errorf("update group %s: not found", id)
}
