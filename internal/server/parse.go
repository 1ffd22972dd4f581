package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/types"
)

type wireTab struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	PendingURL string `json:"pendingUrl"`
	FavIconURL string `json:"favIconUrl"`
	Active     bool   `json:"active"`
	Discarded  bool   `json:"discarded"`
	GroupID    int    `json:"groupId"`
}

type wireGroup struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

func (wt wireTab) live() host.LiveTab {
	t := host.LiveTab{
		ID:         types.IntID(wt.ID),
		Title:      wt.Title,
		URL:        wt.URL,
		PendingURL: wt.PendingURL,
		FavIconURL: wt.FavIconURL,
		Active:     wt.Active,
		Discarded:  wt.Discarded,
	}
	// The browser reports -1 for ungrouped tabs.
	if wt.GroupID > 0 {
		t.HostGroupID = types.IntID(wt.GroupID)
	}
	return t
}

func (wg wireGroup) live() host.LiveGroup {
	return host.LiveGroup{
		ID:        types.IntID(wg.ID),
		Title:     wg.Title,
		Color:     types.Color(wg.Color),
		Collapsed: wg.Collapsed,
	}
}

// ParseTab converts a raw JSON tab into a LiveTab.
func ParseTab(raw json.RawMessage) (host.LiveTab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return host.LiveTab{}, fmt.Errorf("parse tab: %w", err)
	}
	return wt.live(), nil
}

// ParseTabs converts a raw JSON tab list.
func ParseTabs(raw json.RawMessage) ([]host.LiveTab, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wts []wireTab
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]host.LiveTab, 0, len(wts))
	for _, wt := range wts {
		tabs = append(tabs, wt.live())
	}
	return tabs, nil
}

// ParseGroup converts a raw JSON tab group.
func ParseGroup(raw json.RawMessage) (host.LiveGroup, error) {
	var wg wireGroup
	if err := json.Unmarshal(raw, &wg); err != nil {
		return host.LiveGroup{}, fmt.Errorf("parse group: %w", err)
	}
	return wg.live(), nil
}

// ParseGroups converts a raw JSON tab group list.
func ParseGroups(raw json.RawMessage) ([]host.LiveGroup, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wgs []wireGroup
	if err := json.Unmarshal(raw, &wgs); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	groups := make([]host.LiveGroup, 0, len(wgs))
	for _, wg := range wgs {
		groups = append(groups, wg.live())
	}
	return groups, nil
}

// ParseEvent converts an event message into a host.Event.
func ParseEvent(msg IncomingMsg) (host.Event, error) {
	ev := host.Event{Kind: host.EventKind(msg.Type)}
	switch ev.Kind {
	case host.TabCreated, host.TabUpdated:
		if len(msg.Tab) == 0 {
			return ev, fmt.Errorf("%s without tab", msg.Type)
		}
		tab, err := ParseTab(msg.Tab)
		if err != nil {
			return ev, err
		}
		ev.Tab = tab
		ev.TabID = tab.ID
		if msg.TabID != 0 {
			ev.TabID = types.IntID(msg.TabID)
			ev.Tab.ID = ev.TabID
		}
	case host.TabRemoved, host.TabActivated:
		if msg.TabID == 0 {
			return ev, fmt.Errorf("%s without tabId", msg.Type)
		}
		ev.TabID = types.IntID(msg.TabID)
	case host.GroupCreated, host.GroupUpdated:
		g, err := ParseGroup(msg.Group)
		if err != nil {
			return ev, err
		}
		ev.Group = g
		ev.GroupID = g.ID
	case host.GroupRemoved:
		ev.GroupID = types.IntID(msg.GroupID)
	default:
		return ev, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return ev, nil
}

// responseError maps an extension error string onto the host sentinels.
func responseError(text string) error {
	if text == "" {
		text = "command failed"
	}
	if strings.Contains(strings.ToLower(text), "no tab with id") {
		return fmt.Errorf("%s: %w", text, host.ErrTabNotFound)
	}
	return errors.New(text)
}
