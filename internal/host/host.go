// Package host defines the contract with the browser's live tab system.
package host

import (
	"context"
	"errors"

	"github.com/lotas/seitenleiste/internal/types"
)

var (
	// ErrTabNotFound means the host does not know the tab id.
	ErrTabNotFound = errors.New("host: no tab with that id")
	// ErrNotConnected means there is no host to talk to.
	ErrNotConnected = errors.New("host: not connected")
)

// LiveTab is what the host reports about one of its tabs. It is kept apart
// from types.Tab because the host knows nothing about groups, sub-groups or
// spaces as the sidebar defines them.
type LiveTab struct {
	ID          types.ID
	Title       string
	URL         string
	PendingURL  string // URL being loaded; set on freshly created tabs
	FavIconURL  string
	Active      bool
	Discarded   bool     // unloaded by the host's memory saver
	HostGroupID types.ID // host-side group, ignored unless host groups are synced
}

// LiveGroup is a host-side tab group.
type LiveGroup struct {
	ID        types.ID
	Title     string
	Color     types.Color
	Collapsed bool
}

// GroupUpdate carries the fields to change on a host group.
type GroupUpdate struct {
	Title     *string
	Color     *types.Color
	Collapsed *bool
}

// Host is the live tab provider for the current window.
type Host interface {
	QueryTabs(ctx context.Context) ([]LiveTab, error)
	// GetTab returns ErrTabNotFound when the host forgot the id.
	GetTab(ctx context.Context, id types.ID) (LiveTab, error)
	CreateTab(ctx context.Context, url string, active bool) (LiveTab, error)
	ActivateTab(ctx context.Context, id types.ID) error
	RemoveTab(ctx context.Context, id types.ID) error
}

// GroupHost is the optional host-side group provider.
type GroupHost interface {
	QueryGroups(ctx context.Context) ([]LiveGroup, error)
	// GroupTabs adds tabs to groupID, or to a new group when groupID is empty,
	// and returns the group's id.
	GroupTabs(ctx context.Context, tabIDs []types.ID, groupID types.ID) (types.ID, error)
	UngroupTabs(ctx context.Context, tabIDs []types.ID) error
	UpdateGroup(ctx context.Context, id types.ID, u GroupUpdate) error
}

// EventKind names a host lifecycle event.
type EventKind string

const (
	TabCreated   EventKind = "tab.created"
	TabUpdated   EventKind = "tab.updated"
	TabRemoved   EventKind = "tab.removed"
	TabActivated EventKind = "tab.activated"
	GroupCreated EventKind = "group.created"
	GroupUpdated EventKind = "group.updated"
	GroupRemoved EventKind = "group.removed"
)

// Event is one host lifecycle notification.
type Event struct {
	Kind    EventKind
	Tab     LiveTab   // created, updated
	TabID   types.ID  // updated, removed, activated
	Group   LiveGroup // group created, updated
	GroupID types.ID  // group removed
}
