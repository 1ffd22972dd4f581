package types

// Tab represents one browser tab, live or remembered.
type Tab struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	FavIconURL string `json:"favIconUrl,omitempty"`
	IsGhost    bool   `json:"isGhost"`
	IsPinned   bool   `json:"isPinned"`
	GroupID    ID     `json:"groupId"`            // InboxID if ungrouped
	Subgroup   string `json:"subgroup,omitempty"` // free-text label within the group
	SpaceID    ID     `json:"spaceId"`
}

// InInbox reports whether the tab belongs to no named group.
func (t Tab) InInbox() bool {
	return t.GroupID == "" || t.GroupID == InboxID
}

// Group is a named, colored collection of tabs.
type Group struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	Color     Color  `json:"color"`
	Collapsed bool   `json:"collapsed"`
	IsGhost   bool   `json:"isGhost"`
	SpaceID   ID     `json:"spaceId"`
	AutoGroup bool   `json:"autoGroup"` // split tabs by host name when rendering
}

// Space is a top-level partition of groups.
type Space struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	Color Color  `json:"color"`
}

const (
	// InboxID is the groupId sentinel for tabs without a named group.
	InboxID ID = "-1"
	// DefaultSpaceID is the permanent space that can never be deleted.
	DefaultSpaceID ID = "default"
	// MaxSpaces caps the number of spaces, the default one included.
	MaxSpaces = 4
)

// DefaultSpace returns the permanent default space.
func DefaultSpace() Space {
	return Space{ID: DefaultSpaceID, Title: "Default", Color: ColorBlue}
}

// Snapshot is the persisted form of the model.
type Snapshot struct {
	Tabs           []Tab
	Groups         []Group
	Spaces         []Space
	ActiveSpaceID  ID
	InboxAutoGroup bool
}

// DefaultSnapshot is what an empty store loads as.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Tabs:           []Tab{},
		Groups:         []Group{},
		Spaces:         []Space{DefaultSpace()},
		ActiveSpaceID:  DefaultSpaceID,
		InboxAutoGroup: true,
	}
}

// State is the full in-memory model. Values are treated as immutable:
// every mutation produces a new State with freshly allocated slices.
type State struct {
	Tabs           []Tab
	Groups         []Group
	Spaces         []Space
	ActiveSpaceID  ID
	ActiveTabID    ID // empty when no tab is active
	InboxAutoGroup bool
}

// NewState builds a State from a persisted snapshot.
func NewState(s Snapshot) State {
	return State{
		Tabs:           append([]Tab(nil), s.Tabs...),
		Groups:         append([]Group(nil), s.Groups...),
		Spaces:         append([]Space(nil), s.Spaces...),
		ActiveSpaceID:  s.ActiveSpaceID,
		InboxAutoGroup: s.InboxAutoGroup,
	}
}

// Snapshot returns the persisted subset of the state.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Tabs:           append([]Tab{}, s.Tabs...),
		Groups:         append([]Group{}, s.Groups...),
		Spaces:         append([]Space{}, s.Spaces...),
		ActiveSpaceID:  s.ActiveSpaceID,
		InboxAutoGroup: s.InboxAutoGroup,
	}
}

// Clone returns a deep copy whose slices share nothing with s.
func (s State) Clone() State {
	c := s
	c.Tabs = append([]Tab(nil), s.Tabs...)
	c.Groups = append([]Group(nil), s.Groups...)
	c.Spaces = append([]Space(nil), s.Spaces...)
	return c
}

// TabIndex returns the index of the tab with the given id, or -1.
func (s State) TabIndex(id ID) int {
	for i, t := range s.Tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// GroupIndex returns the index of the group with the given id, or -1.
func (s State) GroupIndex(id ID) int {
	for i, g := range s.Groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// SpaceIndex returns the index of the space with the given id, or -1.
func (s State) SpaceIndex(id ID) int {
	for i, sp := range s.Spaces {
		if sp.ID == id {
			return i
		}
	}
	return -1
}

// Tab looks up a tab by id.
func (s State) Tab(id ID) (Tab, bool) {
	if i := s.TabIndex(id); i >= 0 {
		return s.Tabs[i], true
	}
	return Tab{}, false
}

// Group looks up a group by id.
func (s State) Group(id ID) (Group, bool) {
	if i := s.GroupIndex(id); i >= 0 {
		return s.Groups[i], true
	}
	return Group{}, false
}
