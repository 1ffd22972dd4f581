package model

import (
	"net/url"
	"strings"

	"github.com/lotas/seitenleiste/internal/types"
)

// InboxTitle is the display title of the Inbox section.
const InboxTitle = "Inbox"

// Bucket is one display partition of a section. Label is the sub-group or
// host name; the empty label holds tabs with neither.
type Bucket struct {
	Label string
	Tabs  []types.Tab
}

// Section is the Inbox or one group, as rendered.
type Section struct {
	Group   types.Group // Group.ID is types.InboxID for the Inbox
	Buckets []Bucket
	Count   int
}

// IsInbox reports whether the section is the Inbox.
func (s Section) IsInbox() bool {
	return s.Group.ID == types.InboxID
}

// View is the renderable tree for the active space.
type View struct {
	Space    types.Space
	Pinned   []types.Tab
	Sections []Section // Inbox first, then groups in model order
}

// InSpace reports whether g shows up in the given space. Groups with no space
// or a space that no longer exists fall back to the default space.
func InSpace(s types.State, g types.Group, spaceID types.ID) bool {
	if g.SpaceID == spaceID {
		return true
	}
	return spaceID == types.DefaultSpaceID && (g.SpaceID == "" || s.SpaceIndex(g.SpaceID) < 0)
}

// ItemsToRender builds the view of the active space: pinned tabs in their own
// tray, then the Inbox, then every group of the space, empty ones included.
func ItemsToRender(s types.State) View {
	spaceID := activeSpace(s)
	v := View{Space: types.DefaultSpace()}
	if i := s.SpaceIndex(spaceID); i >= 0 {
		v.Space = s.Spaces[i]
	}

	inbox := types.Group{ID: types.InboxID, Title: InboxTitle, AutoGroup: s.InboxAutoGroup}
	members := map[types.ID][]types.Tab{}
	for _, t := range s.Tabs {
		if t.IsPinned {
			v.Pinned = append(v.Pinned, t)
			continue
		}
		gid := t.GroupID
		if gid == "" || s.GroupIndex(gid) < 0 {
			gid = types.InboxID
		}
		members[gid] = append(members[gid], t)
	}

	v.Sections = append(v.Sections, section(inbox, members[types.InboxID]))
	for _, g := range s.Groups {
		if InSpace(s, g, spaceID) {
			v.Sections = append(v.Sections, section(g, members[g.ID]))
		}
	}
	return v
}

func section(g types.Group, tabs []types.Tab) Section {
	sec := Section{Group: g, Count: len(tabs)}
	index := map[string]int{}
	for _, t := range tabs {
		label := t.Subgroup
		if g.AutoGroup {
			label = Hostname(t.URL)
		}
		i, ok := index[label]
		if !ok {
			i = len(sec.Buckets)
			index[label] = i
			sec.Buckets = append(sec.Buckets, Bucket{Label: label})
		}
		sec.Buckets[i].Tabs = append(sec.Buckets[i].Tabs, t)
	}
	// Unlabelled tabs lead.
	if i, ok := index[""]; ok && i > 0 {
		b := sec.Buckets[i]
		copy(sec.Buckets[1:i+1], sec.Buckets[:i])
		sec.Buckets[0] = b
	}
	return sec
}

// Hostname returns the URL's host without a leading "www.", or "" when the
// URL has none.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
