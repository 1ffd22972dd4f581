// Package firefox reads Firefox session files so an existing browser session
// can seed the sidebar.
package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/lotas/seitenleiste/internal/transfer"
	"github.com/lotas/seitenleiste/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// sessionFiles are tried in order: the running session, then the last one.
var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Image        string     `json:"image"`
	Pinned       bool       `json:"pinned"`
	Group        string     `json:"groupId"`
}

type rawGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

type rawWindow struct {
	Tabs   []rawTab   `json:"tabs"`
	Groups []rawGroup `json:"groups"`
}

type rawSession struct {
	Windows []rawWindow `json:"windows"`
}

// Tab is one restorable tab from a session file.
type Tab struct {
	Title        string
	URL          string
	Favicon      string
	Pinned       bool
	GroupID      string // empty when ungrouped
	LastAccessed time.Time
}

// Group is a Firefox tab group.
type Group struct {
	ID        string
	Name      string
	Color     string
	Collapsed bool
}

// Session is the content of a session file, all windows flattened.
type Session struct {
	Groups []Group
	Tabs   []Tab
	// Skipped counts tabs without a restorable web page.
	Skipped int
}

// ParseSession parses raw session JSON.
func ParseSession(data []byte) (*Session, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	s := &Session{}
	for _, window := range raw.Windows {
		known := make(map[string]bool)
		for _, rg := range window.Groups {
			known[rg.ID] = true
			s.Groups = append(s.Groups, Group{ID: rg.ID, Name: rg.Name, Color: rg.Color, Collapsed: rg.Collapsed})
		}

		for _, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				s.Skipped++
				continue
			}
			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]
			if !restorable(entry.URL) {
				s.Skipped++
				continue
			}

			tab := Tab{
				Title:        entry.Title,
				URL:          entry.URL,
				Favicon:      rt.Image,
				Pinned:       rt.Pinned,
				LastAccessed: time.UnixMilli(rt.LastAccessed),
			}
			// Groups referenced but not defined fall back to ungrouped.
			if known[rt.Group] {
				tab.GroupID = rt.Group
			}
			s.Tabs = append(s.Tabs, tab)
		}
	}
	return s, nil
}

// restorable reports whether a URL can be reopened from outside Firefox.
func restorable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "file", "ftp":
		return true
	}
	return false
}

// groupColor maps Firefox group colors onto the palette.
func groupColor(c string) types.Color {
	if c == "gray" {
		return types.ColorGrey
	}
	if col := types.Color(c); col.Valid() {
		return col
	}
	return types.ColorGrey
}

// Payload converts the session into an import payload. Every group lands in
// the default space.
func (s *Session) Payload(now time.Time) transfer.Payload {
	p := transfer.Payload{
		Meta:          transfer.Meta{Version: transfer.Version, ExportedAt: now.UTC().Format(time.RFC3339)},
		Spaces:        []types.Space{types.DefaultSpace()},
		ActiveSpaceID: types.DefaultSpaceID,
	}
	for _, g := range s.Groups {
		p.Groups = append(p.Groups, types.Group{
			ID:        types.ID("ff-" + g.ID),
			Title:     g.Name,
			Color:     groupColor(g.Color),
			Collapsed: g.Collapsed,
			SpaceID:   types.DefaultSpaceID,
		})
	}
	for i, t := range s.Tabs {
		gid := types.InboxID
		if t.GroupID != "" {
			gid = types.ID("ff-" + t.GroupID)
		}
		p.Tabs = append(p.Tabs, types.Tab{
			ID:         types.ID(fmt.Sprintf("ff-tab-%d", i)),
			Title:      t.Title,
			URL:        t.URL,
			FavIconURL: t.Favicon,
			IsPinned:   t.Pinned,
			GroupID:    gid,
			SpaceID:    types.DefaultSpaceID,
		})
	}
	return p
}

// ReadSessionFile reads and parses the session file of a profile directory,
// preferring the running session over the last closed one.
func ReadSessionFile(profileDir string) (*Session, error) {
	path, ok := sessionPath(profileDir)
	if !ok {
		return nil, fmt.Errorf("no session file found in %s", filepath.Join(profileDir, "sessionstore-backups"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}
