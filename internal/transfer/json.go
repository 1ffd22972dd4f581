// Package transfer serializes the sidebar model to the export file format and
// merges export files back into a model.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lotas/seitenleiste/internal/types"
)

// Version is the export schema version written to meta.version.
const Version = 1

// ErrMalformed wraps every failure to parse an import file.
var ErrMalformed = errors.New("malformed import file")

// Meta is the export header.
type Meta struct {
	Version        int    `json:"version"`
	ExportedAt     string `json:"exportedAt"`
	InboxAutoGroup *bool  `json:"inboxAutoGroup,omitempty"`
}

// Payload is the export file document. Missing arrays decode as empty.
type Payload struct {
	Meta          Meta          `json:"meta"`
	Spaces        []types.Space `json:"spaces"`
	ActiveSpaceID types.ID      `json:"activeSpaceId"`
	Groups        []types.Group `json:"groups"`
	Tabs          []types.Tab   `json:"tabs"`
}

const isoMillis = "2006-01-02T15:04:05.000Z"

// Export builds a payload from the persisted fields of s.
func Export(s types.State, now time.Time) Payload {
	auto := s.InboxAutoGroup
	p := Payload{
		Meta: Meta{
			Version:        Version,
			ExportedAt:     now.UTC().Format(isoMillis),
			InboxAutoGroup: &auto,
		},
		Spaces:        append([]types.Space{}, s.Spaces...),
		ActiveSpaceID: s.ActiveSpaceID,
		Groups:        make([]types.Group, 0, len(s.Groups)),
		Tabs:          make([]types.Tab, 0, len(s.Tabs)),
	}
	for _, g := range s.Groups {
		if g.SpaceID == "" {
			g.SpaceID = types.DefaultSpaceID
		}
		p.Groups = append(p.Groups, g)
	}
	for _, t := range s.Tabs {
		if t.GroupID == "" {
			t.GroupID = types.InboxID
		}
		p.Tabs = append(p.Tabs, t)
	}
	return p
}

// Encode renders p as pretty-printed JSON.
func Encode(p Payload) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode parses an import file. Any failure, including a document that is
// not a JSON object, wraps ErrMalformed.
func Decode(data []byte) (Payload, error) {
	var p *Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p == nil {
		return Payload{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	return *p, nil
}

// Filename is the suggested export file name for the given time, free of
// characters that trouble file systems.
func Filename(now time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format(isoMillis))
	return "seitenleiste-export-" + stamp + ".json"
}
