// Package ident generates local identifiers and normalizes titles for matching.
package ident

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lotas/seitenleiste/internal/types"
)

// New returns a fresh random local identifier.
func New() types.ID {
	return types.ID(uuid.NewString())
}

// Generator produces identifiers. Tests substitute deterministic ones.
type Generator func() types.ID

// Unique draws ids from gen until one is not taken. A nil gen uses New.
func Unique(gen Generator, taken func(types.ID) bool) types.ID {
	if gen == nil {
		gen = New
	}
	for {
		id := gen()
		if id != "" && !taken(id) {
			return id
		}
	}
}

// Set is a membership set of ids.
type Set map[types.ID]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id types.ID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s Set) Add(id types.ID) {
	s[id] = struct{}{}
}

// NormalizeTitle lowercases a title and collapses surrounding and inner
// whitespace so "  Work  Stuff" and "work stuff" match.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
