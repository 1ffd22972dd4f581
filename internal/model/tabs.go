// Package model holds the grouping/organization operations over the sidebar
// state. Every function takes a State by value and returns a new one; the
// input is never modified.
package model

import (
	"strings"

	"github.com/lotas/seitenleiste/internal/types"
)

// mapTabs returns a copy of s with f applied to every tab.
func mapTabs(s types.State, f func(types.Tab) types.Tab) types.State {
	out := s.Clone()
	for i := range out.Tabs {
		out.Tabs[i] = f(out.Tabs[i])
	}
	return out
}

// updateTab applies f to the tab with the given id. The bool is false when
// no such tab exists, in which case s is returned unchanged.
func updateTab(s types.State, id types.ID, f func(*types.Tab)) (types.State, bool) {
	i := s.TabIndex(id)
	if i < 0 {
		return s, false
	}
	out := s.Clone()
	f(&out.Tabs[i])
	return out, true
}

// TogglePin flips the pinned flag of a tab.
func TogglePin(s types.State, tabID types.ID) (types.State, bool) {
	return updateTab(s, tabID, func(t *types.Tab) { t.IsPinned = !t.IsPinned })
}

// SetTabSubgroup sets the sub-group label; blank clears it.
func SetTabSubgroup(s types.State, tabID types.ID, name string) (types.State, bool) {
	name = strings.TrimSpace(name)
	return updateTab(s, tabID, func(t *types.Tab) { t.Subgroup = name })
}

// MarkGhost retires a tab into history, keeping its last known fields.
func MarkGhost(s types.State, tabID types.ID) (types.State, bool) {
	return updateTab(s, tabID, func(t *types.Tab) { t.IsGhost = true })
}

// RemoveTab drops a tab from the model entirely.
func RemoveTab(s types.State, tabID types.ID) (types.State, bool) {
	i := s.TabIndex(tabID)
	if i < 0 {
		return s, false
	}
	out := s.Clone()
	out.Tabs = append(out.Tabs[:i:i], out.Tabs[i+1:]...)
	if out.ActiveTabID == tabID {
		out.ActiveTabID = ""
	}
	return out, true
}

// ClearGhosts drops every ghost tab and reports how many went.
func ClearGhosts(s types.State) (types.State, int) {
	out := s.Clone()
	kept := out.Tabs[:0]
	for _, t := range out.Tabs {
		if !t.IsGhost {
			kept = append(kept, t)
		}
	}
	n := len(out.Tabs) - len(kept)
	out.Tabs = kept
	return out, n
}

// SetActiveTab records which tab the host has focused.
func SetActiveTab(s types.State, tabID types.ID) types.State {
	out := s.Clone()
	out.ActiveTabID = tabID
	return out
}

// SetTitles renames the tabs in titles. A title only lands on a ghost whose
// URL still matches, so a tab that came back to life in the meantime keeps
// the title the host gave it.
func SetTitles(s types.State, urls map[types.ID]string, titles map[types.ID]string) (types.State, int) {
	n := 0
	out := mapTabs(s, func(t types.Tab) types.Tab {
		title, ok := titles[t.ID]
		if !ok || title == "" || !t.IsGhost || urls[t.ID] != t.URL || t.Title == title {
			return t
		}
		t.Title = title
		n++
		return t
	})
	if n == 0 {
		return s, 0
	}
	return out, n
}
