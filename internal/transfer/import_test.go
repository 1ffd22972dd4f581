package transfer

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/lotas/seitenleiste/internal/ident"
	"github.com/lotas/seitenleiste/internal/types"
)

func counter() ident.Generator {
	n := 0
	return func() types.ID {
		n++
		return types.ID(fmt.Sprintf("imp-%d", n))
	}
}

func emptyState() types.State {
	return types.NewState(types.DefaultSnapshot())
}

func TestImportTwiceAddsNothing(t *testing.T) {
	p := Export(sampleState(), time.Now())
	gen := counter()

	s, first := Import(emptyState(), p, gen)
	if first.AddedGroups != 3 || first.AddedTabs != 4 {
		t.Fatalf("first import = %+v", first)
	}

	_, second := Import(s, p, gen)
	want := Result{SkippedGroups: len(p.Groups), SkippedTabs: len(p.Tabs)}
	if second != want {
		t.Errorf("second import = %+v, want %+v", second, want)
	}
}

func TestImportRoundTrip(t *testing.T) {
	src := sampleState()
	s, _ := Import(emptyState(), Export(src, time.Now()), counter())

	if s.ActiveSpaceID != "sp-red" {
		t.Errorf("ActiveSpaceID = %q", s.ActiveSpaceID)
	}
	if s.InboxAutoGroup {
		t.Error("InboxAutoGroup not restored")
	}

	shape := func(st types.State) []string {
		var out []string
		for _, tab := range st.Tabs {
			g, _ := st.Group(tab.GroupID)
			out = append(out, fmt.Sprintf("%s|%s|%s|%v", tab.URL, g.Title, tab.Subgroup, tab.IsPinned))
		}
		sort.Strings(out)
		return out
	}
	got, want := shape(s), shape(src)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("round trip shape\n got %v\nwant %v", got, want)
	}
	for _, tab := range s.Tabs {
		if !tab.IsGhost {
			t.Errorf("imported tab %s not a ghost", tab.URL)
		}
		if tab.Title == "" {
			t.Errorf("imported tab %s has no title", tab.URL)
		}
	}
	for _, g := range s.Groups {
		if !g.IsGhost {
			t.Errorf("imported group %q not a ghost", g.Title)
		}
	}
	shop, _ := s.Group(s.Tabs[2].GroupID)
	if shop.SpaceID != "sp-red" {
		t.Errorf("Shopping landed in %q", shop.SpaceID)
	}
}

func TestImportDedupByNormalizedTitle(t *testing.T) {
	s := emptyState()
	s.Groups = []types.Group{{ID: "mine", Title: "Work", SpaceID: types.DefaultSpaceID}}
	s.Tabs = []types.Tab{{ID: "1", URL: "https://a.example", GroupID: "mine", SpaceID: types.DefaultSpaceID}}

	p := Payload{
		Groups: []types.Group{{ID: "x", Title: "  WORK "}, {ID: "y", Title: ""}},
		Tabs: []types.Tab{
			{ID: "1", URL: "https://a.example", GroupID: "x"},
			{ID: "2", URL: "https://b.example", GroupID: "x"},
			{ID: "3", URL: "https://a.example", GroupID: types.InboxID},
		},
	}
	out, res := Import(s, p, counter())
	if res != (Result{AddedGroups: 0, SkippedGroups: 2, AddedTabs: 2, SkippedTabs: 1}) {
		t.Errorf("result = %+v", res)
	}
	b, _ := out.Tab(out.Tabs[1].ID)
	if b.URL != "https://b.example" || b.GroupID != "mine" {
		t.Errorf("tab b = %+v", b)
	}
	if out.Tabs[1].ID == "2" || out.Tabs[1].ID == "1" {
		t.Error("imported tab kept its incoming id")
	}
	if a := out.Tabs[2]; a.GroupID != types.InboxID || a.Title != "https://a.example" {
		t.Errorf("inbox copy = %+v", a)
	}
}

func TestImportSpaces(t *testing.T) {
	s := emptyState()
	p := Payload{
		ActiveSpaceID: "nowhere",
		Spaces: []types.Space{
			{ID: "a", Color: types.ColorBlue},
			{ID: "b", Color: types.ColorRed},
			{ID: "c", Color: ""},
			{ID: "d", Title: "Dup", Color: types.ColorRed},
			{ID: "e", Color: types.ColorGreen},
			{ID: "f", Color: types.ColorPink},
		},
		Groups: []types.Group{{ID: "g", Title: "G", SpaceID: "zzz"}},
	}
	out, _ := Import(s, p, counter())
	if len(out.Spaces) != types.MaxSpaces {
		t.Fatalf("spaces = %+v", out.Spaces)
	}
	var colors []types.Color
	for _, sp := range out.Spaces {
		colors = append(colors, sp.Color)
	}
	want := []types.Color{types.ColorBlue, types.ColorRed, types.ColorGrey, types.ColorGreen}
	if fmt.Sprint(colors) != fmt.Sprint(want) {
		t.Errorf("colors = %v, want %v", colors, want)
	}
	if out.Spaces[2].Title != "Grey" {
		t.Errorf("derived title = %q", out.Spaces[2].Title)
	}
	if out.ActiveSpaceID != types.DefaultSpaceID {
		t.Errorf("ActiveSpaceID = %q", out.ActiveSpaceID)
	}
	if out.Groups[0].SpaceID != types.DefaultSpaceID {
		t.Errorf("group space fallback = %q", out.Groups[0].SpaceID)
	}
}

func TestImportForcesDefaultSpace(t *testing.T) {
	s := emptyState()
	s.Spaces = nil
	out, _ := Import(s, Payload{}, counter())
	if len(out.Spaces) != 1 || out.Spaces[0].ID != types.DefaultSpaceID {
		t.Errorf("spaces = %+v", out.Spaces)
	}
}

func TestImportSkipsTakenIDs(t *testing.T) {
	s := emptyState()
	s.Groups = []types.Group{{ID: "x1", Title: "Existing", SpaceID: types.DefaultSpaceID}}
	s.Tabs = []types.Tab{{ID: "x2", URL: "https://old.example", GroupID: types.InboxID, SpaceID: types.DefaultSpaceID}}

	// Group and tab ids are checked separately; each draw starts with a
	// collision.
	ids := []types.ID{"x1", "x3", "x2", "x4", "x4", "x5"}
	gen := func() types.ID {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	p := Payload{
		Groups: []types.Group{{ID: "g", Title: "New"}},
		Tabs: []types.Tab{
			{ID: "a", URL: "https://a.example", GroupID: "g"},
			{ID: "b", URL: "https://b.example", GroupID: types.InboxID},
		},
	}

	out, res := Import(s, p, gen)
	if res.AddedGroups != 1 || res.AddedTabs != 2 {
		t.Fatalf("import = %+v", res)
	}
	seen := map[types.ID]bool{}
	for _, g := range out.Groups {
		if seen[g.ID] {
			t.Errorf("duplicate group id %q", g.ID)
		}
		seen[g.ID] = true
	}
	seen = map[types.ID]bool{}
	for _, tab := range out.Tabs {
		if seen[tab.ID] {
			t.Errorf("duplicate tab id %q", tab.ID)
		}
		seen[tab.ID] = true
	}
	if g := out.Groups[1]; g.ID != "x3" {
		t.Errorf("new group id = %q, want x3", g.ID)
	}
	if a, b := out.Tabs[1].ID, out.Tabs[2].ID; a != "x4" || b != "x5" {
		t.Errorf("new tab ids = %q, %q, want x4, x5", a, b)
	}
}
