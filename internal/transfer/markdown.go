package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/types"
)

// Markdown renders every space of s as a readable markdown document.
func Markdown(s types.State, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Seitenleiste (%s)\n", plural(len(s.Tabs), "tab"))
	fmt.Fprintf(&b, "> Exported %s\n", now.Format("2006-01-02 15:04"))

	for _, sp := range s.Spaces {
		view := s
		view.ActiveSpaceID = sp.ID
		v := model.ItemsToRender(view)

		fmt.Fprintf(&b, "\n## %s\n", sp.Title)
		if sp.ID == types.DefaultSpaceID && len(v.Pinned) > 0 {
			fmt.Fprintf(&b, "\n### Pinned (%s)\n\n", plural(len(v.Pinned), "tab"))
			for _, t := range v.Pinned {
				writeTab(&b, t)
			}
		}
		for _, sec := range v.Sections {
			if sec.IsInbox() && (sp.ID != types.DefaultSpaceID || sec.Count == 0) {
				continue
			}
			fmt.Fprintf(&b, "\n### %s (%s)\n\n", sec.Group.Title, plural(sec.Count, "tab"))
			for _, bucket := range sec.Buckets {
				for _, t := range bucket.Tabs {
					if bucket.Label != "" {
						fmt.Fprintf(&b, "  ")
					}
					writeTab(&b, t)
				}
			}
		}
	}

	return b.String()
}

func writeTab(b *strings.Builder, t types.Tab) {
	title := t.Title
	if title == "" {
		title = t.URL
	}
	suffix := ""
	if t.Subgroup != "" {
		suffix = " [" + t.Subgroup + "]"
	}
	if t.IsGhost {
		suffix += " (closed)"
	}
	fmt.Fprintf(b, "- [%s](%s)%s\n", title, t.URL, suffix)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
