// Package retitle fills in titles for ghost tabs that were saved before the
// page finished loading, or imported without one.
package retitle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/lotas/seitenleiste/internal/applog"
	"github.com/lotas/seitenleiste/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher returns the title of the page at url.
type Fetcher func(ctx context.Context, url string) (string, error)

var client = &http.Client{Timeout: 15 * time.Second}

// FetchTitle downloads url and returns the article title readability finds.
func FetchTitle(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("skipping non-HTTP URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 4<<20), u)
	if err != nil {
		return "", fmt.Errorf("extract title from %s: %w", rawURL, err)
	}
	title := strings.TrimSpace(article.Title)
	if title == "" {
		return "", fmt.Errorf("%s: page has no title", rawURL)
	}
	return title, nil
}

// NeedsTitle reports whether t is a ghost still showing a placeholder title.
func NeedsTitle(t types.Tab) bool {
	if !t.IsGhost || t.URL == "" {
		return false
	}
	title := strings.TrimSpace(t.Title)
	return title == "" || title == t.URL || title == "Untitled"
}

// Stats counts the outcome of a backfill run.
type Stats struct {
	Fetched int
	Failed  int
}

// Backfill fetches a title for every tab in s that NeedsTitle. It returns
// the URL each title was fetched for alongside the titles, keyed by tab id,
// so the caller can discard results for tabs that changed meanwhile.
// Progress lines go to w when it is non-nil.
func Backfill(ctx context.Context, s types.State, fetch Fetcher, w io.Writer) (urls, titles map[types.ID]string, st Stats) {
	urls = map[types.ID]string{}
	titles = map[types.ID]string{}
	if w == nil {
		w = io.Discard
	}

	var todo []types.Tab
	for _, t := range s.Tabs {
		if NeedsTitle(t) {
			todo = append(todo, t)
		}
	}
	applog.Info("retitle.start", "count", len(todo))

	// Tabs sharing a URL share one request.
	cache := map[string]string{}
	for i, t := range todo {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(todo), t.URL)
		title, seen := cache[t.URL]
		if !seen {
			var err error
			title, err = fetch(ctx, t.URL)
			if err != nil {
				applog.Warn("retitle.fetch", err, "url", t.URL)
				fmt.Fprintf(w, "        ✗ %v\n", err)
			}
			cache[t.URL] = title
		}
		if title == "" {
			st.Failed++
			continue
		}
		urls[t.ID] = t.URL
		titles[t.ID] = title
		st.Fetched++
	}

	applog.Info("retitle.done", "fetched", st.Fetched, "failed", st.Failed)
	return urls, titles, st
}
