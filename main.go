package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/seitenleiste/internal/applog"
	"github.com/lotas/seitenleiste/internal/config"
	"github.com/lotas/seitenleiste/internal/engine"
	"github.com/lotas/seitenleiste/internal/firefox"
	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/retitle"
	"github.com/lotas/seitenleiste/internal/server"
	"github.com/lotas/seitenleiste/internal/storage"
	"github.com/lotas/seitenleiste/internal/transfer"
	"github.com/lotas/seitenleiste/internal/tui"
	"github.com/lotas/seitenleiste/internal/types"
)

func main() {
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		fatal(err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export":
			runExport(cfg, os.Args[2:])
			return
		case "import":
			runImport(cfg, os.Args[2:])
			return
		case "seed":
			runSeed(cfg, os.Args[2:])
			return
		case "retitle":
			runRetitle(cfg, os.Args[2:])
			return
		case "history":
			runHistory(cfg, os.Args[2:])
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	runTUI(cfg, os.Args[1:])
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printHelp() {
	fmt.Printf(`seitenleiste — tab sidebar with spaces, groups and closed-tab history

Usage:
  seitenleiste                                 Start the sidebar (default)
    --live                 Connect to the browser extension
    --demo                 Run against a built-in demo browser
    --port <n>             WebSocket port for live mode (default: %d)
    --host-groups          Mirror groups onto browser tab groups
    --db <path>            Database path

  seitenleiste export                          Export the sidebar as JSON
    --out <file>           Output file ("-" for stdout; default: generated name)
    --format <json|markdown>

  seitenleiste import <file>                   Merge an export into the sidebar

  seitenleiste seed                            Import tabs from a Firefox session
    --profile <name>       Firefox profile (default: the default profile)

  seitenleiste retitle                         Fetch titles for untitled closed tabs

  seitenleiste history                         List past imports and exports
    --limit <n>

  seitenleiste profiles                        List Firefox profiles

Environment:
  %s, %s, %s, %s, %s
`, config.DefaultPort, config.EnvDB, config.EnvPort, config.EnvLogDir, config.EnvHostGroups, config.EnvProfile)
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

func openStore(cfg config.Config) *storage.Store {
	if err := applog.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	st, err := storage.Open(cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	return st
}

// offlineEngine loads the persisted sidebar with no browser attached.
func offlineEngine(ctx context.Context, st *storage.Store) *engine.Engine {
	e := engine.New(nil, st, engine.Options{})
	if err := e.Init(ctx); err != nil {
		fatal(err)
	}
	return e
}

func runTUI(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("seitenleiste", flag.ExitOnError)
	liveMode := fs.Bool("live", false, "Connect to the browser extension")
	demo := fs.Bool("demo", false, "Run against a built-in demo browser")
	cfg.Register(fs, config.FlagDB|config.FlagPort|config.FlagLogDir|config.FlagHostGroups)
	fs.Parse(args)

	if *demo {
		dir, err := os.MkdirTemp("", "seitenleiste-demo-")
		if err != nil {
			fatal(err)
		}
		defer os.RemoveAll(dir)
		cfg.DBPath = filepath.Join(dir, "demo.db")
	}

	st := openStore(cfg)
	defer st.Close()
	defer applog.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := tui.Options{Mode: tui.ModeOffline, History: st}
	if dir, err := os.UserHomeDir(); err == nil {
		opts.ExportDir = filepath.Join(dir, "Downloads")
	}
	if profiles, err := firefox.DiscoverProfiles(); err == nil {
		opts.Profiles = profiles
	}

	var (
		h      host.Host
		gh     host.GroupHost
		events <-chan host.Event
	)
	switch {
	case *demo:
		mem := host.NewDemo()
		h, gh, events = mem, mem, mem.Events()
		opts.Mode = tui.ModeDemo
	case *liveMode:
		srv := server.New(cfg.Port)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				applog.Error("server.listen", err)
			}
		}()
		h, gh, events = srv, srv, srv.Events()
		opts.Mode, opts.Link = tui.ModeLive, srv
	}

	eopts := engine.Options{}
	if cfg.HostGroups && gh != nil {
		eopts.Groups = engine.HostGroups{Host: gh}
	}
	e := engine.New(h, st, eopts)
	opts.Engine = e

	if *demo {
		// The demo browser knows Google and GitHub; YouTube is history.
		if err := e.Init(ctx); err != nil {
			fatal(err)
		}
		e.Import(transfer.Payload{Tabs: []types.Tab{{
			ID: "yt", Title: "YouTube", URL: "https://youtube.com",
			FavIconURL: "https://www.youtube.com/favicon.ico", GroupID: types.InboxID,
		}}})
	}
	if events != nil {
		go e.Run(ctx, events)
	}

	p := tea.NewProgram(tui.NewModel(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal(err)
	}
}

func runExport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outFile := fs.String("out", "", `Output file path ("-" for stdout)`)
	format := fs.String("format", "json", "Output format: json or markdown")
	cfg.Register(fs, config.FlagDB|config.FlagLogDir)
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()
	defer applog.Close()
	ctx := context.Background()
	e := offlineEngine(ctx, st)

	now := time.Now()
	p := e.Export(now)
	var data []byte
	switch *format {
	case "json":
		var err error
		if data, err = transfer.Encode(p); err != nil {
			fatal(err)
		}
	case "markdown", "md":
		data = []byte(transfer.Markdown(e.State(), now))
	default:
		fatal(fmt.Errorf("unknown format %q", *format))
	}

	path := *outFile
	if path == "" {
		path = transfer.Filename(now)
		if *format != "json" {
			path = strings.TrimSuffix(path, ".json") + ".md"
		}
	}
	if path == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatal(fmt.Errorf("write %s: %w", path, err))
	}
	if err := st.RecordTransfer(ctx, storage.TransferRecord{Kind: "export", Path: path, Groups: len(p.Groups), Tabs: len(p.Tabs)}); err != nil {
		applog.Error("export.history", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d groups and %d tabs to %s\n", len(p.Groups), len(p.Tabs), path)
}

func runImport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfg.Register(fs, config.FlagDB|config.FlagLogDir)
	fs.Parse(reorderArgs(args))
	if fs.NArg() != 1 {
		fatal(errors.New("usage: seitenleiste import <file>"))
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	p, err := transfer.Decode(data)
	if err != nil {
		fatal(fmt.Errorf("%s: %w", path, err))
	}

	st := openStore(cfg)
	defer st.Close()
	defer applog.Close()
	ctx := context.Background()
	e := offlineEngine(ctx, st)

	res := e.Import(p)
	recordImport(ctx, st, "import", path, res)
	fmt.Fprintf(os.Stderr, "Imported %d groups and %d tabs (%d groups, %d tabs already present)\n",
		res.AddedGroups, res.AddedTabs, res.SkippedGroups, res.SkippedTabs)
}

func recordImport(ctx context.Context, st *storage.Store, kind, path string, res transfer.Result) {
	rec := storage.TransferRecord{
		Kind: kind, Path: path,
		Groups: res.AddedGroups, Tabs: res.AddedTabs,
		SkippedGroups: res.SkippedGroups, SkippedTabs: res.SkippedTabs,
	}
	if err := st.RecordTransfer(ctx, rec); err != nil {
		applog.Error(kind+".history", err)
	}
}

func runSeed(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfg.Register(fs, config.FlagDB|config.FlagLogDir|config.FlagProfile)
	fs.Parse(args)

	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal(fmt.Errorf("discover profiles: %w", err))
	}
	profile, err := firefox.SelectProfile(profiles, cfg.Profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nAvailable profiles:\n", err)
		for _, p := range profiles {
			fmt.Fprintf(os.Stderr, "  - %s\n", p.Name)
		}
		os.Exit(1)
	}
	session, err := firefox.ReadSessionFile(profile.Path)
	if err != nil {
		fatal(fmt.Errorf("read session: %w", err))
	}

	st := openStore(cfg)
	defer st.Close()
	defer applog.Close()
	ctx := context.Background()
	e := offlineEngine(ctx, st)

	res := e.Import(session.Payload(time.Now()))
	recordImport(ctx, st, "seed", profile.Path, res)
	fmt.Fprintf(os.Stderr, "Seeded from %s: %d groups and %d tabs added, %d unrestorable tabs skipped\n",
		profile.Name, res.AddedGroups, res.AddedTabs, session.Skipped)
}

func runRetitle(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("retitle", flag.ExitOnError)
	cfg.Register(fs, config.FlagDB|config.FlagLogDir)
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()
	defer applog.Close()
	ctx := context.Background()
	e := offlineEngine(ctx, st)

	urls, titles, stats := retitle.Backfill(ctx, e.State(), retitle.FetchTitle, os.Stderr)
	n := e.SetTitles(urls, titles)
	fmt.Fprintf(os.Stderr, "\nDone: %d retitled, %d failed\n", n, stats.Failed)
}

func runHistory(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of entries to show")
	cfg.Register(fs, config.FlagDB|config.FlagLogDir)
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()
	defer applog.Close()

	recs, err := st.ListTransfers(context.Background(), *limit)
	if err != nil {
		fatal(err)
	}
	if len(recs) == 0 {
		fmt.Println("No imports or exports yet.")
		return
	}
	for _, r := range recs {
		fmt.Printf("%s  %-6s  %3d groups  %4d tabs  (%d/%d skipped)  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Kind, r.Groups, r.Tabs, r.SkippedGroups, r.SkippedTabs, r.Path)
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal(fmt.Errorf("discover Firefox profiles: %w", err))
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles found.")
		os.Exit(1)
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}
