package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/seitenleiste/internal/applog"
	"github.com/lotas/seitenleiste/internal/engine"
	"github.com/lotas/seitenleiste/internal/firefox"
	"github.com/lotas/seitenleiste/internal/model"
	"github.com/lotas/seitenleiste/internal/retitle"
	"github.com/lotas/seitenleiste/internal/storage"
	"github.com/lotas/seitenleiste/internal/transfer"
	"github.com/lotas/seitenleiste/internal/types"
)

// SourceMode distinguishes where live tabs come from.
type SourceMode int

const (
	ModeOffline SourceMode = iota
	ModeLive
	ModeDemo
)

// Link is the live connection as the TUI sees it.
type Link interface {
	Connected() bool
	Port() int
}

// TransferLog records exports and seeds in the history.
type TransferLog interface {
	RecordTransfer(ctx context.Context, r storage.TransferRecord) error
}

// Options configures NewModel.
type Options struct {
	Engine    *engine.Engine
	Mode      SourceMode
	Link      Link // required in ModeLive
	Profiles  []types.Profile
	ExportDir string
	History   TransferLog // optional
	Fetch     retitle.Fetcher
}

// --- Messages ---

type stateMsg struct{}
type initDoneMsg struct{ err error }
type statusMsg string
type linkTickMsg struct{}

type overlay int

const (
	overlayNone overlay = iota
	overlayGroupPicker
	overlayColorPicker
	overlayProfilePicker
	overlayPrompt
)

// --- Model ---

type Model struct {
	opts    Options
	updates <-chan types.State
	cancel  func()

	// Data
	state types.State

	// UI state
	tree          TreeModel
	detail        DetailModel
	overlay       overlay
	groupPicker   GroupPicker
	colorPicker   ColorPicker
	profilePicker ProfilePicker
	prompt        Prompt
	promptTarget  types.ID
	loading       bool
	connected     bool
	status        string
	err           error
	width         int
	height        int
}

func NewModel(opts Options) Model {
	if opts.Fetch == nil {
		opts.Fetch = retitle.FetchTitle
	}
	updates, cancel := opts.Engine.Subscribe(16)
	return Model{
		opts:    opts,
		updates: updates,
		cancel:  cancel,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForState(m.updates)}
	if m.opts.Mode == ModeLive {
		cmds = append(cmds, tickLink())
	} else {
		cmds = append(cmds, initEngine(m.opts.Engine))
	}
	return tea.Batch(cmds...)
}

func waitForState(ch <-chan types.State) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateMsg{}
	}
}

func initEngine(e *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return initDoneMsg{err: e.Init(ctx)}
	}
}

func tickLink() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg { return linkTickMsg{} })
}

// run executes f off the UI goroutine and reports its status line.
func run(f func(ctx context.Context) string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return statusMsg(f(ctx))
	}
}

func (m *Model) layout() {
	treeWidth := m.width * TreeWidthPct / 100
	paneHeight := m.height - 5 // top bar + bottom bar
	m.tree.Width = treeWidth
	m.tree.Height = paneHeight
	m.detail.Width = m.width - treeWidth - 3 // borders
	m.detail.Height = paneHeight
}

func (m *Model) refresh() {
	m.state = m.opts.Engine.State()
	m.tree.SetView(model.ItemsToRender(m.state), m.state.ActiveTabID)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case stateMsg:
		m.refresh()
		return m, waitForState(m.updates)

	case initDoneMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			applog.Error("tui.init", msg.err)
		}
		m.refresh()
		return m, nil

	case linkTickMsg:
		now := m.opts.Link.Connected()
		was := m.connected
		m.connected = now
		if now && !was {
			// Every (re)connect is a fresh startup merge.
			m.status = "extension connected"
			return m, tea.Batch(initEngine(m.opts.Engine), tickLink())
		}
		if !now && was {
			m.status = "extension disconnected"
		}
		return m, tickLink()

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		switch m.overlay {
		case overlayGroupPicker:
			return m.updateGroupPicker(msg)
		case overlayColorPicker:
			return m.updateColorPicker(msg)
		case overlayProfilePicker:
			return m.updateProfilePicker(msg)
		case overlayPrompt:
			return m.updatePrompt(msg)
		}
		return m.updateTree(msg)
	}

	return m, nil
}

func (m Model) selectedTab() *types.Tab {
	if n := m.tree.SelectedNode(); n != nil && n.Kind == NodeTab {
		return n.Tab
	}
	return nil
}

func (m Model) selectedSection() *model.Section {
	if n := m.tree.SelectedNode(); n != nil && n.Kind == NodeSection {
		return n.Section
	}
	return nil
}

func (m Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.opts.Engine
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "h":
		m.tree.Parent()

	case "enter":
		if tab := m.selectedTab(); tab != nil {
			id := tab.ID
			return m, run(func(ctx context.Context) string {
				e.Activate(ctx, id)
				return ""
			})
		}
		if sec := m.selectedSection(); sec != nil && !sec.IsInbox() {
			id := sec.Group.ID
			return m, run(func(ctx context.Context) string {
				e.ToggleGroupCollapse(ctx, id)
				return ""
			})
		}

	case "x":
		if tab := m.selectedTab(); tab != nil {
			id := tab.ID
			return m, run(func(ctx context.Context) string {
				e.Close(ctx, id)
				return "closed, kept in history"
			})
		}
	case "d":
		if tab := m.selectedTab(); tab != nil {
			id := tab.ID
			return m, run(func(ctx context.Context) string {
				e.Remove(ctx, id)
				return "removed"
			})
		}
		if sec := m.selectedSection(); sec != nil && !sec.IsInbox() {
			if e.RemoveGroup(sec.Group.ID) {
				m.status = fmt.Sprintf("removed group %q, tabs moved to %s", sec.Group.Title, model.InboxTitle)
			}
		}
	case "C":
		m.status = fmt.Sprintf("cleared %d closed tabs", e.ClearGhosts())

	case "p":
		if tab := m.selectedTab(); tab != nil {
			e.TogglePin(tab.ID)
		}
	case "g":
		if tab := m.selectedTab(); tab != nil {
			m.groupPicker = NewGroupPicker(m.tree.SpaceView, tab.GroupID)
			m.promptTarget = tab.ID
			m.overlay = overlayGroupPicker
		}
	case "s":
		if tab := m.selectedTab(); tab != nil {
			m.prompt = NewPrompt(PromptSubgroup, "Sub-group (blank clears):", tab.Subgroup)
			m.promptTarget = tab.ID
			m.overlay = overlayPrompt
		}
	case "a":
		if sec := m.selectedSection(); sec != nil {
			if sec.IsInbox() {
				e.ToggleInboxAutoGroup()
			} else {
				e.ToggleGroupAutoGroup(sec.Group.ID)
			}
		}
	case "r":
		if sec := m.selectedSection(); sec != nil && !sec.IsInbox() {
			m.prompt = NewPrompt(PromptRenameGroup, "Rename group:", sec.Group.Title)
			m.promptTarget = sec.Group.ID
			m.overlay = overlayPrompt
		}
	case "c":
		if sec := m.selectedSection(); sec != nil && !sec.IsInbox() {
			next := nextColor(sec.Group.Color)
			id := sec.Group.ID
			return m, run(func(ctx context.Context) string {
				e.UpdateGroup(ctx, id, model.GroupUpdate{Color: &next})
				return ""
			})
		}
	case "n":
		g := e.AddGroupToSpace(m.state.ActiveSpaceID)
		m.status = fmt.Sprintf("added %q", g.Title)
	case "m":
		if sec := m.selectedSection(); sec != nil && !sec.IsInbox() {
			if to, ok := nextSpace(m.state); ok && e.MoveGroupToSpace(sec.Group.ID, to.ID) {
				m.status = fmt.Sprintf("moved %q to %s", sec.Group.Title, to.Title)
			}
		}

	case "1", "2", "3", "4":
		i := int(msg.String()[0] - '1')
		if i < len(m.state.Spaces) {
			e.SetActiveSpace(m.state.Spaces[i].ID)
			m.tree.Cursor, m.tree.Offset = 0, 0
		}
	case "S":
		if len(m.state.Spaces) >= types.MaxSpaces {
			m.status = fmt.Sprintf("at most %d spaces", types.MaxSpaces)
			return m, nil
		}
		m.colorPicker = NewColorPicker(m.state.Spaces)
		m.overlay = overlayColorPicker
	case "R":
		m.prompt = NewPrompt(PromptRenameSpace, "Rename space:", activeSpaceTitle(m.state))
		m.promptTarget = m.state.ActiveSpaceID
		m.overlay = overlayPrompt
	case "ctrl+d":
		if e.RemoveSpace(m.state.ActiveSpaceID) {
			m.status = "space removed, its groups moved to Default"
		}

	case "e":
		return m, m.export()
	case "F":
		m.profilePicker = NewProfilePicker(m.opts.Profiles)
		m.overlay = overlayProfilePicker
	case "t":
		m.status = "fetching titles…"
		return m, m.retitle()
	}
	return m, nil
}

func (m Model) updateGroupPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.groupPicker.MoveUp()
	case "down", "j":
		m.groupPicker.MoveDown()
	case "enter":
		m.overlay = overlayNone
		opt := m.groupPicker.Selected()
		if opt == nil {
			return m, nil
		}
		if opt.Target == model.TargetNew {
			m.prompt = NewPrompt(PromptNewGroup, "New group title:", "")
			m.overlay = overlayPrompt
			return m, nil
		}
		return m, m.changeGroup(m.promptTarget, opt.Target, "")
	case "esc":
		m.overlay = overlayNone
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) changeGroup(tabID, target types.ID, title string) tea.Cmd {
	e := m.opts.Engine
	return run(func(ctx context.Context) string {
		if _, ok := e.ChangeTabGroup(ctx, tabID, target, title); !ok {
			return "tab not moved"
		}
		return ""
	})
}

func (m Model) updateColorPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.colorPicker.MoveUp()
	case "down", "j":
		m.colorPicker.MoveDown()
	case "enter":
		m.overlay = overlayNone
		if c := m.colorPicker.Selected(); c != "" {
			if sp, ok := m.opts.Engine.AddSpace(c); ok {
				m.opts.Engine.SetActiveSpace(sp.ID)
				m.status = fmt.Sprintf("added space %s", sp.Title)
			}
		}
	case "esc":
		m.overlay = overlayNone
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateProfilePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.profilePicker.MoveUp()
	case "down", "j":
		m.profilePicker.MoveDown()
	case "enter":
		m.overlay = overlayNone
		if p, ok := m.profilePicker.Selected(); ok {
			return m, m.seed(p)
		}
	case "esc":
		m.overlay = overlayNone
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	done, ok := m.prompt.HandleKey(msg)
	if !done {
		return m, nil
	}
	m.overlay = overlayNone
	if !ok {
		return m, nil
	}

	e := m.opts.Engine
	value := m.prompt.String()
	switch m.prompt.Kind {
	case PromptNewGroup:
		if value == "" {
			return m, nil
		}
		return m, m.changeGroup(m.promptTarget, model.TargetNew, value)
	case PromptSubgroup:
		e.SetTabSubgroup(m.promptTarget, value)
	case PromptRenameGroup:
		if value == "" {
			return m, nil
		}
		id := m.promptTarget
		return m, run(func(ctx context.Context) string {
			e.UpdateGroup(ctx, id, model.GroupUpdate{Title: &value})
			return ""
		})
	case PromptRenameSpace:
		if value != "" {
			e.UpdateSpace(m.promptTarget, model.SpaceUpdate{Title: &value})
		}
	}
	return m, nil
}

func (m Model) export() tea.Cmd {
	e, dir, history := m.opts.Engine, m.opts.ExportDir, m.opts.History
	return run(func(ctx context.Context) string {
		now := time.Now()
		p := e.Export(now)
		data, err := transfer.Encode(p)
		if err != nil {
			return "export failed: " + err.Error()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "export failed: " + err.Error()
		}
		path := filepath.Join(dir, transfer.Filename(now))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "export failed: " + err.Error()
		}
		applog.Info("tui.export", "path", path, "tabs", len(p.Tabs))
		if history != nil {
			if err := history.RecordTransfer(ctx, storage.TransferRecord{Kind: "export", Path: path, Groups: len(p.Groups), Tabs: len(p.Tabs)}); err != nil {
				applog.Error("tui.export.history", err)
			}
		}
		return "exported to " + path
	})
}

func (m Model) seed(p types.Profile) tea.Cmd {
	e, history := m.opts.Engine, m.opts.History
	return run(func(ctx context.Context) string {
		sess, err := firefox.ReadSessionFile(p.Path)
		if err != nil {
			return "seed failed: " + err.Error()
		}
		res := e.Import(sess.Payload(time.Now()))
		if history != nil {
			rec := storage.TransferRecord{
				Kind: "seed", Path: p.Path,
				Groups: res.AddedGroups, Tabs: res.AddedTabs,
				SkippedGroups: res.SkippedGroups, SkippedTabs: res.SkippedTabs,
			}
			if err := history.RecordTransfer(ctx, rec); err != nil {
				applog.Error("tui.seed.history", err)
			}
		}
		return fmt.Sprintf("seeded from %s: %d groups, %d tabs added", p.Name, res.AddedGroups, res.AddedTabs)
	})
}

func (m Model) retitle() tea.Cmd {
	e, fetch := m.opts.Engine, m.opts.Fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		urls, titles, st := retitle.Backfill(ctx, e.State(), fetch, nil)
		n := e.SetTitles(urls, titles)
		return statusMsg(fmt.Sprintf("retitled %d tabs (%d failed)", n, st.Failed))
	}
}

func nextColor(c types.Color) types.Color {
	c = c.OrGrey()
	for i, p := range types.Palette {
		if p == c {
			return types.Palette[(i+1)%len(types.Palette)]
		}
	}
	return types.ColorGrey
}

// nextSpace returns the space after the active one, wrapping around.
func nextSpace(s types.State) (types.Space, bool) {
	if len(s.Spaces) < 2 {
		return types.Space{}, false
	}
	i := s.SpaceIndex(s.ActiveSpaceID)
	return s.Spaces[(i+1)%len(s.Spaces)], true
}

func activeSpaceTitle(s types.State) string {
	if i := s.SpaceIndex(s.ActiveSpaceID); i >= 0 {
		return s.Spaces[i].Title
	}
	return ""
}

func (m Model) statusLine() string {
	switch m.opts.Mode {
	case ModeLive:
		if m.connected {
			return "Live ● connected"
		}
		return "Live ○ waiting…"
	case ModeDemo:
		return "Demo"
	}
	return "Offline"
}

func (m Model) View() string {
	if m.loading {
		if m.opts.Mode == ModeLive {
			return fmt.Sprintf("\n  Waiting for extension connection on :%d...\n", m.opts.Link.Port())
		}
		return "\n  Loading...\n"
	}

	switch m.overlay {
	case overlayGroupPicker:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.groupPicker.View())
	case overlayColorPicker:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.colorPicker.View())
	case overlayProfilePicker:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.profilePicker.View())
	case overlayPrompt:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.prompt.View())
	}

	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press 'q' to quit.\n", m.err)
	}

	// Top bar
	var ghosts int
	for _, t := range m.state.Tabs {
		if t.IsGhost {
			ghosts++
		}
	}
	stats := fmt.Sprintf("%d tabs · %d closed · %d groups", len(m.state.Tabs), ghosts, len(m.state.Groups))
	topBar := renderNavbar(m.state.Spaces, m.state.ActiveSpaceID, m.statusLine()+"  "+stats, m.width)

	// Panes
	treeBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipglossColor(m.tree.SpaceView.Space.Color)).
		Width(m.tree.Width).
		Height(m.tree.Height)

	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.detail.Width).
		Height(m.detail.Height)

	var detailContent string
	if node := m.tree.SelectedNode(); node != nil {
		switch {
		case node.Tab != nil:
			detailContent = m.detail.ViewTab(node.Tab, m.state)
		case node.Kind == NodeSection:
			detailContent = m.detail.ViewGroup(node.Section)
		}
	}

	left := treeBorder.Render(m.tree.View())
	right := detailBorder.Render(m.detail.ViewScrolled(detailContent))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	// Bottom bar
	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	bottomText := "enter open/collapse · x close · d remove · p pin · g group · s sub-group · a auto-group · n new group · 1-4 space · S new space · e export · F seed · q quit"
	if m.status != "" {
		bottomText = m.status + "  │  " + bottomText
	}
	bottomBar := bottomBarStyle.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, panes, bottomBar)
}
