package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/devpanel/internal/config"
	"github.com/five82/devpanel/internal/nav"
	"github.com/five82/devpanel/internal/prefs"
	"github.com/five82/devpanel/internal/state"
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Store      *state.Store
	Config     *config.Config
	PollTick   time.Duration
	ThemeName  string
	StartRoute string // unknown paths fall back to the dashboard
	PrefsPath  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     storeAPI
	config    *config.Config
	prefsPath string
	pollTick  time.Duration
	changes   <-chan struct{}

	// UI state
	theme    Theme
	routes   *nav.Map[page]
	route    string
	page     page
	width    int
	height   int
	ready    bool
	showHelp bool
	spinner  spinner.Model
	now      time.Time

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Last action result, shown in the command bar
	flash    string
	flashErr bool
	flashAt  time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	var store storeAPI
	if opts.Store != nil {
		store = opts.Store
	}
	return newModel(opts, store)
}

func newModel(opts Options, store storeAPI) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		ctx:       ctx,
		store:     store,
		config:    opts.Config,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		theme:     GetTheme(opts.ThemeName),
		routes:    newRoutes(pageEnv{ctx: ctx, store: store, clientLog: clientLogPath(opts.Config)}),
		spinner:   spin,
		now:       time.Now(),
	}
	if store != nil {
		m.snapshot = store.Snapshot()
	}

	start := nav.PathDashboard
	if route, ok := m.routes.Resolve(opts.StartRoute); ok {
		start = route.Path
	}
	if err := m.show(start); err != nil {
		m.setFlash(err.Error(), true)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	if m.page != nil {
		cmds = append(cmds, m.page.enter())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		if m.page != nil {
			m.page.setSize(m.width, m.contentHeight())
		}
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case storeChangedMsg:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		cmds = append(cmds, waitForChange(m.changes))
		return m, tea.Batch(cmds...)

	case actionResultMsg:
		if msg.err != nil {
			m.setFlash(msg.label+": "+msg.err.Error(), true)
			return m, nil
		}
		m.setFlash(msg.label+": ok", false)
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.page != nil {
		return m, m.page.handleMsg(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input. Global bindings win unless the page
// is capturing text.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.page != nil && m.page.capturing() {
		if msg.String() == "ctrl+c" {
			m.savePrefs()
			return m, tea.Quit
		}
		return m, m.page.handleKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.savePrefs()
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, keys.Tab):
		cmd := m.cycle(1)
		return m, cmd

	case key.Matches(msg, keys.ShiftTab):
		cmd := m.cycle(-1)
		return m, cmd

	case key.Matches(msg, keys.Escape):
		cmd := m.navigate(nav.PathDashboard)
		return m, cmd

	case key.Matches(msg, keys.ViewDashboard):
		cmd := m.navigate(nav.PathDashboard)
		return m, cmd

	case key.Matches(msg, keys.ViewConfig):
		cmd := m.navigate(nav.PathConfig)
		return m, cmd

	case key.Matches(msg, keys.ViewLogs):
		cmd := m.navigate(nav.PathLogs)
		return m, cmd

	case key.Matches(msg, keys.Refresh):
		store := m.store
		return m, pageEnv{ctx: m.ctx, store: store}.action("refresh", func(ctx context.Context) error {
			if err := store.RefreshAll(ctx); err != nil {
				return err
			}
			if store.Snapshot().IsConnected() {
				return store.RequestStatus()
			}
			return nil
		})

	case key.Matches(msg, keys.Reconnect):
		store := m.store
		return m, pageEnv{ctx: m.ctx, store: store}.action("reconnect", func(ctx context.Context) error {
			return store.Reconnect(ctx)
		})
	}

	if m.page != nil {
		return m, m.page.handleKey(msg)
	}
	return m, nil
}

// handleTick processes the UI tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.page != nil {
		if cmd := m.page.tick(now); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.lastUpdated = time.Now()
	if m.page != nil {
		m.page.setSnapshot(snap)
	}
}

// show activates the page at path without side effects beyond loading it.
func (m *Model) show(path string) error {
	p, err := m.routes.Load(path)
	if err != nil {
		return err
	}
	m.route = nav.Normalize(path)
	m.page = p
	p.setSize(m.width, m.contentHeight())
	p.setSnapshot(m.snapshot)
	return nil
}

// navigate switches to path, remembers it and runs the page's enter hook.
func (m *Model) navigate(path string) tea.Cmd {
	route, ok := m.routes.Resolve(path)
	if !ok {
		m.setFlash(fmt.Sprintf("%v: %s", nav.ErrNoRoute, path), true)
		return nil
	}
	if route.Path == m.route && m.page != nil {
		return nil
	}
	if err := m.show(route.Path); err != nil {
		m.setFlash(err.Error(), true)
		return nil
	}
	m.savePrefs()
	return m.page.enter()
}

// cycle moves delta routes forward or backward, wrapping around.
func (m *Model) cycle(delta int) tea.Cmd {
	routes := m.routes.Routes()
	if len(routes) == 0 {
		return nil
	}
	idx := 0
	for i, r := range routes {
		if r.Path == m.route {
			idx = i
			break
		}
	}
	next := ((idx+delta)%len(routes) + len(routes)) % len(routes)
	return m.navigate(routes[next].Path)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastRoute: m.route})
	if err != nil {
		m.setFlash("save prefs: "+err.Error(), true)
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = strings.TrimSpace(text)
	m.flashErr = isErr
	m.flashAt = m.now
}

// clientLogPath returns the log file devpanel writes to, or "" when it logs
// to a stream.
func clientLogPath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	switch path := strings.TrimSpace(cfg.LogFile); path {
	case "", "stderr", "stdout", "discard":
		return ""
	default:
		return path
	}
}

func (m Model) contentHeight() int {
	return max(m.height-chromeHeight, 1)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type storeChangedMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store storeAPI) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForChange blocks on the store subscription. A closed channel ends the
// wait without a message.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	if opts.Store != nil {
		changes, unsubscribe := opts.Store.Subscribe()
		defer unsubscribe()
		m.changes = changes
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	_, err := tea.NewProgram(m, programOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
