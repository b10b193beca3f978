package ui

import (
	"context"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/devpanel/internal/nav"
	"github.com/five82/devpanel/internal/state"
)

// storeAPI is the part of state.Store the UI drives.
type storeAPI interface {
	Snapshot() state.Snapshot
	RefreshAll(ctx context.Context) error
	Reconnect(ctx context.Context) error
	FetchConfig(ctx context.Context)
	FetchLogs(ctx context.Context, params url.Values)
	SetLogQuery(params url.Values)
	UpdateConfig(ctx context.Context, key string, value any) error
	TogglePlugin(ctx context.Context, name string, enabled bool) error
	RunHealthCheck(ctx context.Context, server string) error
	RequestStatus() error
	RequestMetrics() error
}

// page is one routed view. Pages are pointers shared by every copy of the
// Model, so they may keep their own scroll and selection state.
type page interface {
	setSize(width, height int)
	setSnapshot(snap state.Snapshot)
	// enter runs when the page becomes active.
	enter() tea.Cmd
	// tick runs on every UI tick while the page is active.
	tick(now time.Time) tea.Cmd
	handleKey(msg tea.KeyMsg) tea.Cmd
	// handleMsg receives messages the root model does not handle itself.
	handleMsg(msg tea.Msg) tea.Cmd
	// capturing reports whether the page owns every key, e.g. during text
	// entry.
	capturing() bool
	commands() []command
	render(th Theme) string
}

type command struct{ key, desc string }

// pageEnv is handed to every page.
type pageEnv struct {
	ctx       context.Context
	store     storeAPI
	clientLog string // devpanel's own log file; empty hides the client source
}

// actionResultMsg reports the outcome of a user-triggered request.
type actionResultMsg struct {
	label string
	err   error
}

// action runs fn with a bounded context and reports the result.
func (e pageEnv) action(label string, fn func(ctx context.Context) error) tea.Cmd {
	if e.store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(e.ctx, ActionTimeout)
		defer cancel()
		return actionResultMsg{label: label, err: fn(ctx)}
	}
}

// background runs fn with a bounded context. Results reach the UI through the
// store, so the command produces no message.
func (e pageEnv) background(fn func(ctx context.Context)) tea.Cmd {
	if e.store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(e.ctx, ActionTimeout)
		defer cancel()
		fn(ctx)
		return nil
	}
}

// newRoutes builds the navigation map. Each page is created on first visit.
func newRoutes(env pageEnv) *nav.Map[page] {
	return nav.Default(
		func() (page, error) { return newDashboardPage(env), nil },
		func() (page, error) { return newConfigPage(env), nil },
		func() (page, error) { return newLogsPage(env), nil },
	)
}
