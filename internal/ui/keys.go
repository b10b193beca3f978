package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	Reconnect  key.Binding

	// Page switching
	ViewDashboard key.Binding
	ViewConfig    key.Binding
	ViewLogs      key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Dashboard
	TogglePlugin key.Binding
	HealthCheck  key.Binding

	// Config
	Edit    key.Binding
	Confirm key.Binding

	// Logs
	ToggleFollow    key.Binding
	ToggleLogSource key.Binding
	CycleLevel      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next page"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous page"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Return to dashboard"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh everything"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reconnect push channel"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("1", "d"),
			key.WithHelp("1/d", "Dashboard"),
		),
		ViewConfig: key.NewBinding(
			key.WithKeys("2", "c"),
			key.WithHelp("2/c", "Config"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("3", "l"),
			key.WithHelp("3/l", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),

		TogglePlugin: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("Space", "Enable/disable plugin"),
		),
		HealthCheck: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Run cluster health check"),
		),

		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "Edit value"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		ToggleLogSource: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle system/docker logs"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle level filter"),
		),
	}
}

// keys is shared by every page.
var keys = DefaultKeyMap()

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.ViewDashboard, k.ViewConfig, k.ViewLogs, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.TogglePlugin, k.HealthCheck},
		{k.Edit},
		{k.ToggleFollow, k.ToggleLogSource, k.CycleLevel},
		{k.Refresh, k.Reconnect, k.CycleTheme, k.Help, k.Quit},
	}
}
