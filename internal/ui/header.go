package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/devpanel/internal/state"
)

// renderHeader renders the status bar: connection, health and freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().OnSurface()
	line := newBarLine(m.theme.Surface)
	snap := m.snapshot

	line.add("devpanel", styles.Logo)
	label, style := connectionLabel(styles, snap)
	line.add("● "+label, style)

	sys := snap.SystemHealth()
	line.addRaw(styles.HealthBadge(sys).Render("SYS " + healthLabel(sys)))
	cluster := snap.ClusterHealth()
	line.addRaw(styles.HealthBadge(cluster).Render("CLUSTER " + healthLabel(cluster)))

	line.add(fmt.Sprintf("CPU %.0f%%", snap.Metrics.CPUUsage), styles.Text)
	line.add(fmt.Sprintf("Nodes %d/%d", snap.ClusterStatus.OnlineNodes, snap.ClusterStatus.TotalNodes), styles.Text)
	line.add(fmt.Sprintf("Plugins %d/%d", snap.Plugins.Enabled, snap.Plugins.Total), styles.Text)

	if snap.Loading.Any() {
		line.add(m.spinner.View(), styles.AccentText)
	}
	if n := len(snap.Errors); n > 0 {
		line.add(fmt.Sprintf("%d failing", n), styles.DangerText)
	}
	if snap.SystemInfo.Version != "" {
		line.add("v"+snap.SystemInfo.Version, styles.FaintText)
	}
	if m.width >= LayoutWideWidth && m.config != nil {
		line.add(m.config.APIURL, styles.FaintText)
	}
	if !m.lastUpdated.IsZero() {
		line.add(m.lastUpdated.Format("15:04:05"), styles.MutedText)
	}

	return line.render(m.width, 2)
}

func connectionLabel(styles Styles, snap state.Snapshot) (string, lipgloss.Style) {
	if snap.IsConnected() {
		return "LIVE", styles.SuccessText
	}
	switch snap.PushState {
	case state.PushConnecting:
		return "CONNECTING", styles.WarningText.Bold(true)
	case state.PushDisconnected:
		return "OFFLINE", styles.DangerText
	default:
		return "POLLING", styles.MutedText
	}
}

// renderTabs renders one tab per registered route.
func (m Model) renderTabs() string {
	styles := m.theme.Styles().OnSurface()
	line := newBarLine(m.theme.Surface)
	active := lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.FocusBg)).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true).
		Padding(0, 1)

	for i, route := range m.routes.Routes() {
		label := fmt.Sprintf("%d %s", i+1, route.Name)
		if route.Path == m.route {
			line.addRaw(active.Render(label))
			continue
		}
		line.add(" "+label+" ", styles.MutedText)
	}
	return line.render(m.width, 1)
}

// renderCommandBar renders the key hints for the active page.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().OnSurface()
	line := newBarLine(m.theme.Surface)

	var commands []command
	if m.page != nil {
		commands = m.page.commands()
	}
	if m.page == nil || !m.page.capturing() {
		commands = append(commands, command{"tab", "Page"}, command{"?", "More"})
	}
	for _, c := range commands {
		line.addPair(c.key, c.desc, styles.AccentText, styles.MutedText)
	}

	if m.flash != "" && m.now.Sub(m.flashAt) < FlashDuration {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		line.add(truncate(m.flash, max(m.width/3, 20)), style)
	}

	line.addPair("T", m.theme.Name, styles.AccentText, styles.FaintText)
	return line.render(m.width, 2)
}

// renderContent renders the active page inside the space left by the chrome.
func (m Model) renderContent() string {
	if m.page == nil {
		return m.theme.Styles().DangerText.Render("No view for " + m.route)
	}
	return lipgloss.NewStyle().
		Height(m.contentHeight()).
		MaxHeight(m.contentHeight()).
		Render(m.page.render(m.theme))
}
