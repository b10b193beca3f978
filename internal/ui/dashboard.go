package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/logger"
	"github.com/five82/devpanel/internal/state"
)

// dashboardPage shows metrics, cluster state, plugins and build info.
type dashboardPage struct {
	env      pageEnv
	snap     state.Snapshot
	width    int
	height   int
	vp       viewport.Model
	selected int // index into pluginNames()
}

func newDashboardPage(env pageEnv) *dashboardPage {
	return &dashboardPage{env: env, vp: viewport.New(0, 0)}
}

func (p *dashboardPage) setSize(width, height int) {
	p.width, p.height = width, height
	p.vp.Width = width
	p.vp.Height = height
}

func (p *dashboardPage) setSnapshot(snap state.Snapshot) {
	p.snap = snap
	if n := len(snap.Plugins.Available); p.selected >= n {
		p.selected = max(n-1, 0)
	}
}

// enter asks the push channel for fresh metrics when it is up.
func (p *dashboardPage) enter() tea.Cmd {
	store := p.env.store
	return p.env.background(func(context.Context) {
		if !store.Snapshot().IsConnected() {
			return
		}
		if err := store.RequestMetrics(); err != nil {
			log := logger.WithComponent("ui")
			log.Warn().Err(err).Msg("request metrics")
		}
	})
}

func (p *dashboardPage) tick(time.Time) tea.Cmd { return nil }
func (p *dashboardPage) capturing() bool        { return false }

func (p *dashboardPage) handleMsg(tea.Msg) tea.Cmd { return nil }

func (p *dashboardPage) pluginNames() []string {
	return sortedKeys(p.snap.Plugins.Available)
}

func (p *dashboardPage) selectedPlugin() (string, bool) {
	names := p.pluginNames()
	if p.selected < 0 || p.selected >= len(names) {
		return "", false
	}
	return names[p.selected], true
}

func (p *dashboardPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	count := len(p.snap.Plugins.Available)
	switch {
	case key.Matches(msg, keys.Down):
		if p.selected < count-1 {
			p.selected++
		}
	case key.Matches(msg, keys.Up):
		if p.selected > 0 {
			p.selected--
		}
	case key.Matches(msg, keys.Top):
		p.selected = 0
		p.vp.GotoTop()
	case key.Matches(msg, keys.Bottom):
		p.selected = max(count-1, 0)
		p.vp.GotoBottom()
	case key.Matches(msg, keys.PageDown):
		p.vp.PageDown()
	case key.Matches(msg, keys.PageUp):
		p.vp.PageUp()
	case key.Matches(msg, keys.TogglePlugin):
		name, ok := p.selectedPlugin()
		if !ok {
			return nil
		}
		enable := !p.snap.Plugins.Available[name].Enabled
		verb := "disable"
		if enable {
			verb = "enable"
		}
		store := p.env.store
		return p.env.action(verb+" "+name, func(ctx context.Context) error {
			return store.TogglePlugin(ctx, name, enable)
		})
	case key.Matches(msg, keys.HealthCheck):
		store := p.env.store
		return p.env.action("health check", func(ctx context.Context) error {
			return store.RunHealthCheck(ctx, "")
		})
	}
	return nil
}

func (p *dashboardPage) commands() []command {
	return []command{
		{"j/k", "Plugins"},
		{"Space", "Toggle"},
		{"x", "Health check"},
		{"r", "Refresh"},
		{"R", "Reconnect"},
	}
}

func (p *dashboardPage) render(th Theme) string {
	styles := th.Styles()

	var left, right []string
	if p.width >= LayoutCompactWidth {
		col := p.width / 2
		left = []string{p.systemPanel(styles, col), p.clusterPanel(styles, col)}
		right = []string{p.pluginsPanel(styles, p.width-col), p.infoPanel(styles, p.width-col)}
	} else {
		left = []string{
			p.systemPanel(styles, p.width),
			p.clusterPanel(styles, p.width),
			p.pluginsPanel(styles, p.width),
			p.infoPanel(styles, p.width),
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left, left...)
	if len(right) > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, lipgloss.JoinVertical(lipgloss.Left, right...))
	}
	if problems := p.problemsPanel(styles, p.width); problems != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, problems)
	}

	p.vp.SetContent(body)
	return p.vp.View()
}

// panel frames content with a title and an optional badge. width is the
// outer width including the border.
func panel(styles Styles, width int, title, badge, content string) string {
	head := styles.PanelTitle.Render(title)
	if badge != "" {
		head += " " + badge
	}
	inner := max(width-2, 10)
	return styles.Panel.Width(inner).Render(head + "\n" + content)
}

func (p *dashboardPage) systemPanel(styles Styles, width int) string {
	m := p.snap.Metrics
	health := p.snap.SystemHealth()
	barWidth := max(min(width-36, 30), 6)

	var b strings.Builder
	row := func(label string, percent float64, detail string) {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%-7s", label)))
		b.WriteString(" ")
		b.WriteString(styles.AccentText.Render(meter(percent, barWidth)))
		b.WriteString(" ")
		b.WriteString(styles.Text.Render(fmt.Sprintf("%5.1f%%", percent)))
		if detail != "" {
			b.WriteString("  ")
			b.WriteString(styles.FaintText.Render(detail))
		}
		b.WriteString("\n")
	}
	row("CPU", m.CPUUsage, "")
	row("Memory", m.Memory.Percent, usageDetail(m.Memory))
	row("Disk", m.Disk.Percent, usageDetail(m.Disk))

	values := make([]float64, 0, len(p.snap.CPUHistory))
	for _, sample := range p.snap.CPUHistory {
		values = append(values, sample.Value)
	}
	sparkWidth := max(width-14, 8)
	b.WriteString(styles.MutedText.Render("CPU hist"))
	b.WriteString(" ")
	b.WriteString(styles.HealthText(health).Render(sparkline(values, sparkWidth, 0, 100)))
	b.WriteString("\n")

	b.WriteString(styles.FaintText.Render("updated " + updatedLabel(p.snap.LastUpdated[state.ResourceMetrics], m.ParsedTimestamp())))

	return panel(styles, width, "System", styles.HealthBadge(health).Render(healthLabel(health)), b.String())
}

func usageDetail(u backend.Usage) string {
	if u.Total <= 1 && u.Used == 0 {
		return ""
	}
	return state.FormatBytes(u.Used) + " / " + state.FormatBytes(u.Total)
}

func (p *dashboardPage) clusterPanel(styles Styles, width int) string {
	c := p.snap.ClusterStatus
	health := p.snap.ClusterHealth()

	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Nodes   "))
	b.WriteString(styles.Text.Render(fmt.Sprintf("%d/%d online", c.OnlineNodes, c.TotalNodes)))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Active  "))
	b.WriteString(serverList(styles.SuccessText, styles.FaintText, c.ActiveServers, width-12))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Failed  "))
	b.WriteString(serverList(styles.DangerText, styles.FaintText, c.FailedServers, width-12))

	return panel(styles, width, "Cluster", styles.HealthBadge(health).Render(healthLabel(health)), b.String())
}

func serverList(style, empty lipgloss.Style, servers []string, width int) string {
	if len(servers) == 0 {
		return empty.Render("none")
	}
	return style.Render(truncate(strings.Join(servers, ", "), width))
}

func (p *dashboardPage) pluginsPanel(styles Styles, width int) string {
	plugins := p.snap.Plugins
	names := p.pluginNames()

	var b strings.Builder
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("%d of %d enabled", plugins.Enabled, plugins.Total)))
	if p.snap.Loading.Plugins {
		b.WriteString(styles.FaintText.Render("  loading"))
	}
	if len(names) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("No plugins reported"))
	}
	for i, name := range names {
		plugin := plugins.Available[name]
		marker := styles.FaintText.Render("○")
		if plugin.Enabled {
			marker = styles.SuccessText.Render("●")
		}
		line := name
		if plugin.Version != "" {
			line += " " + plugin.Version
		}
		if plugin.Description != "" {
			line += "  " + plugin.Description
		}
		line = truncate(line, max(width-8, 8))
		b.WriteString("\n")
		if i == p.selected {
			b.WriteString(marker + " " + styles.Selected.Render(line))
		} else {
			b.WriteString(marker + " " + styles.Text.Render(line))
		}
	}
	return panel(styles, width, "Plugins", "", b.String())
}

func (p *dashboardPage) infoPanel(styles Styles, width int) string {
	info := p.snap.SystemInfo
	rows := [][2]string{
		{"Version", info.Version},
		{"Author", info.Author},
		{"Email", info.Email},
		{"Created", info.CreateDate},
	}
	for _, k := range sortedKeys(info.Extra) {
		rows = append(rows, [2]string{k, formatValue(info.Extra[k])})
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%-8s", r[0])))
		b.WriteString(" ")
		b.WriteString(styles.Text.Render(truncate(r[1], max(width-14, 8))))
	}
	return panel(styles, width, "Backend", "", b.String())
}

// problemsPanel lists the last failure per resource. Empty when all is well.
func (p *dashboardPage) problemsPanel(styles Styles, width int) string {
	if len(p.snap.Errors) == 0 && p.snap.PushError == nil {
		return ""
	}
	var lines []string
	if p.snap.PushError != nil {
		lines = append(lines, styles.DangerText.Render("push")+" "+
			styles.Text.Render(truncate(p.snap.PushError.Error(), width-14)))
	}
	for _, res := range state.Resources {
		err := p.snap.Errors[res]
		if err == nil {
			continue
		}
		lines = append(lines, styles.DangerText.Render(string(res))+" "+
			styles.Text.Render(truncate(err.Error(), width-len(res)-6)))
	}
	return panel(styles, width, "Problems", "", strings.Join(lines, "\n"))
}

func healthLabel(h state.Health) string {
	switch h {
	case state.HealthDanger:
		return "CRITICAL"
	case state.HealthWarning:
		return "DEGRADED"
	default:
		return "HEALTHY"
	}
}

// updatedLabel prefers the backend sample time and falls back to when the
// store last applied the resource.
func updatedLabel(applied, reported time.Time) string {
	switch {
	case !reported.IsZero():
		return reported.Local().Format("15:04:05")
	case !applied.IsZero():
		return applied.Local().Format("15:04:05")
	default:
		return "never"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
