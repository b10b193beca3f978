package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/logtail"
	"github.com/five82/devpanel/internal/state"
)

// Backend log types plus devpanel's own log file.
const (
	sourceSystem = "system"
	sourceDocker = "docker"
	sourceClient = "client"
)

var levelFilters = []string{"", "error", "warning", "info", "debug"}

// clientLogsMsg carries the tail of devpanel's own log file.
type clientLogsMsg struct {
	entries []backend.LogEntry
	err     error
}

// logsPage shows the backend log tail.
type logsPage struct {
	env     pageEnv
	snap    state.Snapshot
	width   int
	height  int
	vp      viewport.Model
	sources []string
	source  int // index into sources
	level   int // index into levelFilters
	follow  bool
	fetched time.Time

	client    []backend.LogEntry
	clientErr error
}

func newLogsPage(env pageEnv) *logsPage {
	sources := []string{sourceSystem, sourceDocker}
	if env.clientLog != "" {
		sources = append(sources, sourceClient)
	}
	return &logsPage{env: env, vp: viewport.New(0, 0), follow: true, sources: sources}
}

func (p *logsPage) setSize(width, height int) {
	p.width, p.height = width, height
	p.vp.Width = width
	p.vp.Height = max(height-1, 1)
}

func (p *logsPage) setSnapshot(snap state.Snapshot) { p.snap = snap }

func (p *logsPage) capturing() bool { return false }

func (p *logsPage) current() string { return p.sources[p.source] }

func (p *logsPage) query() backend.LogQuery {
	return backend.LogQuery{Type: p.current(), Lines: LogLines}
}

// enter points the poller at the selected source and fetches immediately.
func (p *logsPage) enter() tea.Cmd {
	return p.fetch(time.Now())
}

func (p *logsPage) fetch(now time.Time) tea.Cmd {
	if p.current() == sourceClient {
		p.fetched = now
		path := p.env.clientLog
		return func() tea.Msg {
			entries, err := logtail.Entries(path, LogLines)
			return clientLogsMsg{entries: entries, err: err}
		}
	}
	if p.env.store == nil {
		return nil
	}
	p.fetched = now
	params := p.query().Values()
	p.env.store.SetLogQuery(params)
	store := p.env.store
	return p.env.background(func(ctx context.Context) { store.FetchLogs(ctx, params) })
}

func (p *logsPage) tick(now time.Time) tea.Cmd {
	if !p.follow || now.Sub(p.fetched) < LogRefreshInterval {
		return nil
	}
	return p.fetch(now)
}

func (p *logsPage) handleMsg(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(clientLogsMsg); ok {
		p.client = msg.entries
		p.clientErr = msg.err
	}
	return nil
}

func (p *logsPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.ToggleFollow):
		p.follow = !p.follow
		if p.follow {
			p.vp.GotoBottom()
		}
	case key.Matches(msg, keys.ToggleLogSource):
		p.source = (p.source + 1) % len(p.sources)
		return p.fetch(time.Now())
	case key.Matches(msg, keys.CycleLevel):
		p.level = (p.level + 1) % len(levelFilters)
	case key.Matches(msg, keys.Down):
		p.follow = false
		p.vp.ScrollDown(1)
	case key.Matches(msg, keys.Up):
		p.follow = false
		p.vp.ScrollUp(1)
	case key.Matches(msg, keys.PageDown):
		p.follow = false
		p.vp.PageDown()
	case key.Matches(msg, keys.PageUp):
		p.follow = false
		p.vp.PageUp()
	case key.Matches(msg, keys.Top):
		p.follow = false
		p.vp.GotoTop()
	case key.Matches(msg, keys.Bottom):
		p.follow = true
		p.vp.GotoBottom()
	}
	return nil
}

func (p *logsPage) commands() []command {
	followLabel := "Pause"
	if !p.follow {
		followLabel = "Follow"
	}
	level := levelFilters[p.level]
	if level == "" {
		level = "all"
	}
	return []command{
		{"Space", followLabel},
		{"s", p.sources[(p.source+1)%len(p.sources)]},
		{"f", level},
		{"j/k", "Scroll"},
	}
}

// entries returns the lines of the selected source.
func (p *logsPage) entries() ([]backend.LogEntry, error) {
	if p.current() == sourceClient {
		return p.client, p.clientErr
	}
	return p.snap.Logs, p.snap.Errors[state.ResourceLogs]
}

// visible returns the entries that pass the level filter.
func (p *logsPage) visible() []backend.LogEntry {
	all, _ := p.entries()
	want := levelFilters[p.level]
	if want == "" {
		return all
	}
	out := make([]backend.LogEntry, 0, len(all))
	for _, e := range all {
		if normalizeLevel(e.Level) == want {
			out = append(out, e)
		}
	}
	return out
}

func normalizeLevel(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == "warn" {
		return "warning"
	}
	return l
}

func (p *logsPage) render(th Theme) string {
	styles := th.Styles()
	all, fetchErr := p.entries()
	entries := p.visible()

	status := fmt.Sprintf("%s logs  %d/%d lines", p.current(), len(entries), len(all))
	summary := styles.MutedText.Render(status)
	if p.follow {
		summary += "  " + styles.SuccessText.Render("following")
	}
	if p.snap.Loading.Logs && p.current() != sourceClient {
		summary += styles.FaintText.Render("  loading")
	}
	if fetchErr != nil {
		summary += "  " + styles.DangerText.Render(truncate(fetchErr.Error(), max(p.width-40, 10)))
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatLogLine(styles, e, p.width))
	}
	if len(lines) == 0 {
		lines = append(lines, styles.MutedText.Render("No log lines"))
	}

	p.vp.SetContent(strings.Join(lines, "\n"))
	if p.follow {
		p.vp.GotoBottom()
	}
	return summary + "\n" + p.vp.View()
}

func formatLogLine(styles Styles, e backend.LogEntry, width int) string {
	var parts []string
	if t := e.ParsedTime(); !t.IsZero() {
		parts = append(parts, styles.FaintText.Render(t.Local().Format("15:04:05")))
	} else if e.Timestamp != "" {
		parts = append(parts, styles.FaintText.Render(truncate(e.Timestamp, 19)))
	}
	if e.Level != "" {
		parts = append(parts, styles.LevelText(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(truncate(e.Level, 5)))))
	}
	if e.Source != "" {
		parts = append(parts, styles.AccentText.Render(e.Source))
	}
	used := 0
	for _, part := range parts {
		used += lipgloss.Width(part) + 1
	}
	parts = append(parts, styles.Text.Render(truncate(e.Message, max(width-used, 10))))
	return strings.Join(parts, " ")
}
