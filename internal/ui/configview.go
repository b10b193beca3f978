package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/devpanel/internal/state"
)

// configPage lists backend configuration keys and edits one at a time.
type configPage struct {
	env    pageEnv
	snap   state.Snapshot
	keys   []string
	width  int
	height int
	vp     viewport.Model

	selected int
	editing  bool
	editKey  string
	input    textinput.Model
}

func newConfigPage(env pageEnv) *configPage {
	input := textinput.New()
	input.Prompt = "= "
	input.CharLimit = 4096
	return &configPage{env: env, vp: viewport.New(0, 0), input: input}
}

func (p *configPage) setSize(width, height int) {
	p.width, p.height = width, height
	p.vp.Width = width
	p.vp.Height = max(height-2, 1) // summary and edit line
	p.input.Width = max(width-len(p.editKey)-8, 10)
}

func (p *configPage) setSnapshot(snap state.Snapshot) {
	p.snap = snap
	p.keys = sortedKeys(snap.Config)
	if p.selected >= len(p.keys) {
		p.selected = max(len(p.keys)-1, 0)
	}
}

// enter pulls a fresh copy of the configuration.
func (p *configPage) enter() tea.Cmd {
	store := p.env.store
	return p.env.background(func(ctx context.Context) { store.FetchConfig(ctx) })
}

func (p *configPage) tick(time.Time) tea.Cmd { return nil }

func (p *configPage) capturing() bool { return p.editing }

// handleMsg keeps the cursor blinking while editing.
func (p *configPage) handleMsg(msg tea.Msg) tea.Cmd {
	if !p.editing {
		return nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *configPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.editing {
		return p.handleEditKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Down):
		if p.selected < len(p.keys)-1 {
			p.selected++
		}
	case key.Matches(msg, keys.Up):
		if p.selected > 0 {
			p.selected--
		}
	case key.Matches(msg, keys.Top):
		p.selected = 0
	case key.Matches(msg, keys.Bottom):
		p.selected = max(len(p.keys)-1, 0)
	case key.Matches(msg, keys.PageDown):
		p.selected = min(p.selected+p.vp.Height, max(len(p.keys)-1, 0))
	case key.Matches(msg, keys.PageUp):
		p.selected = max(p.selected-p.vp.Height, 0)
	case key.Matches(msg, keys.Edit):
		return p.startEdit()
	}
	return nil
}

func (p *configPage) startEdit() tea.Cmd {
	if p.selected >= len(p.keys) {
		return nil
	}
	p.editKey = p.keys[p.selected]
	p.editing = true
	p.input.SetValue(formatValue(p.snap.Config[p.editKey]))
	p.input.CursorEnd()
	p.input.Width = max(p.width-len(p.editKey)-8, 10)
	return p.input.Focus()
}

func (p *configPage) stopEdit() {
	p.editing = false
	p.input.Blur()
	p.input.SetValue("")
}

func (p *configPage) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		p.stopEdit()
		return nil
	case "enter":
		name := p.editKey
		value := parseConfigValue(p.input.Value())
		p.stopEdit()
		store := p.env.store
		return p.env.action("set "+name, func(ctx context.Context) error {
			return store.UpdateConfig(ctx, name, value)
		})
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *configPage) commands() []command {
	if p.editing {
		return []command{{"enter", "Save"}, {"esc", "Cancel"}}
	}
	return []command{
		{"j/k", "Select"},
		{"e", "Edit"},
		{"g/G", "Top/Bottom"},
		{"r", "Refresh"},
	}
}

func (p *configPage) render(th Theme) string {
	styles := th.Styles()

	summary := styles.MutedText.Render(fmt.Sprintf("%d keys", len(p.keys)))
	if p.snap.Loading.Config {
		summary += styles.FaintText.Render("  loading")
	}
	if err := p.snap.Errors[state.ResourceConfig]; err != nil {
		summary += "  " + styles.DangerText.Render(truncate(err.Error(), max(p.width-20, 10)))
	}

	keyWidth := 0
	for _, k := range p.keys {
		keyWidth = max(keyWidth, len(k))
	}
	keyWidth = min(keyWidth, max(p.width/3, 8))

	rows := make([]string, 0, len(p.keys))
	for i, k := range p.keys {
		name := fmt.Sprintf("%-*s", keyWidth, truncate(k, keyWidth))
		value := truncate(formatValue(p.snap.Config[k]), max(p.width-keyWidth-4, 8))
		if i == p.selected {
			rows = append(rows, styles.Selected.Render(name+"  "+value))
			continue
		}
		rows = append(rows, styles.AccentText.Render(name)+"  "+styles.Text.Render(value))
	}
	if len(rows) == 0 {
		rows = append(rows, styles.MutedText.Render("No configuration loaded"))
	}

	p.vp.SetContent(strings.Join(rows, "\n"))
	p.follow()

	footer := ""
	if p.editing {
		footer = styles.AccentText.Render(p.editKey) + " " + p.input.View()
	}
	return summary + "\n" + p.vp.View() + "\n" + footer
}

// follow scrolls the viewport so the selected row is visible.
func (p *configPage) follow() {
	switch {
	case p.selected < p.vp.YOffset:
		p.vp.SetYOffset(p.selected)
	case p.selected >= p.vp.YOffset+p.vp.Height:
		p.vp.SetYOffset(p.selected - p.vp.Height + 1)
	}
}
