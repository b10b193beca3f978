package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// barLine assembles one full-width line of styled segments on a single
// background. Lipgloss emits a reset after every styled run, so gaps between
// segments must carry the background explicitly or they show the terminal
// color through.
type barLine struct {
	bg       lipgloss.Color
	segments []string
}

func newBarLine(bgColor string) *barLine {
	return &barLine{bg: lipgloss.Color(bgColor)}
}

// add appends text rendered with style on the line background. Empty text
// is skipped.
func (b *barLine) add(text string, style lipgloss.Style) *barLine {
	if text == "" {
		return b
	}
	b.segments = append(b.segments, style.Background(b.bg).Render(text))
	return b
}

// addPair appends "key:desc" with the key and description in their own styles.
func (b *barLine) addPair(key, desc string, keyStyle, descStyle lipgloss.Style) *barLine {
	b.segments = append(b.segments,
		keyStyle.Background(b.bg).Render(key)+
			b.fill(":")+
			descStyle.Background(b.bg).Render(desc))
	return b
}

// addRaw appends an already rendered segment.
func (b *barLine) addRaw(rendered string) *barLine {
	if rendered != "" {
		b.segments = append(b.segments, rendered)
	}
	return b
}

func (b *barLine) fill(s string) string {
	return lipgloss.NewStyle().Background(b.bg).Render(s)
}

// render joins the segments with gap spaces and pads to width.
func (b *barLine) render(width, gap int) string {
	content := strings.Join(b.segments, b.fill(strings.Repeat(" ", gap)))
	return lipgloss.NewStyle().
		Background(b.bg).
		Width(max(width, 0)).
		MaxHeight(1).
		Padding(0, 1).
		Render(content)
}
