package ui

import (
	"math"
	"strings"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the newest width values scaled to [lo, hi]. Values outside
// the range are clamped. Fewer values than width are right aligned with
// spaces so the newest sample always sits at the right edge.
func sparkline(values []float64, width int, lo, hi float64) string {
	if width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(values)))
	top := float64(len(sparkBlocks) - 1)
	for _, v := range values {
		if math.IsNaN(v) {
			v = lo
		}
		ratio := (v - lo) / span
		ratio = math.Max(0, math.Min(1, ratio))
		b.WriteRune(sparkBlocks[int(math.Round(ratio*top))])
	}
	return b.String()
}

// meter draws a horizontal percentage bar of width cells.
func meter(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(percent) {
		percent = 0
	}
	percent = math.Max(0, math.Min(100, percent))
	filled := int(math.Round(percent / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
