package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// truncate shortens s to at most limit runes, ending with an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// formatValue renders a decoded JSON value on one line. Strings print
// without quotes; everything else prints as compact JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// parseConfigValue turns edited text back into a JSON value. Text that is
// not valid JSON is sent as a plain string.
func parseConfigValue(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return v
	}
	return text
}
