package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/five82/devpanel/internal/backend"
)

// maxLineBytes caps a single log line; longer lines fail the read.
const maxLineBytes = 1 << 20

// Read returns at most limit lines from the end of the file at path, oldest
// first. A missing file is not an error.
func Read(path string, limit int) ([]string, error) {
	if limit <= 0 || strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	tail := newWindow(limit)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		tail.push(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return tail.lines(), nil
}

// Entries reads the tail of a devpanel log file and decodes each line.
func Entries(path string, limit int) ([]backend.LogEntry, error) {
	lines, err := Read(path, limit)
	if err != nil {
		return nil, err
	}
	out := make([]backend.LogEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseLine(line))
	}
	return out, nil
}

// ParseLine decodes one zerolog JSON line. Lines that are not JSON objects
// become a bare message.
func ParseLine(line string) backend.LogEntry {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return backend.LogEntry{Message: line}
	}

	entry := backend.LogEntry{
		Timestamp: stringField(fields, "time"),
		Level:     stringField(fields, "level"),
		Message:   stringField(fields, "message"),
		Source:    stringField(fields, "component"),
	}
	if errText := stringField(fields, "error"); errText != "" {
		if entry.Message == "" {
			entry.Message = errText
		} else {
			entry.Message += ": " + errText
		}
	}
	return entry
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// window keeps the newest n strings pushed into it.
type window struct {
	buf   []string
	next  int
	count int
}

func newWindow(n int) *window {
	return &window{buf: make([]string, n)}
}

func (w *window) push(s string) {
	w.buf[w.next] = s
	w.next = (w.next + 1) % len(w.buf)
	w.count = min(w.count+1, len(w.buf))
}

func (w *window) lines() []string {
	out := make([]string, 0, w.count)
	start := (w.next - w.count + len(w.buf)) % len(w.buf)
	for i := range w.count {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}
