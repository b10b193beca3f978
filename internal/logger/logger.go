// Package logger provides zerolog-backed structured logging for devpanel.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and destination.
type Config struct {
	Level string
	// Output is "stderr", "stdout", "discard", or a file path.
	Output string
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init replaces the process logger. The returned closer releases a log file
// when Output names one.
func Init(cfg Config) (io.Closer, error) {
	level := zerolog.InfoLevel
	if lvl := strings.TrimSpace(cfg.Level); lvl != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(lvl))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	switch target := strings.TrimSpace(cfg.Output); target {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	case "discard":
		out = io.Discard
	default:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closer = file
	}

	mu.Lock()
	base = New(out, level)
	mu.Unlock()
	return closer, nil
}

// New builds a timestamped logger writing to w.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Get returns the process logger.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns the process logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	l := Get()
	return l.With().Str("component", component).Logger()
}
