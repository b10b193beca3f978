// Package prefs persists devpanel user preferences in
// ~/.config/devpanel/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/devpanel/internal/config"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme     string `toml:"theme"`
	LastRoute string `toml:"last_route"`
}

const (
	defaultPrefsPath = "~/.config/devpanel/prefs.toml"
	defaultTheme     = "Nightfox"
	defaultRoute     = "/"
)

// Defaults returns the preferences used when nothing has been saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, LastRoute: defaultRoute}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. A missing, unreadable, or corrupt file
// yields defaults; preferences never block startup.
func Load(path string) Prefs {
	out := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return out
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return out
	}

	var stored Prefs
	if err := toml.Unmarshal(data, &stored); err != nil {
		return out
	}
	if theme := strings.TrimSpace(stored.Theme); theme != "" {
		out.Theme = theme
	}
	if route := strings.TrimSpace(stored.LastRoute); strings.HasPrefix(route, "/") {
		out.LastRoute = route
	}
	return out
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return config.ExpandPath(defaultPrefsPath)
	}
	return config.ExpandPath(path)
}
