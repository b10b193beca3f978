// Package nav maps request paths to lazily loaded views.
//
// Every route is a child of the one shared layout, so resolution yields at
// most one view. There are no parameters, guards, or redirects.
package nav

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNoRoute is returned when a path matches no route.
	ErrNoRoute = errors.New("no route")
	// ErrViewUnavailable wraps loader failures.
	ErrViewUnavailable = errors.New("view unavailable")
)

// Built-in routes.
const (
	PathDashboard = "/"
	PathConfig    = "/config"
	PathLogs      = "/logs"
)

// Loader builds a view on first use.
type Loader[V any] func() (V, error)

// Route describes one entry of the map.
type Route struct {
	Path string
	Name string
}

type entry[V any] struct {
	route  Route
	load   Loader[V]
	view   V
	loaded bool
}

// Map is a static path → view table. Views are built by their loader on the
// first Load and reused afterwards. A failed load is retried next time.
type Map[V any] struct {
	mu      sync.Mutex
	entries []*entry[V]
	byPath  map[string]*entry[V]
}

// New returns an empty Map.
func New[V any]() *Map[V] {
	return &Map[V]{byPath: make(map[string]*entry[V])}
}

// Default returns the dashboard, config and logs routes.
func Default[V any](dashboard, config, logs Loader[V]) *Map[V] {
	m := New[V]()
	m.mustRegister(PathDashboard, "Dashboard", dashboard)
	m.mustRegister(PathConfig, "Config", config)
	m.mustRegister(PathLogs, "Logs", logs)
	return m
}

// Register adds a route. Paths are normalized; duplicates are rejected.
func (m *Map[V]) Register(path, name string, load Loader[V]) error {
	if load == nil {
		return fmt.Errorf("route %q: loader is nil", path)
	}
	p := Normalize(path)
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("route %q: path must start with /", path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byPath[p]; exists {
		return fmt.Errorf("route %q: already registered", p)
	}
	e := &entry[V]{route: Route{Path: p, Name: name}, load: load}
	m.entries = append(m.entries, e)
	m.byPath[p] = e
	return nil
}

func (m *Map[V]) mustRegister(path, name string, load Loader[V]) {
	if err := m.Register(path, name, load); err != nil {
		panic(err)
	}
}

// Resolve finds the route for path.
func (m *Map[V]) Resolve(path string) (Route, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byPath[Normalize(path)]
	if !ok {
		return Route{}, false
	}
	return e.route, true
}

// Load resolves path and returns its view, running the loader if this is the
// first successful load.
func (m *Map[V]) Load(path string) (V, error) {
	var zero V
	p := Normalize(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byPath[p]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}
	if e.loaded {
		return e.view, nil
	}
	view, err := e.load()
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrViewUnavailable, e.route.Name, err)
	}
	e.view = view
	e.loaded = true
	return view, nil
}

// Loaded reports whether the view at path has been built.
func (m *Map[V]) Loaded(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byPath[Normalize(path)]
	return ok && e.loaded
}

// Routes lists routes in registration order.
func (m *Map[V]) Routes() []Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Route, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.route
	}
	return out
}

// Normalize maps "" to "/" and drops trailing slashes.
func Normalize(path string) string {
	p := strings.TrimSpace(path)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
