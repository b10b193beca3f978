package state

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/push"
)

type fakeFetcher struct {
	systemInfo func() (map[string]any, error)
	metrics    func() (backend.MetricsPatch, error)
	cluster    func() (backend.ClusterPatch, error)
	plugins    func() (map[string]backend.Plugin, error)
	config     func() (map[string]any, error)
	logs       func(url.Values) ([]backend.LogEntry, error)
}

func (f *fakeFetcher) FetchSystemInfo(context.Context) (map[string]any, error) {
	if f.systemInfo == nil {
		return map[string]any{}, nil
	}
	return f.systemInfo()
}

func (f *fakeFetcher) FetchMetrics(context.Context) (backend.MetricsPatch, error) {
	if f.metrics == nil {
		return backend.MetricsPatch{}, nil
	}
	return f.metrics()
}

func (f *fakeFetcher) FetchClusterStatus(context.Context) (backend.ClusterPatch, error) {
	if f.cluster == nil {
		return backend.ClusterPatch{}, nil
	}
	return f.cluster()
}

func (f *fakeFetcher) FetchPlugins(context.Context) (map[string]backend.Plugin, error) {
	if f.plugins == nil {
		return map[string]backend.Plugin{}, nil
	}
	return f.plugins()
}

func (f *fakeFetcher) FetchConfig(context.Context) (map[string]any, error) {
	if f.config == nil {
		return map[string]any{}, nil
	}
	return f.config()
}

func (f *fakeFetcher) FetchLogs(_ context.Context, params url.Values) ([]backend.LogEntry, error) {
	if f.logs == nil {
		return []backend.LogEntry{}, nil
	}
	return f.logs(params)
}

type fakeCommander struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (c *fakeCommander) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.err
}

func (c *fakeCommander) UpdateConfig(_ context.Context, key string, _ any) error {
	return c.record("config:" + key)
}

func (c *fakeCommander) TogglePlugin(_ context.Context, name string, enabled bool) error {
	if enabled {
		return c.record("enable:" + name)
	}
	return c.record("disable:" + name)
}

func (c *fakeCommander) RunHealthCheck(_ context.Context, server string) error {
	return c.record("check:" + server)
}

type fakeChannel struct {
	events    chan push.Event
	closeOnce sync.Once

	mu      sync.Mutex
	emitted []string
	closed  bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan push.Event, 32)}
}

func (c *fakeChannel) Events() <-chan push.Event { return c.events }

func (c *fakeChannel) Emit(name string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return push.ErrClosed
	}
	c.emitted = append(c.emitted, name)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.events)
	})
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out a fresh fakeChannel per Dial. With ctxBound set, a
// channel closes when the dial context ends, the way push.Dial behaves.
type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
	err      error
	ctxBound bool
}

func (d *fakeDialer) Dial(ctx context.Context) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	ch := newFakeChannel()
	d.channels = append(d.channels, ch)
	if d.ctxBound {
		go func() {
			<-ctx.Done()
			_ = ch.Close()
		}()
	}
	return ch, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.channels)
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

type recordingObserver struct {
	mu          sync.Mutex
	pulls       map[string]int
	failures    map[string]int
	events      map[string]int
	connections []bool
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{pulls: map[string]int{}, failures: map[string]int{}, events: map[string]int{}}
}

func (o *recordingObserver) ObservePull(resource string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pulls[resource]++
	if err != nil {
		o.failures[resource]++
	}
}

func (o *recordingObserver) ObservePushEvent(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events[kind]++
}

func (o *recordingObserver) ObserveConnection(connected bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connections = append(o.connections, connected)
}

var errBoom = errors.New("boom")

func f64(v float64) *float64 { return &v }
