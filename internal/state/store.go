package state

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/history"
)

// Observer receives store activity for metrics. Implementations must not
// block.
type Observer interface {
	ObservePull(resource string, err error)
	ObservePushEvent(kind string)
	ObserveConnection(connected bool)
}

type nopObserver struct{}

func (nopObserver) ObservePull(string, error) {}
func (nopObserver) ObservePushEvent(string)   {}
func (nopObserver) ObserveConnection(bool)    {}

// Options configure a Store.
type Options struct {
	Fetcher   backend.Fetcher
	Commander backend.Commander
	Dialer    Dialer
	Observer  Observer
	Logger    *zerolog.Logger

	// HistoryLimit caps CPUHistory. Zero uses history.DefaultCapacity.
	HistoryLimit int
	// LogQuery is sent with the logs pull issued by RefreshAll.
	LogQuery url.Values
}

// Store owns the client snapshot and every path that mutates it.
type Store struct {
	fetcher   backend.Fetcher
	commander backend.Commander
	dialer    Dialer
	observer  Observer
	log       zerolog.Logger
	logQuery  url.Values
	now       func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	cpu      *history.Ring
	gen      map[Resource]uint64
	inflight map[Resource]int
	channel  Channel
	closed   bool

	// lifecycle serializes Initialize, Reconnect, Disconnect and Close.
	lifecycle sync.Mutex
	dispatch  chan struct{}

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// NewStore builds a Store with default snapshot values.
func NewStore(opts Options) *Store {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = history.DefaultCapacity
	}
	return &Store{
		fetcher:   opts.Fetcher,
		commander: opts.Commander,
		dialer:    opts.Dialer,
		observer:  observer,
		log:       log,
		logQuery:  cloneValues(opts.LogQuery),
		now:       time.Now,
		snapshot:  defaultSnapshot(),
		cpu:       history.New(limit),
		gen:       make(map[Resource]uint64),
		inflight:  make(map[Resource]int),
		subs:      make(map[chan struct{}]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot.clone()
	snap.CPUHistory = s.cpu.Values()
	return snap
}

// SystemHealth classifies the current metrics.
func (s *Store) SystemHealth() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SystemHealth(s.snapshot.Metrics)
}

// ClusterHealth classifies the current cluster status.
func (s *Store) ClusterHealth() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ClusterHealth(s.snapshot.ClusterStatus)
}

// RecordCPU appends a sample to the CPU history.
func (s *Store) RecordCPU(value float64) {
	s.mu.Lock()
	s.cpu.Push(history.Sample{At: s.now(), Value: value})
	s.mu.Unlock()
	s.notify()
}

// SeedHistory replaces the CPU history with the backend's retained samples.
// Samples without a CPU reading are skipped; samples without a timestamp are
// stamped with the current time. On error, or when no sample carries a
// reading, the existing history is kept.
func (s *Store) SeedHistory(ctx context.Context, src backend.HistoryFetcher) error {
	if src == nil {
		return errNoFetcher
	}
	samples, err := src.FetchMetricsHistory(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("metrics history unavailable")
		return fmt.Errorf("fetch metrics history: %w", err)
	}

	now := s.now()
	seeded := make([]history.Sample, 0, len(samples))
	for _, m := range samples {
		if m.CPUUsage == nil {
			continue
		}
		at := m.ParsedTimestamp()
		if at.IsZero() {
			at = now
		}
		seeded = append(seeded, history.Sample{At: at, Value: *m.CPUUsage})
	}
	if len(seeded) == 0 {
		s.log.Debug().Int("samples", len(samples)).Msg("metrics history has no cpu readings")
		return nil
	}

	s.mu.Lock()
	s.cpu.Reset()
	for _, sample := range seeded {
		s.cpu.Push(sample)
	}
	s.mu.Unlock()

	s.log.Debug().Int("samples", len(seeded)).Msg("seeded cpu history")
	s.notify()
	return nil
}

// Subscribe returns a channel that receives a value after every mutation.
// Signals coalesce: a slow reader sees one pending signal, not a backlog.
// The cancel func releases the subscription; Close closes every channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	if s.subs == nil {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close tears down the push channel and ends every subscription. The store
// stays readable afterwards.
func (s *Store) Close() error {
	s.Disconnect()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	return nil
}

// FetchSystemInfo pulls /api/system/info and merges it into SystemInfo.
func (s *Store) FetchSystemInfo(ctx context.Context) {
	_ = s.pullSystemInfo(ctx)
}

// FetchMetrics pulls /api/metrics and merges the present keys into Metrics.
func (s *Store) FetchMetrics(ctx context.Context) {
	_ = s.pullMetrics(ctx)
}

// FetchClusterStatus pulls /api/cluster/status and merges it into ClusterStatus.
func (s *Store) FetchClusterStatus(ctx context.Context) {
	_ = s.pullCluster(ctx)
}

// FetchPlugins pulls /api/plugins and replaces the roster.
func (s *Store) FetchPlugins(ctx context.Context) {
	_ = s.pullPlugins(ctx)
}

// FetchConfig pulls /api/config and replaces Config.
func (s *Store) FetchConfig(ctx context.Context) {
	_ = s.pullConfig(ctx)
}

// FetchLogs pulls /api/logs with params forwarded verbatim and replaces Logs.
func (s *Store) FetchLogs(ctx context.Context, params url.Values) {
	_ = s.pullLogs(ctx, params)
}

// SetLogQuery replaces the parameters RefreshAll sends with its logs pull.
func (s *Store) SetLogQuery(params url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logQuery = cloneValues(params)
}

func (s *Store) currentLogQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.logQuery)
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// RefreshAll issues every pull concurrently and waits for them. Unlike the
// individual Fetch methods it reports the first failure so pollers can back
// off; the snapshot is updated the same way either way.
func (s *Store) RefreshAll(ctx context.Context) error {
	logQuery := s.currentLogQuery()
	var g errgroup.Group
	g.Go(func() error { return s.pullSystemInfo(ctx) })
	g.Go(func() error { return s.pullMetrics(ctx) })
	g.Go(func() error { return s.pullCluster(ctx) })
	g.Go(func() error { return s.pullPlugins(ctx) })
	g.Go(func() error { return s.pullConfig(ctx) })
	g.Go(func() error { return s.pullLogs(ctx, logQuery) })
	return g.Wait()
}

func (s *Store) pullSystemInfo(ctx context.Context) error {
	return pull(s, ctx, ResourceSystemInfo, s.fetchSystemInfo, func(fields map[string]any) {
		s.snapshot.SystemInfo = s.snapshot.SystemInfo.Merge(fields)
	})
}

func (s *Store) pullMetrics(ctx context.Context) error {
	return pull(s, ctx, ResourceMetrics, s.fetchMetrics, s.applyMetricsLocked)
}

func (s *Store) pullCluster(ctx context.Context) error {
	return pull(s, ctx, ResourceCluster, s.fetchCluster, func(patch backend.ClusterPatch) {
		s.snapshot.ClusterStatus = s.snapshot.ClusterStatus.Apply(patch)
	})
}

func (s *Store) pullPlugins(ctx context.Context) error {
	return pull(s, ctx, ResourcePlugins, s.fetchPlugins, func(roster map[string]backend.Plugin) {
		s.snapshot.Plugins = Plugins{Available: roster}.clone()
		if s.snapshot.Plugins.Available == nil {
			s.snapshot.Plugins.Available = map[string]backend.Plugin{}
		}
		s.snapshot.Plugins.recount()
	})
}

func (s *Store) pullConfig(ctx context.Context) error {
	return pull(s, ctx, ResourceConfig, s.fetchConfig, func(cfg map[string]any) {
		replaced := make(map[string]any, len(cfg))
		for k, v := range cfg {
			replaced[k] = v
		}
		s.snapshot.Config = replaced
	})
}

func (s *Store) pullLogs(ctx context.Context, params url.Values) error {
	fetch := func(ctx context.Context) ([]backend.LogEntry, error) {
		if s.fetcher == nil {
			return nil, errNoFetcher
		}
		return s.fetcher.FetchLogs(ctx, params)
	}
	return pull(s, ctx, ResourceLogs, fetch, func(entries []backend.LogEntry) {
		s.snapshot.Logs = append([]backend.LogEntry{}, entries...)
	})
}

// pull runs one request for res. The loading flag covers the request's
// lifetime. Only the most recently issued request for res may apply its
// result or record its error; older responses are discarded.
func pull[T any](s *Store, ctx context.Context, res Resource, fetch func(context.Context) (T, error), apply func(T)) error {
	s.mu.Lock()
	s.gen[res]++
	gen := s.gen[res]
	s.inflight[res]++
	s.snapshot.Loading.set(res, true)
	s.mu.Unlock()
	s.notify()

	val, err := fetch(ctx)

	s.mu.Lock()
	s.inflight[res]--
	s.snapshot.Loading.set(res, s.inflight[res] > 0)
	latest := s.gen[res] == gen
	switch {
	case !latest:
		s.log.Debug().Str("resource", string(res)).Uint64("generation", gen).Msg("discarding superseded response")
	case err != nil:
		s.snapshot.Errors[res] = err
	default:
		apply(val)
		delete(s.snapshot.Errors, res)
		s.snapshot.LastUpdated[res] = s.now()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("resource", string(res)).Msg("pull failed")
	}
	s.observer.ObservePull(string(res), err)
	s.notify()
	if err != nil {
		return fmt.Errorf("fetch %s: %w", res, err)
	}
	return nil
}

// applyMetricsLocked merges present keys and records a CPU sample when the
// patch carries one. Callers hold s.mu.
func (s *Store) applyMetricsLocked(patch backend.MetricsPatch) {
	s.snapshot.Metrics = s.snapshot.Metrics.Apply(patch)
	if patch.CPUUsage == nil {
		return
	}
	at := s.snapshot.Metrics.ParsedTimestamp()
	if patch.Timestamp == nil || at.IsZero() {
		at = s.now()
	}
	s.cpu.Push(history.Sample{At: at, Value: *patch.CPUUsage})
}

var errNoFetcher = errors.New("no backend fetcher configured")

func (s *Store) fetchSystemInfo(ctx context.Context) (map[string]any, error) {
	if s.fetcher == nil {
		return nil, errNoFetcher
	}
	return s.fetcher.FetchSystemInfo(ctx)
}

func (s *Store) fetchMetrics(ctx context.Context) (backend.MetricsPatch, error) {
	if s.fetcher == nil {
		return backend.MetricsPatch{}, errNoFetcher
	}
	return s.fetcher.FetchMetrics(ctx)
}

func (s *Store) fetchCluster(ctx context.Context) (backend.ClusterPatch, error) {
	if s.fetcher == nil {
		return backend.ClusterPatch{}, errNoFetcher
	}
	return s.fetcher.FetchClusterStatus(ctx)
}

func (s *Store) fetchPlugins(ctx context.Context) (map[string]backend.Plugin, error) {
	if s.fetcher == nil {
		return nil, errNoFetcher
	}
	return s.fetcher.FetchPlugins(ctx)
}

func (s *Store) fetchConfig(ctx context.Context) (map[string]any, error) {
	if s.fetcher == nil {
		return nil, errNoFetcher
	}
	return s.fetcher.FetchConfig(ctx)
}
