package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/push"
)

func event(kind push.Kind, payload string) push.Event {
	ev := push.Event{Kind: kind, Name: string(kind)}
	if payload != "" {
		ev.Payload = json.RawMessage(payload)
	}
	return ev
}

// sendAndWait delivers events and waits until the dispatch loop has applied
// the final one, detected through a trailing config marker.
func sendAndWait(t *testing.T, s *Store, ch *fakeChannel, events ...push.Event) {
	t.Helper()
	marker := time.Now().String()
	for _, ev := range events {
		ch.events <- ev
	}
	ch.events <- event(push.KindConfig, `{"key":"__marker","value":"`+marker+`"}`)
	require.Eventually(t, func() bool {
		return s.Snapshot().Config["__marker"] == marker
	}, 2*time.Second, time.Millisecond)
}

func connectedStore(t *testing.T, fetcher backend.Fetcher) (*Store, *fakeDialer, *fakeChannel) {
	t.Helper()
	dialer := &fakeDialer{}
	s := NewStore(Options{Fetcher: fetcher, Dialer: dialer})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, PushConnecting, s.Snapshot().PushState)

	ch := dialer.last()
	sendAndWait(t, s, ch, event(push.KindConnect, ""))
	require.Equal(t, StatusConnected, s.Snapshot().ConnectionStatus)
	require.Equal(t, PushConnected, s.Snapshot().PushState)
	return s, dialer, ch
}

func TestPush_EventsMutateSnapshotInOrder(t *testing.T) {
	f := &fakeFetcher{
		metrics: func() (backend.MetricsPatch, error) {
			return backend.MetricsPatch{Memory: &backend.Usage{Percent: 50, Used: 5, Total: 10}}, nil
		},
		plugins: func() (map[string]backend.Plugin, error) {
			return map[string]backend.Plugin{"git": {Enabled: true}, "lint": {Enabled: false}}, nil
		},
		config: func() (map[string]any, error) { return map[string]any{"LOG_LEVEL": "INFO"}, nil },
	}
	s, _, ch := connectedStore(t, f)
	require.NoError(t, s.RefreshAll(context.Background()))

	sendAndWait(t, s, ch,
		event(push.KindMetrics, `{"cpu_usage":70}`),
		event(push.KindMetrics, `{"cpu_usage":85}`),
		event(push.KindCluster, `{"activeServers":["a"],"failedServers":["b"]}`),
		event(push.KindConfig, `{"key":"LOG_LEVEL","value":"DEBUG"}`),
		event(push.KindPlugin, `{"plugin_name":"lint","enabled":true}`),
		event(push.KindUnknown, `{"anything":1}`),
	)

	snap := s.Snapshot()
	assert.Equal(t, 85.0, snap.Metrics.CPUUsage)
	assert.Equal(t, 50.0, snap.Metrics.Memory.Percent, "push merges present keys only")
	assert.Equal(t, HealthDanger, snap.SystemHealth())
	assert.Equal(t, []string{"a"}, snap.ClusterStatus.ActiveServers)
	assert.Equal(t, HealthWarning, snap.ClusterHealth())
	assert.Equal(t, "DEBUG", snap.Config["LOG_LEVEL"])
	assert.True(t, snap.Plugins.Available["lint"].Enabled)
	assert.Equal(t, 2, snap.Plugins.Enabled)
	assert.Equal(t, 2, snap.Plugins.Total)

	require.Len(t, snap.CPUHistory, 2)
	assert.Equal(t, 70.0, snap.CPUHistory[0].Value)
	assert.Equal(t, 85.0, snap.CPUHistory[1].Value)
}

func TestPush_UnknownPluginIsNoOp(t *testing.T) {
	f := &fakeFetcher{plugins: func() (map[string]backend.Plugin, error) {
		return map[string]backend.Plugin{"git": {Enabled: true}}, nil
	}}
	s, _, ch := connectedStore(t, f)
	s.FetchPlugins(context.Background())
	before := s.Snapshot().Plugins

	sendAndWait(t, s, ch, event(push.KindPlugin, `{"plugin_name":"ghost","enabled":false}`))

	after := s.Snapshot().Plugins
	assert.Equal(t, before, after)
	assert.NotContains(t, after.Available, "ghost")
}

func TestPush_MalformedPayloadsAreDropped(t *testing.T) {
	s, _, ch := connectedStore(t, &fakeFetcher{})
	before := s.Snapshot()

	sendAndWait(t, s, ch,
		event(push.KindMetrics, `[1,2,3]`),
		event(push.KindMetrics, `{"cpu_usage":"high"}`),
		event(push.KindCluster, `"nope"`),
		event(push.KindConfig, `{"value":1}`),
		event(push.KindPlugin, `{"plugin_name":"git"}`),
		event(push.KindMetrics, ""),
	)

	after := s.Snapshot()
	assert.Equal(t, before.Metrics, after.Metrics)
	assert.Equal(t, before.ClusterStatus, after.ClusterStatus)
	assert.Empty(t, after.CPUHistory)
	assert.Equal(t, StatusConnected, after.ConnectionStatus, "dispatch loop survives bad payloads")
}

func TestPush_StatusUpdateReplacesConfigAndPlugins(t *testing.T) {
	f := &fakeFetcher{
		config:  func() (map[string]any, error) { return map[string]any{"OLD": "x"}, nil },
		cluster: func() (backend.ClusterPatch, error) { return backend.ClusterPatch{TotalNodes: ptr(4)}, nil },
		plugins: func() (map[string]backend.Plugin, error) {
			return map[string]backend.Plugin{"git": {Enabled: true}}, nil
		},
	}
	s, _, ch := connectedStore(t, f)
	require.NoError(t, s.RefreshAll(context.Background()))

	sendAndWait(t, s, ch, event(push.KindStatus, `{
		"config": {"REMOTE_HOST": "h"},
		"cluster_status": {"activeServers": ["a"]},
		"plugins": {"plugins": {"lint": {"enabled": true}, "fmt": {"enabled": false}}},
		"app_state": {"active_connections": 1}
	}`))

	snap := s.Snapshot()
	assert.Equal(t, "h", snap.Config["REMOTE_HOST"])
	assert.NotContains(t, snap.Config, "OLD")
	assert.Equal(t, []string{"a"}, snap.ClusterStatus.ActiveServers)
	assert.Equal(t, 4, snap.ClusterStatus.TotalNodes, "cluster keys merge")
	assert.NotContains(t, snap.Plugins.Available, "git")
	assert.Equal(t, 2, snap.Plugins.Total)
	assert.Equal(t, 1, snap.Plugins.Enabled)
}

func TestPush_StatusUpdateKeepsMissingSections(t *testing.T) {
	f := &fakeFetcher{
		config: func() (map[string]any, error) { return map[string]any{"KEEP": true}, nil },
		plugins: func() (map[string]backend.Plugin, error) {
			return map[string]backend.Plugin{"git": {Enabled: true}}, nil
		},
	}
	s, _, ch := connectedStore(t, f)
	require.NoError(t, s.RefreshAll(context.Background()))

	sendAndWait(t, s, ch, event(push.KindStatus, `{"cluster_status":{"failedServers":["b"]}}`))

	snap := s.Snapshot()
	assert.Equal(t, true, snap.Config["KEEP"])
	assert.Equal(t, 1, snap.Plugins.Total)
	assert.Equal(t, []string{"b"}, snap.ClusterStatus.FailedServers)
}

func TestPush_MetricsUpdateReadsCPUPercent(t *testing.T) {
	s, _, ch := connectedStore(t, &fakeFetcher{})

	sendAndWait(t, s, ch, event(push.KindMetricsReply,
		`{"cpu_percent":55,"memory":{"total":10,"used":4,"percent":40}}`))

	snap := s.Snapshot()
	assert.Equal(t, 55.0, snap.Metrics.CPUUsage)
	assert.Equal(t, 40.0, snap.Metrics.Memory.Percent)
	require.Len(t, snap.CPUHistory, 1)
	assert.Equal(t, 55.0, snap.CPUHistory[0].Value)
}

func TestPush_OnlyAppliedEventsAreObserved(t *testing.T) {
	obs := newRecordingObserver()
	dialer := &fakeDialer{}
	s := NewStore(Options{Dialer: dialer, Observer: obs})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	ch := dialer.last()

	sendAndWait(t, s, ch,
		event(push.KindConnect, ""),
		event(push.KindMetrics, `[1]`),
		event(push.KindMetrics, `{"cpu_usage":"high"}`),
		event(push.KindMetrics, `{"cpu_usage":5}`),
	)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.events[string(push.KindMetrics)])
}

func TestPush_DisconnectEventAndInternalReconnect(t *testing.T) {
	obs := newRecordingObserver()
	dialer := &fakeDialer{}
	s := NewStore(Options{Fetcher: &fakeFetcher{}, Dialer: dialer, Observer: obs})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	ch := dialer.last()

	sendAndWait(t, s, ch, event(push.KindConnect, ""))
	sendAndWait(t, s, ch, push.Event{Kind: push.KindDisconnect, Err: errBoom})

	snap := s.Snapshot()
	assert.Equal(t, StatusDisconnected, snap.ConnectionStatus)
	assert.Equal(t, PushDisconnected, snap.PushState)
	assert.ErrorIs(t, snap.PushError, errBoom)

	sendAndWait(t, s, ch, event(push.KindConnect, ""))
	assert.Equal(t, StatusConnected, s.Snapshot().ConnectionStatus)
	assert.Equal(t, 1, dialer.count(), "the channel redials on its own")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, obs.connections)
	assert.Equal(t, 2, obs.events["connect"])
}

func TestDisconnect_IsIdempotent(t *testing.T) {
	s := NewStore(Options{})
	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, StatusDisconnected, s.Snapshot().ConnectionStatus)
	assert.Equal(t, PushUninitialized, s.Snapshot().PushState)

	connected, dialer, ch := connectedStore(t, &fakeFetcher{})
	connected.Disconnect()
	assert.Equal(t, StatusDisconnected, connected.Snapshot().ConnectionStatus)
	assert.True(t, ch.isClosed())

	connected.Disconnect()
	assert.Equal(t, StatusDisconnected, connected.Snapshot().ConnectionStatus)
	assert.Equal(t, PushDisconnected, connected.Snapshot().PushState)

	require.NoError(t, connected.Initialize(context.Background()))
	assert.Equal(t, 2, dialer.count())
}

func TestInitialize_NoOpWhileChannelOpen(t *testing.T) {
	s, dialer, _ := connectedStore(t, &fakeFetcher{})
	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, 1, dialer.count())
}

func TestReconnect(t *testing.T) {
	s, dialer, first := connectedStore(t, &fakeFetcher{})

	require.NoError(t, s.Reconnect(context.Background()))
	assert.Equal(t, 1, dialer.count(), "connected channel is kept")

	sendAndWait(t, s, first, event(push.KindDisconnect, ""))
	require.NoError(t, s.Reconnect(context.Background()))
	assert.Equal(t, 2, dialer.count())
	assert.True(t, first.isClosed())
	assert.Equal(t, PushConnecting, s.Snapshot().PushState)

	second := dialer.last()
	sendAndWait(t, s, second, event(push.KindConnect, ""))
	assert.Equal(t, StatusConnected, s.Snapshot().ConnectionStatus)
}

func TestReconnect_OutlivesCallerContext(t *testing.T) {
	dialer := &fakeDialer{ctxBound: true}
	s := NewStore(Options{Dialer: dialer})
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	require.NoError(t, s.Reconnect(ctx))
	cancel()

	ch := dialer.last()
	require.False(t, ch.isClosed())
	sendAndWait(t, s, ch,
		event(push.KindConnect, ""),
		event(push.KindMetrics, `{"cpu_usage":33}`),
	)

	snap := s.Snapshot()
	assert.Equal(t, StatusConnected, snap.ConnectionStatus)
	assert.Equal(t, PushConnected, snap.PushState)
	assert.Equal(t, 33.0, snap.Metrics.CPUUsage)
}

func TestChannelEnded_AllowsInitialize(t *testing.T) {
	s, dialer, ch := connectedStore(t, &fakeFetcher{})

	require.NoError(t, ch.Close())
	require.Eventually(t, func() bool {
		return s.Snapshot().PushState == PushDisconnected
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, StatusDisconnected, s.Snapshot().ConnectionStatus)

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, 2, dialer.count())
	sendAndWait(t, s, dialer.last(), event(push.KindConnect, ""))
	assert.Equal(t, StatusConnected, s.Snapshot().ConnectionStatus)
}

func TestInitialize_Errors(t *testing.T) {
	s := NewStore(Options{})
	assert.ErrorIs(t, s.Initialize(context.Background()), ErrNoDialer)

	failing := NewStore(Options{Dialer: &fakeDialer{err: errBoom}})
	err := failing.Initialize(context.Background())
	assert.ErrorIs(t, err, errBoom)
	snap := failing.Snapshot()
	assert.Equal(t, PushDisconnected, snap.PushState)
	assert.ErrorIs(t, snap.PushError, errBoom)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Initialize(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Reconnect(context.Background()), ErrClosed)
}

func TestRequestEmitsOnChannel(t *testing.T) {
	idle := NewStore(Options{})
	assert.ErrorIs(t, idle.RequestMetrics(), push.ErrNotConnected)

	s, _, ch := connectedStore(t, &fakeFetcher{})
	require.NoError(t, s.RequestMetrics())
	require.NoError(t, s.RequestStatus())

	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Equal(t, []string{push.RequestMetrics, push.RequestStatus}, ch.emitted)
}

func TestPushDialer_WrapsConnector(t *testing.T) {
	d := PushDialer(push.Connector{})
	ch, err := d.Dial(context.Background())
	assert.Error(t, err)
	assert.Nil(t, ch)
}
