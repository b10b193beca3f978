package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/push"
)

var (
	// ErrNoDialer is returned by Initialize when the store has no push dialer.
	ErrNoDialer = errors.New("push dialer not configured")
	// ErrClosed is returned by lifecycle calls after Close.
	ErrClosed = errors.New("store closed")

	errMalformedEvent = errors.New("malformed push payload")
)

// Channel is an open push connection. Close must close the Events channel.
type Channel interface {
	Events() <-chan push.Event
	Emit(name string, payload any) error
	Close() error
}

// Dialer opens push channels.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Channel, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context) (Channel, error) {
	return f(ctx)
}

// PushDialer opens channels through a push.Connector.
func PushDialer(c push.Connector) Dialer {
	return DialerFunc(func(ctx context.Context) (Channel, error) {
		client, err := c.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// Initialize opens the push channel. It is a no-op when a channel is already
// open, connected or not.
func (s *Store) Initialize(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	open, closed := s.channel != nil, s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if open {
		return nil
	}
	return s.openLocked(ctx)
}

// Reconnect replaces a channel that is not currently connected with a fresh
// one. A connected channel is left alone.
func (s *Store) Reconnect(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	connected := s.channel != nil && s.snapshot.PushState == PushConnected
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if connected {
		return nil
	}
	s.teardownLocked()
	return s.openLocked(ctx)
}

// Disconnect closes the push channel if one is open and forces the
// connection status to disconnected. Repeated calls are no-ops.
func (s *Store) Disconnect() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.teardownLocked()
}

// RequestStatus asks the backend to push a status update.
func (s *Store) RequestStatus() error {
	return s.emit(push.RequestStatus)
}

// RequestMetrics asks the backend to push fresh metrics.
func (s *Store) RequestMetrics() error {
	return s.emit(push.RequestMetrics)
}

func (s *Store) emit(name string) error {
	s.mu.RLock()
	ch := s.channel
	s.mu.RUnlock()
	if ch == nil {
		return push.ErrNotConnected
	}
	if err := ch.Emit(name, nil); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}
	return nil
}

func (s *Store) openLocked(ctx context.Context) error {
	if s.dialer == nil {
		return ErrNoDialer
	}

	s.mu.Lock()
	s.snapshot.PushState = PushConnecting
	s.snapshot.PushError = nil
	s.mu.Unlock()
	s.notify()

	// The channel outlives the call that opened it; Disconnect and Close end it.
	ch, err := s.dialer.Dial(context.WithoutCancel(ctx))
	if err != nil {
		s.mu.Lock()
		s.snapshot.PushState = PushDisconnected
		s.snapshot.ConnectionStatus = StatusDisconnected
		s.snapshot.PushError = err
		s.mu.Unlock()
		s.notify()
		s.log.Warn().Err(err).Msg("push dial failed")
		return fmt.Errorf("open push channel: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
	s.dispatch = done
	go s.run(ch, done)
	return nil
}

func (s *Store) teardownLocked() {
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	wasConnected := s.snapshot.ConnectionStatus == StatusConnected
	if ch != nil || s.snapshot.PushState != PushUninitialized {
		s.snapshot.PushState = PushDisconnected
	}
	s.snapshot.ConnectionStatus = StatusDisconnected
	s.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing push channel")
		}
		if s.dispatch != nil {
			<-s.dispatch
			s.dispatch = nil
		}
		s.log.Info().Msg("push channel closed")
	}
	if wasConnected {
		s.observer.ObserveConnection(false)
	}
	s.notify()
}

// run is the single dispatch loop for ch: one mutation per event, in
// arrival order.
func (s *Store) run(ch Channel, done chan<- struct{}) {
	defer close(done)
	for ev := range ch.Events() {
		s.handle(ch, ev)
	}
	s.channelEnded(ch)
}

// channelEnded handles an event stream that closed without Disconnect: the
// channel is dropped so Initialize and Reconnect can open a new one.
func (s *Store) channelEnded(ch Channel) {
	s.mu.Lock()
	if s.channel != ch {
		s.mu.Unlock()
		return
	}
	s.channel = nil
	wasConnected := s.snapshot.ConnectionStatus == StatusConnected
	s.snapshot.PushState = PushDisconnected
	s.snapshot.ConnectionStatus = StatusDisconnected
	s.mu.Unlock()

	_ = ch.Close()
	s.log.Warn().Msg("push channel ended")
	if wasConnected {
		s.observer.ObserveConnection(false)
	}
	s.notify()
}

func (s *Store) handle(ch Channel, ev push.Event) {
	s.mu.Lock()
	if s.channel != ch {
		s.mu.Unlock()
		return
	}

	var (
		err       error
		connected *bool
	)
	switch ev.Kind {
	case push.KindConnect:
		s.snapshot.PushState = PushConnected
		s.snapshot.ConnectionStatus = StatusConnected
		s.snapshot.PushError = nil
		connected = ptr(true)
	case push.KindDisconnect, push.KindError:
		wasConnected := s.snapshot.ConnectionStatus == StatusConnected
		s.snapshot.PushState = PushDisconnected
		s.snapshot.ConnectionStatus = StatusDisconnected
		s.snapshot.PushError = ev.Err
		if wasConnected {
			connected = ptr(false)
		}
	case push.KindMetrics, push.KindMetricsReply:
		var patch backend.MetricsPatch
		if err = decodeEvent(ev.Payload, &patch); err == nil {
			s.applyMetricsLocked(patch)
		}
	case push.KindCluster:
		var patch backend.ClusterPatch
		if err = decodeEvent(ev.Payload, &patch); err == nil {
			s.snapshot.ClusterStatus = s.snapshot.ClusterStatus.Apply(patch)
		}
	case push.KindConfig:
		err = s.applyConfigLocked(ev.Payload)
	case push.KindPlugin:
		err = s.applyPluginLocked(ev.Payload)
	case push.KindStatus:
		err = s.applyStatusLocked(ev.Payload)
	default:
		s.mu.Unlock()
		s.log.Debug().Str("event", ev.Name).Msg("ignoring push event")
		return
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("event", string(ev.Kind)).Msg("dropping push event")
		return
	}
	s.observer.ObservePushEvent(string(ev.Kind))
	switch {
	case ev.Kind == push.KindConnect:
		s.log.Info().Msg("push channel connected")
	case ev.Kind == push.KindDisconnect || ev.Kind == push.KindError:
		s.log.Warn().Err(ev.Err).Str("event", string(ev.Kind)).Msg("push channel down")
	}
	if connected != nil {
		s.observer.ObserveConnection(*connected)
	}
	s.notify()
}

func (s *Store) applyConfigLocked(payload json.RawMessage) error {
	var update backend.ConfigUpdate
	if err := decodeEvent(payload, &update); err != nil {
		return err
	}
	if update.Key == "" {
		return fmt.Errorf("%w: config_updated without key", errMalformedEvent)
	}
	s.snapshot.Config[update.Key] = update.Value
	return nil
}

// applyPluginLocked flips one known plugin. Unknown names leave the roster
// untouched.
func (s *Store) applyPluginLocked(payload json.RawMessage) error {
	var toggle backend.PluginToggle
	if err := decodeEvent(payload, &toggle); err != nil {
		return err
	}
	if toggle.PluginName == "" || toggle.Enabled == nil {
		return fmt.Errorf("%w: plugin_toggled needs plugin_name and enabled", errMalformedEvent)
	}
	plugin, ok := s.snapshot.Plugins.Available[toggle.PluginName]
	if !ok {
		return nil
	}
	plugin.Enabled = *toggle.Enabled
	s.snapshot.Plugins.Available[toggle.PluginName] = plugin
	s.snapshot.Plugins.recount()
	return nil
}

// applyStatusLocked applies a status_update: config and the plugin roster are
// replaced, cluster keys are merged. Missing sections are left alone.
func (s *Store) applyStatusLocked(payload json.RawMessage) error {
	var status backend.StatusUpdate
	if err := decodeEvent(payload, &status); err != nil {
		return err
	}
	if status.Config != nil {
		replaced := make(map[string]any, len(status.Config))
		for k, v := range status.Config {
			replaced[k] = v
		}
		s.snapshot.Config = replaced
	}
	if status.ClusterStatus != nil {
		s.snapshot.ClusterStatus = s.snapshot.ClusterStatus.Apply(*status.ClusterStatus)
	}
	if status.Plugins != nil && status.Plugins.Plugins != nil {
		s.snapshot.Plugins = Plugins{Available: status.Plugins.Plugins}.clone()
		s.snapshot.Plugins.recount()
	}
	return nil
}

// decodeEvent requires a JSON object payload.
func decodeEvent(payload json.RawMessage, dest any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expected object", errMalformedEvent)
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
