package state

import (
	"time"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/history"
)

// ConnectionStatus reflects push channel liveness only. It says nothing about
// how fresh the pulled data is.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnected    ConnectionStatus = "connected"
)

// PushState is the lifecycle state of the push channel.
type PushState int

const (
	PushUninitialized PushState = iota
	PushConnecting
	PushConnected
	PushDisconnected
)

func (p PushState) String() string {
	switch p {
	case PushUninitialized:
		return "uninitialized"
	case PushConnecting:
		return "connecting"
	case PushConnected:
		return "connected"
	case PushDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Resource names one pulled snapshot field.
type Resource string

const (
	ResourceSystemInfo Resource = "systemInfo"
	ResourceMetrics    Resource = "metrics"
	ResourceCluster    Resource = "clusterStatus"
	ResourcePlugins    Resource = "plugins"
	ResourceConfig     Resource = "config"
	ResourceLogs       Resource = "logs"
)

// Resources lists every pulled resource in refresh order.
var Resources = []Resource{
	ResourceSystemInfo,
	ResourceMetrics,
	ResourceCluster,
	ResourcePlugins,
	ResourceConfig,
	ResourceLogs,
}

// Plugins is the plugin roster with its derived counts. Total and Enabled are
// recomputed from Available after every change to it.
type Plugins struct {
	Total     int
	Enabled   int
	Available map[string]backend.Plugin
}

func (p Plugins) clone() Plugins {
	out := p
	if p.Available != nil {
		out.Available = make(map[string]backend.Plugin, len(p.Available))
		for name, plugin := range p.Available {
			out.Available[name] = plugin
		}
	}
	return out
}

func (p *Plugins) recount() {
	p.Total = len(p.Available)
	p.Enabled = 0
	for _, plugin := range p.Available {
		if plugin.Enabled {
			p.Enabled++
		}
	}
}

// Loading holds one flag per pull that the views show a spinner for. A flag
// is true while at least one matching request is in flight.
type Loading struct {
	Metrics bool
	Cluster bool
	Plugins bool
	Config  bool
	Logs    bool
}

// Any reports whether any flagged pull is in flight.
func (l Loading) Any() bool {
	return l.Metrics || l.Cluster || l.Plugins || l.Config || l.Logs
}

func (l *Loading) set(res Resource, v bool) {
	switch res {
	case ResourceMetrics:
		l.Metrics = v
	case ResourceCluster:
		l.Cluster = v
	case ResourcePlugins:
		l.Plugins = v
	case ResourceConfig:
		l.Config = v
	case ResourceLogs:
		l.Logs = v
	}
}

// Snapshot is a point-in-time copy of the store. Callers own it and may
// modify it freely.
type Snapshot struct {
	ConnectionStatus ConnectionStatus
	PushState        PushState
	PushError        error

	SystemInfo    backend.SystemInfo
	Metrics       backend.Metrics
	CPUHistory    []history.Sample
	ClusterStatus backend.ClusterStatus
	Plugins       Plugins
	Config        map[string]any
	Logs          []backend.LogEntry
	Loading       Loading

	// Errors holds the last failure per resource; a later success clears it.
	Errors      map[Resource]error
	LastUpdated map[Resource]time.Time
}

// SystemHealth classifies the snapshot metrics.
func (s Snapshot) SystemHealth() Health {
	return SystemHealth(s.Metrics)
}

// ClusterHealth classifies the snapshot cluster status.
func (s Snapshot) ClusterHealth() Health {
	return ClusterHealth(s.ClusterStatus)
}

// IsConnected reports whether the push channel is live.
func (s Snapshot) IsConnected() bool {
	return s.ConnectionStatus == StatusConnected
}

func defaultSnapshot() Snapshot {
	return Snapshot{
		ConnectionStatus: StatusDisconnected,
		PushState:        PushUninitialized,
		SystemInfo:       backend.DefaultSystemInfo(),
		Metrics:          backend.DefaultMetrics(),
		ClusterStatus:    backend.ClusterStatus{ActiveServers: []string{}, FailedServers: []string{}},
		Plugins:          Plugins{Available: map[string]backend.Plugin{}},
		Config:           map[string]any{},
		Logs:             []backend.LogEntry{},
		Errors:           map[Resource]error{},
		LastUpdated:      map[Resource]time.Time{},
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.SystemInfo = s.SystemInfo.Clone()
	out.ClusterStatus = s.ClusterStatus.Clone()
	out.Plugins = s.Plugins.clone()
	out.Config = make(map[string]any, len(s.Config))
	for k, v := range s.Config {
		out.Config[k] = v
	}
	out.Logs = append([]backend.LogEntry(nil), s.Logs...)
	out.Errors = make(map[Resource]error, len(s.Errors))
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	out.LastUpdated = make(map[Resource]time.Time, len(s.LastUpdated))
	for k, v := range s.LastUpdated {
		out.LastUpdated[k] = v
	}
	return out
}
