package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/five82/devpanel/internal/state"
)

// summary is the part of a snapshot worth a log line.
type summary struct {
	connection    state.ConnectionStatus
	cpu           float64
	memory        float64
	disk          float64
	system        state.Health
	cluster       state.Health
	active        int
	failed        int
	plugins       int
	enabled       int
	configEntries int
	logEntries    int
}

func summarize(snap state.Snapshot) summary {
	return summary{
		connection:    snap.ConnectionStatus,
		cpu:           snap.Metrics.CPUUsage,
		memory:        snap.Metrics.Memory.Percent,
		disk:          snap.Metrics.Disk.Percent,
		system:        snap.SystemHealth(),
		cluster:       snap.ClusterHealth(),
		active:        len(snap.ClusterStatus.ActiveServers),
		failed:        len(snap.ClusterStatus.FailedServers),
		plugins:       snap.Plugins.Total,
		enabled:       snap.Plugins.Enabled,
		configEntries: len(snap.Config),
		logEntries:    len(snap.Logs),
	}
}

// snapshotSource is the slice of *state.Store headless mode reads.
type snapshotSource interface {
	Snapshot() state.Snapshot
	Subscribe() (<-chan struct{}, func())
}

// runHeadless logs one line whenever the visible state changes and blocks
// until ctx is cancelled.
func runHeadless(ctx context.Context, store snapshotSource, log zerolog.Logger) error {
	changes, cancel := store.Subscribe()
	defer cancel()

	var last summary
	first := true
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}

		current := summarize(store.Snapshot())
		if !first && current == last {
			continue
		}
		first = false
		last = current
		log.Info().
			Str("connection", string(current.connection)).
			Float64("cpu", current.cpu).
			Float64("memory", current.memory).
			Float64("disk", current.disk).
			Str("system_health", string(current.system)).
			Str("cluster_health", string(current.cluster)).
			Int("active_servers", current.active).
			Int("failed_servers", current.failed).
			Int("plugins_enabled", current.enabled).
			Int("plugins_total", current.plugins).
			Int("config_entries", current.configEntries).
			Int("log_entries", current.logEntries).
			Msg("snapshot")
	}
}
