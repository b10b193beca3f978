package push

import (
	"encoding/json"
	"time"
)

// Kind classifies an inbound event.
type Kind string

const (
	KindConnect    Kind = "connect"
	KindDisconnect Kind = "disconnect"
	KindError      Kind = "error"
	KindMetrics    Kind = "metrics_updated"
	KindCluster    Kind = "cluster_status_updated"
	KindConfig     Kind = "config_updated"
	KindPlugin     Kind = "plugin_toggled"
	KindUnknown    Kind = "unknown"

	// Replies to request_status and request_metrics.
	KindStatus       Kind = "status_update"
	KindMetricsReply Kind = "metrics_update"
)

// Client event names understood by the backend.
const (
	RequestStatus  = "request_status"
	RequestMetrics = "request_metrics"
)

// Event is one item on the inbound stream.
type Event struct {
	Kind    Kind
	Name    string
	Payload json.RawMessage
	Err     error
	At      time.Time
}

func kindOf(name string) Kind {
	switch Kind(name) {
	case KindMetrics, KindCluster, KindConfig, KindPlugin, KindStatus, KindMetricsReply:
		return Kind(name)
	default:
		return KindUnknown
	}
}
