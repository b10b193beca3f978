// Package telemetry exposes devpanel client activity as Prometheus metrics.
//
// A Recorder plugs into the state store as its Observer. When metrics_addr is
// configured, Serve publishes the registry on /metrics:
//
//	devpanel_pulls_total{resource,outcome}
//	devpanel_push_events_total{kind}
//	devpanel_push_transitions_total{state}
//	devpanel_push_connected
package telemetry
