// Package backend provides an HTTP client for the development environment
// backend API.
//
// # Overview
//
// The backend serves the resources devpanel mirrors into its state store.
// This package handles HTTP communication, JSON decoding, and the typed
// representation of each resource.
//
// # API Endpoints
//
// Read side (Fetcher):
//
//   - GET /api/system/info: author, version, and free-form server fields
//   - GET /api/metrics: cpu_usage, memory{percent,used,total}, disk{...}
//   - GET /api/cluster/status: activeServers, failedServers, node counts
//   - GET /api/plugins: {"plugins": {name: {"enabled": bool, ...}}}
//   - GET /api/config: flat key/value map
//   - GET /api/logs: {"logs": [...]}, query parameters forwarded verbatim
//
// Write side (Commander):
//
//   - POST /api/config {"key", "value"}
//   - POST /api/plugins/<name>/toggle {"enabled"}
//   - POST /api/cluster/health-check {"server_name"?}
//
// # Partial Payloads
//
// Metrics and cluster status decode into patch types whose fields are
// pointers, so callers can tell "absent" from "zero". Metrics.Apply and
// ClusterStatus.Apply overlay only what was present. The same patch types
// decode push event payloads.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Accept: application/json and User-Agent: devpanel/0.1
//   - Carry a fresh X-Request-ID for correlation with backend logs
//   - Have no timeout unless WithTimeout is given
//
// # Error Handling
//
// Transport failures, non-2xx responses (wrapping ErrStatus), and bodies that
// do not decode into the expected shape are all returned as errors. The client
// never retries; retry policy belongs to callers.
package backend
