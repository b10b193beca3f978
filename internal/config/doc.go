// Package config loads devpanel's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/devpanel/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. Empty or zero fields also fall back to defaults
//
// # TOML Format
//
//	api_url = "http://127.0.0.1:8080"
//	backend_port = 9000
//	env_file = "~/dev-env/config.env"
//	poll_interval = 10      # seconds
//	history_limit = 60      # CPU samples kept for the sparkline
//	request_timeout = 0     # seconds, 0 leaves it to the transport
//	log_file = "~/.local/state/devpanel/devpanel.log"
//	log_level = "info"
//	metrics_addr = ""       # e.g. ":9100" to expose Prometheus metrics
//
// # Push Port
//
// The push channel port is resolved separately from the REST URL because the
// backend serves Socket.IO on its own port:
//
//  1. DEVPANEL_BACKEND_PORT environment variable
//  2. backend_port from the TOML file
//  3. API_PORT=<int> from env_file (the backend's own config.env)
//  4. 9000
//
// Unparsable or out-of-range values at any step are skipped.
package config
