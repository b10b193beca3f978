// Package app is the devpanel composition root.
//
// Run wires the pieces together in this order:
//
//  1. Load ~/.config/devpanel/config.toml and apply command-line overrides
//  2. Initialize zerolog (log file for the TUI, stderr when headless)
//  3. Build the backend REST client and derive the push endpoint
//  4. Create the Prometheus recorder and the shared state.Store
//  5. Start the /metrics listener when metrics_addr is set
//  6. Probe /api/health and seed the CPU history from /api/metrics/history
//  7. Start the poller
//  8. Open the push channel; failure is logged and pulls continue
//  9. Run the TUI, or log snapshot changes in headless mode, until exit
//
// # Polling
//
// The poller calls Store.RefreshAll every poll_interval. After consecutive
// failures the wait doubles per failure up to 30 seconds and snaps back to
// the interval on the first success. Individual pull failures never stop
// polling; they surface in Snapshot.Errors.
//
// # Headless Mode
//
// With --headless there is no TUI. Every store change that alters the
// summary (connection, metrics, health, counts) produces one structured log
// line on stderr.
package app
