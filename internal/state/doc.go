// Package state owns the devpanel client snapshot.
//
// # Overview
//
// A Store holds everything the backend has told devpanel: system info,
// metrics with a bounded CPU history, cluster status, the plugin roster,
// configuration, logs, per-resource loading flags, and push channel status.
// Two channels feed it:
//
//	pull: Fetch* / RefreshAll ──→ backend.Fetcher ──→ merge or replace
//	push: Initialize ──→ Dialer ──→ Channel.Events() ──→ dispatch loop
//
// The composition root builds one Store and passes it to the poller and the
// UI. Close ends the push channel and every subscription.
//
// # Field Policy
//
// Each snapshot field follows one rule regardless of which channel changed it:
//
//	systemInfo     pull merges keys
//	metrics        pull and push merge present top-level keys
//	clusterStatus  pull and push merge present keys
//	plugins        pull replaces the roster, push toggles one known entry
//	config         pull replaces the map, push sets one key
//	logs           pull replaces the list
//
// Plugins.Total and Plugins.Enabled are recounted after every change to
// Plugins.Available. Every metrics change carrying cpu_usage appends a
// sample to CPUHistory, which evicts its oldest sample once full.
//
// # Pulls
//
// Pull failures are logged, recorded in Snapshot.Errors and leave the field
// untouched; the Fetch methods never return them. Each resource carries a
// generation counter: a response is applied only if no newer request for
// the same resource was issued after it, so the last issued pull wins even
// when responses arrive out of order. Loading flags stay set while any
// request for the resource is in flight.
//
// # Push Lifecycle
//
//	Uninitialized ──Initialize──→ Connecting ──connect──→ Connected
//	                                  ↑                       │
//	                              Reconnect          disconnect/error
//	                                  │                       ↓
//	                                  └──────────────── Disconnected
//
// The Channel redials on its own after transport loss and reports each
// attempt as events; the Store only follows them. Reconnect replaces a
// channel that is not connected. Disconnect is idempotent.
//
// A single goroutine per channel applies events in arrival order, one
// mutation per event. Payloads that do not decode are logged and dropped.
// plugin_toggled for an unknown plugin changes nothing.
//
// # Concurrency Model
//
// All snapshot access goes through a sync.RWMutex; Snapshot returns deep
// copies. Network I/O happens outside the lock. Subscribe delivers
// coalesced change signals so readers re-read Snapshot at their own pace.
package state
