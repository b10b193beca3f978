// Package ui is the devpanel terminal interface, built on Bubble Tea.
//
// # Layout
//
// Every frame has four parts:
//
//   - Header: push connection state, system and cluster health badges,
//     headline counts, a spinner while any pull is in flight
//   - Tab bar: one tab per route in the navigation map
//   - Page: the active view
//   - Command bar: key hints for the page, the last action result and the
//     theme name
//
// # Pages
//
// Pages are registered in a nav.Map under "/", "/config" and "/logs" and are
// built the first time they are visited. The map memoizes them, so a page
// keeps its scroll position and selection across visits.
//
//   - Dashboard: CPU, memory and disk meters, a CPU history sparkline, the
//     cluster server lists, the plugin roster (Space toggles the selected
//     plugin) and backend build info. A Problems panel appears while any
//     resource's last pull failed.
//   - Config: sorted key/value list. Enter edits a value in place; the text
//     is sent as JSON when it parses and as a plain string otherwise.
//   - Logs: backend system or docker logs, or devpanel's own log file. Follow
//     mode refetches every few seconds and pins the view to the bottom.
//
// # Data Flow
//
// The model never mutates the store. It reads snapshots when the store
// signals a change and on every tick, and it calls store methods from
// commands so the UI goroutine never blocks on the network. Action results
// come back as messages and show briefly in the command bar.
//
// # Preferences
//
// The theme (T cycles Nightfox, Kanagawa and Slate) and the last visited
// route are written to prefs.toml whenever either changes, and the route is
// restored at startup when it is still registered.
package ui
