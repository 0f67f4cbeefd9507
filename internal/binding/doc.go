// Package binding projects store snapshots into plain tables and field lists.
//
// Both the TUI and the headless CLI render through this package, so a kind
// shows the same columns everywhere. Projections are read-only: they take a
// snapshot and never call back into the stores.
package binding
