// Package ui provides the terminal interface of gatehouse.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds one viewState per entity kind
// and reads the stores of the state package on every render; it never keeps
// its own copy of server data. Remote reads and writes run as tea.Cmds
// through the syncer package and report back as messages.
//
// # Queries
//
// Each view owns a query.Composer. Filter keys emit a new query at once,
// search keystrokes are debounced, and page keys only change client-side
// slicing. Emitted queries travel over a buffered channel that a single
// waitForQuery command drains into the update loop, which then issues the
// load.
//
// # Package Structure
//
//   - app.go: Model, Options, Update/View and Run
//   - views.go: per-view state, messages and commands
//   - actions.go: list keys and the per-view write actions
//   - render.go: tables, detail pane and dashboard
//   - header.go: header and command bar
//   - prompt.go: text prompts and confirmations
//   - theme.go, style_helpers.go: colours and background-aware styling
//
// # Keys
//
// tab cycles views, 1-9 jump to one, / searches, f and F filter, [ and ]
// page, s and S sort. Record actions depend on the view: p marks a due
// paid, b blocks a vehicle, a and R approve or reject, and so on. Press ? for
// the full list.
package ui
