// Package app is the composition root of the console.
//
// # Overview
//
// Build loads the configuration and wires the pieces every entry point needs:
//
//	config.Load()           Read ~/.config/gatehouse/config.toml
//	slog logger             Log file (or the writer the caller passes)
//	adminapi.NewClient()    REST client with token and timeout
//	prometheus.Registry     syncer metrics plus Go runtime collectors
//	state.NewRegistry()     One store per entity kind
//	syncer.NewCoordinator() Reads into the stores
//	syncer.NewApplier()     Point writes into the stores
//
// Run builds the services, optionally serves /metrics, starts the dashboard
// poller and hands control to the TUI. The headless CLI commands call Build
// directly and talk to the coordinator and applier themselves.
//
// # Polling
//
// The poller only refreshes the dashboard summary. Collection views load on
// demand when their query changes. After a failed poll the interval doubles
// per consecutive failure up to five minutes and snaps back on the next
// success.
//
// # Errors
//
// Only configuration and log-file errors are fatal. Everything after startup
// is recorded on the stores and shown by the views.
package app
