// Package syncer moves data between the administration API and the state
// registry.
//
// Coordinator handles reads. Load issues a list read for a kind with the
// view's query, takes a token from the store before the request and commits
// the response only if that token is still the newest. Failures are recorded
// on the store as a FetchError message while the previous rows stay. There
// is no automatic retry; Retry re-runs the last query on request.
//
// Applier handles point writes. A successful response that names the target
// id is merged field by field into the cached record; created guards are
// appended. A response that does not identify its record triggers a reload
// of that kind instead. Failed writes leave every store alone and come back
// as a MutationError.
//
// Both record Prometheus counters through Metrics and log through slog.
package syncer
