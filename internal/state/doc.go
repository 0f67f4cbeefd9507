// Package state holds the client-side cache of the administration API.
//
// # Overview
//
// Each entity kind (vehicles, users, guards, requests, logs, dues, audit,
// settings, metrics) gets its own Store. A store keeps the last fetched
// collection in server order, an optional selected record for detail views,
// and a fetch status. The syncer package is the only writer; views read
// Snapshots.
//
// # Transitions
//
//	Begin()            -> Loading, error cleared, new Token issued
//	Succeed(tok, xs)   -> collection = xs, Ready
//	Fail(tok, msg)     -> Failed, error = msg, collection untouched
//	PatchOne(id, json) -> merge server fields onto one record
//	Append(x)          -> add a created record
//
// Succeed and Fail only commit when tok is still the latest token issued
// for that store, so a slow response to an older request can never overwrite
// a newer one. Collection and selected loads have separate token streams
// and separate status, so a detail read never hides a failed list read.
// Single-record kinds (settings, metrics) report SelectedMeta.
//
// # Patching
//
// PatchOne decodes the server's JSON object onto a copy of the cached record,
// so exactly the keys present in the response change. Patching an id that is
// not cached does nothing. A response whose id differs from the target is
// rejected with ErrIdentityChanged.
//
// # Concurrency
//
// Every method takes the store's own RWMutex. Stores never reference each
// other. Snapshot copies the slice and the selected record so callers may
// sort or slice them freely.
//
// # Registry
//
// Registry groups the nine stores. It is constructed explicitly with
// NewRegistry rather than living in a package variable.
package state
