// Package adminapi provides an HTTP client for the parking administration API.
//
// # Overview
//
// The client covers the admin surface the console needs: one list read per
// entity kind, a handful of single-record reads, point mutations and the
// in/out log CSV export. It knows nothing about caching; the syncer package
// owns that.
//
// # Files
//
//   - client.go: request construction, list decoding, reads and writes
//   - types.go: entity types mirroring the API payloads
//   - errors.go: APIError and message extraction
//
// # Reads
//
// List methods take Params (filter key to value). Empty values are dropped,
// so a view can pass its whole filter map without pruning it first. Both a
// bare JSON array and an object envelope ({"dues": [...]}) are accepted.
//
// # Writes
//
// Mutations return the raw JSON object the server answered with. Callers
// merge exactly those fields into their cached record instead of guessing
// the result from the request payload.
//
// # Errors
//
// Any 4xx/5xx response becomes an *APIError whose Message is the FastAPI
// "detail" field when present. Transport failures are wrapped with %w.
//
// # Request IDs
//
// Each request carries an X-Request-ID header holding a UUIDv7 so server log
// lines can be matched to a console action.
package adminapi
