// Package store provides SQLite-backed storage for the session journal.
//
// The journal is append-only:
//   - sessions: one row per workflow session, ended exactly once
//   - events: lifecycle events keyed by a content-addressed id
//
// Writes are idempotent. Replaying a scenario into the same database leaves
// it unchanged, because event ids are derived from their content and
// sessions are only ended while still open.
//
// All reads order by seq ASC, then ord or id with COLLATE BINARY, so results
// are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single connection: the engine is the only writer
package store
