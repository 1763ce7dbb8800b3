// Package lockstore persists advisory file lock records and per-scope repo
// heads for the coordination engine.
//
// A lock record is an ownership claim by one holder on one file within a
// (remote, branch) scope. Records carry no liveness channel: a holder keeps a
// lock alive only by re-posting status, which refreshes the expiry. A record
// whose expiry has passed is dead, whether or not anything has deleted it yet
// — read paths filter expired records lazily, and a periodic sweep bounds
// storage growth.
//
// # Conflict Rules
//
// At most one WRITING record may exist per file per scope, and a WRITING
// record excludes all records from other holders. Multiple READING records
// from different holders coexist. A holder always succeeds against its own
// existing record: the re-acquire refreshes the expiry and may upgrade
// READING to WRITING (or downgrade).
//
// # Atomicity
//
// AcquireOrRefresh is all-or-nothing across the requested file set: if any
// file is held in a conflicting mode by a different holder, no state changes
// and the full conflict set is reported via [ConflictError]. Release is
// idempotent; releasing a file the holder does not hold is a no-op.
//
// # Implementations
//
//   - [MemoryStore]: mutex-guarded in-process map, the default for tests and
//     single-process serving.
//   - [SQLiteStore]: durable store on modernc.org/sqlite with serialized
//     write transactions.
package lockstore
